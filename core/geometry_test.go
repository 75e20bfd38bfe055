package core

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
)

const earthRadius = 6.371e6

func TestLineOfSight_NoObstruction(t *testing.T) {
	// Two satellites high and on the same side of the planet, separated in Y.
	posA := r3.Vec{X: 8e6}
	posB := r3.Vec{X: 8e6, Y: 1e6}

	if !LineOfSight(posA, posB, r3.Vec{}, earthRadius) {
		t.Errorf("expected LoS between two high satellites on the same side")
	}
}

func TestLineOfSight_Obstructed(t *testing.T) {
	// Opposite sides: the chord passes through the sphere.
	posA := r3.Vec{X: 7e6}
	posB := r3.Vec{X: -7e6}

	if LineOfSight(posA, posB, r3.Vec{}, earthRadius) {
		t.Errorf("expected LoS to be blocked")
	}
}

func TestLineOfSight_OffsetCenter(t *testing.T) {
	center := r3.Vec{X: 1e9, Y: 1e9}
	posA := r3.Add(center, r3.Vec{Z: 7e6})
	posB := r3.Add(center, r3.Vec{Z: -7e6})
	if LineOfSight(posA, posB, center, earthRadius) {
		t.Errorf("expected the translated sphere to block")
	}
	if !LineOfSight(posA, posB, r3.Vec{}, earthRadius) {
		t.Errorf("a sphere at the origin should not block a segment 1.4e9 m away")
	}
	if LineOfSight(center, center, center, earthRadius) {
		t.Errorf("a point inside the sphere cannot see itself")
	}
}

func TestElevationDegrees(t *testing.T) {
	observer := r3.Vec{X: earthRadius}
	tests := []struct {
		target r3.Vec
		want   float64
	}{
		{r3.Vec{X: 2 * earthRadius}, 90},
		{r3.Vec{X: earthRadius, Y: 1e6}, 0},
		{r3.Vec{X: 0.5 * earthRadius, Y: 0}, -90},
		{observer, 90},
	}
	for _, tt := range tests {
		if got := ElevationDegrees(observer, tt.target, r3.Vec{}); !scalar.EqualWithinAbs(got, tt.want, 1e-9) {
			t.Errorf("ElevationDegrees(%v) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestLookAt(t *testing.T) {
	store := kb.NewKnowledgeBase()
	add := func(id, parent string, radius float64, local model.Motion) {
		t.Helper()
		b := model.Body{ID: id, ParentID: parent, Radius: radius, Placement: model.Placement{Local: local}}
		if err := store.AddBody(b); err != nil {
			t.Fatalf("AddBody(%s): %v", id, err)
		}
	}
	add("sun", "", 6.9634e8, model.Motion{})
	add("earth", "sun", earthRadius, model.Motion{X: 1.496e11})
	add("station", "earth", 0, model.Motion{X: 7e6})
	add("far-side", "earth", 0, model.Motion{X: -7e6})
	add("moon", "earth", 1.7374e6, model.Motion{Y: 3.844e8})

	s, err := LookAt(store, "station", "far-side")
	if err != nil {
		t.Fatalf("LookAt: %v", err)
	}
	if s.Visible() || len(s.Blocked) != 1 || s.Blocked[0] != "earth" {
		t.Fatalf("station -> far-side = %+v, want blocked by earth", s)
	}
	if !scalar.EqualWithinAbs(s.Range, 1.4e7, 1e-3) {
		t.Fatalf("range = %v, want 1.4e7", s.Range)
	}
	if !scalar.EqualWithinAbs(s.Elevation, -90, 1e-9) {
		t.Fatalf("elevation = %v, want -90", s.Elevation)
	}

	s, err = LookAt(store, "station", "moon")
	if err != nil {
		t.Fatalf("LookAt: %v", err)
	}
	if !s.Visible() {
		t.Fatalf("station -> moon blocked by %v", s.Blocked)
	}

	s, err = LookAt(store, "sun", "earth")
	if err != nil {
		t.Fatalf("LookAt: %v", err)
	}
	if !math.IsNaN(s.Elevation) {
		t.Fatalf("root observer elevation = %v, want NaN", s.Elevation)
	}

	if _, err := LookAt(store, "station", "pluto"); !errors.Is(err, kb.ErrBodyNotFound) {
		t.Fatalf("LookAt(unknown) = %v, want ErrBodyNotFound", err)
	}
}
