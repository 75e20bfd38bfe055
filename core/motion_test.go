package core

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/moment"
	"github.com/signalsfoundry/orrery/orbit"
	"gonum.org/v1/gonum/spatial/r3"
)

// ISS element set from 2008-09-20.
const (
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

func TestStaticMotionModel_NoChange(t *testing.T) {
	m := StaticMotionModel{At: model.Motion{X: 1, Y: 2, Z: 3}}

	for _, now := range []moment.Moment{moment.Zero(), moment.FromDays(60000)} {
		got, ok := m.Position(now)
		if !ok || got != (model.Motion{X: 1, Y: 2, Z: 3}) {
			t.Fatalf("static motion should not change, got %#v, %v", got, ok)
		}
	}
}

func TestKeplerMotionModelMatchesOrbit(t *testing.T) {
	elements := orbit.KeplerElements{
		Epoch:         moment.FromDays(51544.5),
		Period:        3.15576e7,
		SemiMajorAxis: 1e11,
		Eccentricity:  0.1,
		Inclination:   0.2,
	}
	m, err := NewKeplerMotionModel(elements)
	if err != nil {
		t.Fatalf("NewKeplerMotionModel: %v", err)
	}

	now := moment.FromDays(51600)
	got, ok := m.Position(now)
	want, _ := orbit.New(elements).PointOnOrbit(now)
	if !ok || got.Vec() != want {
		t.Fatalf("Position = %+v, %v; want %+v", got, ok, want)
	}

	early := moment.FromTime(time.Date(1850, time.January, 1, 0, 0, 0, 0, time.UTC))
	if _, ok := m.Position(early); ok {
		t.Fatalf("expected no position before MJD 0")
	}

	elements.Period = 0
	if _, err := NewKeplerMotionModel(elements); !errors.Is(err, orbit.ErrInvalidElements) {
		t.Fatalf("NewKeplerMotionModel(period 0) = %v, want ErrInvalidElements", err)
	}
}

// We don't assert exact orbital values (those belong to go-satellite);
// we just ensure that positions are plausible and differ at distinct times.
func TestOrbitalSGP4MotionModel_ChangesOverTime(t *testing.T) {
	m, err := NewOrbitalModelFromTLE(issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewOrbitalModelFromTLE: %v", err)
	}
	if m.NoradID() != 25544 {
		t.Fatalf("NoradID() = %d, want 25544", m.NoradID())
	}

	t1 := moment.FromTime(time.Date(2008, 9, 20, 12, 0, 0, 0, time.UTC))
	t2 := t1.Add(5 * time.Minute)

	first, ok := m.Position(t1)
	if !ok {
		t.Fatalf("no position at %v", t1)
	}
	second, ok := m.Position(t2)
	if !ok {
		t.Fatalf("no position at %v", t2)
	}
	if first == second {
		t.Fatalf("expected orbital position to change over time, got %+v at both times", first)
	}
	if r := r3.Norm(first.Vec()); r < 6.5e6 || r > 7.0e6 {
		t.Fatalf("geocentric distance %v m is not a low Earth orbit", r)
	}
	if math.IsNaN(second.X) {
		t.Fatalf("NaN position")
	}
}

func TestValidateTLE(t *testing.T) {
	if err := ValidateTLE(issLine1, issLine2); err != nil {
		t.Fatalf("ValidateTLE(valid) = %v", err)
	}

	badChecksum := issLine1[:68] + "0"
	otherSat := "2 25545" + issLine2[7:68]
	otherSat += string(rune('0' + tleChecksum(otherSat)))

	tests := []struct {
		name         string
		line1, line2 string
		want         string
	}{
		{"short", issLine1[:60], issLine2, "characters"},
		{"swapped", issLine2, issLine1, "must start with"},
		{"checksum", badChecksum, issLine2, "checksum"},
		{"catalog", issLine1, otherSat, "catalog numbers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTLE(tt.line1, tt.line2)
			if !errors.Is(err, ErrInvalidTLE) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("ValidateTLE = %v, want ErrInvalidTLE mentioning %q", err, tt.want)
			}
		})
	}

	if _, err := NewOrbitalModelFromTLE(badChecksum, issLine2); !errors.Is(err, ErrInvalidTLE) {
		t.Fatalf("NewOrbitalModelFromTLE(bad) = %v, want ErrInvalidTLE", err)
	}
}

func TestNewMotionModelSelection(t *testing.T) {
	static := model.Body{ID: "probe", Placement: model.Placement{Local: model.Motion{X: 4}}}
	mm, err := NewMotionModel(static, nil, "", "")
	if err != nil {
		t.Fatalf("NewMotionModel(static): %v", err)
	}
	if pos, _ := mm.Position(moment.Zero()); pos.X != 4 {
		t.Fatalf("static model position = %+v", pos)
	}

	kepler := model.Body{ID: "earth", MotionSource: model.MotionSourceKepler}
	if _, err := NewMotionModel(kepler, nil, "", ""); err == nil {
		t.Fatalf("expected kepler motion without elements to fail")
	}

	sat := model.Body{ID: "iss", MotionSource: model.MotionSourceSpacetrack}
	mm, err = NewMotionModel(sat, nil, issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewMotionModel(sgp4): %v", err)
	}
	if _, ok := mm.(*OrbitalSGP4MotionModel); !ok {
		t.Fatalf("NewMotionModel(sgp4) returned %T", mm)
	}
}
