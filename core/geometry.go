package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/orrery/kb"
)

// LineOfSight reports whether the segment between p1 and p2 stays clear of
// the sphere of the given radius around center. Touching the surface counts
// as blocked.
func LineOfSight(p1, p2, center r3.Vec, radius float64) bool {
	p1 = r3.Sub(p1, center)
	p2 = r3.Sub(p2, center)
	r2 := radius * radius

	v := r3.Sub(p2, p1)
	a := r3.Dot(v, v)
	if a == 0 {
		// Same point: clear unless it is inside the sphere.
		return r3.Dot(p1, p1) > r2
	}

	// Closest point on the segment to the sphere's centre.
	t := math.Max(0, math.Min(1, -r3.Dot(p1, v)/a))
	closest := r3.Add(p1, r3.Scale(t, v))
	return r3.Dot(closest, closest) > r2
}

// ElevationDegrees returns the elevation of target above the horizon of an
// observer standing on a body centred at center. 0° is the geometric
// horizon, 90° overhead.
func ElevationDegrees(observer, target, center r3.Vec) float64 {
	v := r3.Sub(target, observer)
	zenith := r3.Sub(observer, center)
	if r3.Norm(v) == 0 || r3.Norm(zenith) == 0 {
		return 90
	}
	cosGamma := math.Max(-1, math.Min(1, r3.Cos(v, zenith)))
	return 90 - math.Acos(cosGamma)*180/math.Pi
}

// Sight describes what an observer body sees of a target body.
type Sight struct {
	Range float64 // meters between centres
	// Blocked lists the bodies whose sphere crosses the line of sight,
	// sorted by ID.
	Blocked []string
	// Elevation is the target's elevation in degrees above the observer's
	// parent horizon; NaN for the root body.
	Elevation float64
}

// Visible reports an unobstructed line of sight.
func (s Sight) Visible() bool { return len(s.Blocked) == 0 }

// LookAt evaluates the line of sight between two bodies from their current
// placements. Bodies with zero radius never block.
func LookAt(store *kb.KnowledgeBase, observerID, targetID string) (Sight, error) {
	observer, ok := store.GetBody(observerID)
	if !ok {
		return Sight{}, fmt.Errorf("%w: %q", kb.ErrBodyNotFound, observerID)
	}
	if _, ok := store.GetBody(targetID); !ok {
		return Sight{}, fmt.Errorf("%w: %q", kb.ErrBodyNotFound, targetID)
	}

	from, err := store.AbsolutePosition(observerID)
	if err != nil {
		return Sight{}, err
	}
	to, err := store.AbsolutePosition(targetID)
	if err != nil {
		return Sight{}, err
	}

	s := Sight{Range: r3.Norm(r3.Sub(to, from)), Elevation: math.NaN()}
	for _, b := range store.ListBodies() {
		if b.ID == observerID || b.ID == targetID || !(b.Radius > 0) {
			continue
		}
		center, err := store.AbsolutePosition(b.ID)
		if err != nil {
			return Sight{}, err
		}
		if !LineOfSight(from, to, center, b.Radius) {
			s.Blocked = append(s.Blocked, b.ID)
		}
	}

	if observer.ParentID != "" {
		center, err := store.AbsolutePosition(observer.ParentID)
		if err != nil {
			return Sight{}, err
		}
		s.Elevation = ElevationDegrees(from, to, center)
	}
	return s, nil
}
