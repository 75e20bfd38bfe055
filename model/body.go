package model

import (
	"math"

	"github.com/signalsfoundry/orrery/moment"
	"gonum.org/v1/gonum/spatial/r3"
)

// MotionSource indicates how a body's position is determined.
type MotionSource int

const (
	MotionSourceUnknown MotionSource = iota
	MotionSourceStatic
	MotionSourceKepler     // two-body Keplerian elements
	MotionSourceSpacetrack // TLE-based SGP4 propagation
)

func (s MotionSource) String() string {
	switch s {
	case MotionSourceStatic:
		return "static"
	case MotionSourceKepler:
		return "kepler"
	case MotionSourceSpacetrack:
		return "sgp4"
	default:
		return "unknown"
	}
}

// Motion represents a position in parent-local metres.
type Motion struct {
	X float64
	Y float64
	Z float64
}

// MotionFromVec converts a gonum vector.
func MotionFromVec(v r3.Vec) Motion { return Motion{X: v.X, Y: v.Y, Z: v.Z} }

func (m Motion) Vec() r3.Vec { return r3.Vec{X: m.X, Y: m.Y, Z: m.Z} }

// GridCell identifies one cube of the floating-origin grid.
type GridCell struct {
	X, Y, Z int64
}

// Placement is the last computed state of a body.
type Placement struct {
	Local  Motion   // parent-local position
	Cell   GridCell // grid cell holding Local
	Offset Motion   // position inside Cell
	Spin   float64  // rotation about the body's axis, radians in [0, 2π)
	At     moment.Moment
}

// Body is a celestial body or satellite in the system hierarchy. The root body
// has an empty ParentID.
type Body struct {
	ID       string
	ParentID string

	Radius        float64 // metres
	RotationSpeed float64 // radians per second
	AxialTilt     float64 // radians

	MotionSource MotionSource
	NoradID      uint32 // set when MotionSourceSpacetrack

	Placement Placement
}

// RotationSpeedFromDay returns the spin rate for a sidereal day of the given
// length in seconds. Non-positive lengths yield a body that does not spin.
func RotationSpeedFromDay(siderealDay float64) float64 {
	if !(siderealDay > 0) {
		return 0
	}
	return 2 * math.Pi / siderealDay
}

// SpinAt returns the body's rotation angle after elapsed seconds.
func (b Body) SpinAt(elapsed float64) float64 {
	a := math.Mod(b.RotationSpeed*elapsed, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
