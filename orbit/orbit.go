package orbit

import (
	"math"

	"github.com/signalsfoundry/orrery/moment"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	xAxis = r3.Vec{X: 1}
	yAxis = r3.Vec{Y: 1}
)

// Orbit evaluates positions along an orbit described by KeplerElements.
// Build one with New; replacing the elements means building a new Orbit.
type Orbit struct {
	elements          KeplerElements
	meanAngularMotion float64
}

// New derives the mean angular motion 2π/period once.
func New(elements KeplerElements) Orbit {
	return Orbit{
		elements:          elements,
		meanAngularMotion: 2 * math.Pi / elements.Period,
	}
}

// Elements returns the orbit's elements.
func (o Orbit) Elements() KeplerElements { return o.elements }

// MeanAngularMotion returns radians per second.
func (o Orbit) MeanAngularMotion() float64 { return o.meanAngularMotion }

// SecondsSinceEpoch reports how long after the element epoch t falls. It is
// false when either moment cannot be expressed as an MJD day count.
func (o Orbit) SecondsSinceEpoch(t moment.Moment) (float64, bool) {
	now, ok := t.Days()
	if !ok {
		return 0, false
	}
	epoch, ok := o.elements.Epoch.Days()
	if !ok {
		return 0, false
	}
	return (now - epoch) * 86400, true
}

func (o Orbit) MeanAnomaly(secondsSinceEpoch float64) float64 {
	return o.meanAngularMotion * secondsSinceEpoch
}

func (o Orbit) EccentricAnomaly(meanAnomaly float64) float64 {
	return KeplerEquation{
		Eccentricity: o.elements.Eccentricity,
		MeanAnomaly:  meanAnomaly,
	}.Solve()
}

// TrueAnomaly converts an eccentric anomaly with the half-angle relation
// tan(ν/2) = sqrt((1+e)/(1-e)) tan(E/2). The result lies in (-π, π).
func (o Orbit) TrueAnomaly(eccentricAnomaly float64) float64 {
	e := o.elements.Eccentricity
	a := math.Sqrt(-1 / (e - 1))
	b := math.Sqrt(1 + e)
	c := math.Tan(eccentricAnomaly / 2)
	return 2 * math.Atan(a*b*c)
}

// HeliocentricDistance returns a(1 - e cos ν). This is the eccentric-anomaly
// radius relation evaluated at the true anomaly; it agrees with ConicRadius
// only for circular orbits.
func (o Orbit) HeliocentricDistance(trueAnomaly float64) float64 {
	return o.elements.SemiMajorAxis * (1 - o.elements.Eccentricity*math.Cos(trueAnomaly))
}

// ConicRadius returns the focal distance a(1 - e²)/(1 + e cos ν).
func (o Orbit) ConicRadius(trueAnomaly float64) float64 {
	e := o.elements.Eccentricity
	return o.elements.SemiMajorAxis * (1 - e*e) / (1 + e*math.Cos(trueAnomaly))
}

// PositionFromAngleLocal places the body in the orbital plane.
func (o Orbit) PositionFromAngleLocal(trueAnomaly float64) r2.Vec {
	r := o.HeliocentricDistance(trueAnomaly)
	return r2.Vec{X: r * math.Cos(trueAnomaly), Y: r * math.Sin(trueAnomaly)}
}

// PointOnOrbitLocal returns the in-plane position at t.
func (o Orbit) PointOnOrbitLocal(t moment.Moment) (r2.Vec, bool) {
	secs, ok := o.SecondsSinceEpoch(t)
	if !ok {
		return r2.Vec{}, false
	}
	m := o.MeanAnomaly(secs)
	return o.PositionFromAngleLocal(o.TrueAnomaly(o.EccentricAnomaly(m))), true
}

// PointOnOrbit returns the position at t in meters, in the parent's axes.
func (o Orbit) PointOnOrbit(t moment.Moment) (r3.Vec, bool) {
	p, ok := o.PointOnOrbitLocal(t)
	if !ok {
		return r3.Vec{}, false
	}
	return o.rotate(p), true
}

// PointFromAngle returns the parent-frame position at an explicit true
// anomaly.
func (o Orbit) PointFromAngle(trueAnomaly float64) r3.Vec {
	return o.rotate(o.PositionFromAngleLocal(trueAnomaly))
}

// rotate lifts the in-plane point to (x, 0, y) and applies
// R_y(Ω)·R_x(i).
func (o Orbit) rotate(p r2.Vec) r3.Vec {
	v := r3.Vec{X: p.X, Y: 0, Z: p.Y}
	v = r3.NewRotation(o.elements.Inclination, xAxis).Rotate(v)
	return r3.NewRotation(o.elements.LongitudeOfAscendingNode, yAxis).Rotate(v)
}

func (o Orbit) SemiMinorAxis() float64 {
	e := o.elements.Eccentricity
	return o.elements.SemiMajorAxis * math.Sqrt(1-e*e)
}

// Periapsis returns the closest focal distance a(1 - e).
func (o Orbit) Periapsis() float64 {
	return o.elements.SemiMajorAxis * (1 - o.elements.Eccentricity)
}

// Apoapsis returns the farthest focal distance a(1 + e).
func (o Orbit) Apoapsis() float64 {
	return o.elements.SemiMajorAxis * (1 + o.elements.Eccentricity)
}

// Trace samples n points of the path at evenly spaced true anomalies,
// starting at periapsis. It returns nil when n is not positive.
func (o Orbit) Trace(n int) []r3.Vec {
	if n <= 0 {
		return nil
	}
	out := make([]r3.Vec, n)
	step := 2 * math.Pi / float64(n)
	for i := range out {
		out[i] = o.PointFromAngle(float64(i) * step)
	}
	return out
}
