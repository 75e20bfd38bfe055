// Package orbit propagates two-body Keplerian orbits.
package orbit

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/orrery/moment"
	"github.com/signalsfoundry/orrery/rooteq"
)

const (
	keplerTolerance     = 1e-10
	keplerMaxIterations = 100
)

// KeplerEquation is Kepler's equation M = E - e sin E rearranged as a root of
// the eccentric anomaly E.
type KeplerEquation struct {
	Eccentricity float64
	MeanAnomaly  float64
}

func (k KeplerEquation) Root(e float64) float64 {
	return k.MeanAnomaly - e + k.Eccentricity*math.Sin(e)
}

func (k KeplerEquation) Diff(e float64) float64 {
	return k.Eccentricity*math.Cos(e) - 1
}

// Solve returns the eccentric anomaly, starting from E0 = M.
func (k KeplerEquation) Solve() float64 {
	solver := rooteq.NewtonRaphson[float64]{
		Equation:      k,
		Tolerance:     keplerTolerance,
		MaxIterations: keplerMaxIterations,
	}
	return solver.Solve(k.MeanAnomaly)
}

// ErrInvalidElements reports orbital elements outside their domain.
var ErrInvalidElements = errors.New("invalid orbital elements")

// KeplerElements describe an elliptical orbit. Lengths are meters, the
// period is seconds and angles are radians.
type KeplerElements struct {
	Epoch                    moment.Moment
	Period                   float64
	SemiMajorAxis            float64
	Eccentricity             float64
	Inclination              float64
	LongitudeOfAscendingNode float64
	// ArgumentOfPeriapsis is carried for completeness; positions are
	// measured from the ascending node and do not apply it.
	ArgumentOfPeriapsis float64
}

// Validate checks that the elements describe a closed orbit.
func (k KeplerElements) Validate() error {
	switch {
	case !(k.Period > 0) || math.IsInf(k.Period, 0):
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidElements, k.Period)
	case !(k.SemiMajorAxis > 0) || math.IsInf(k.SemiMajorAxis, 0):
		return fmt.Errorf("%w: semi-major axis must be positive, got %v", ErrInvalidElements, k.SemiMajorAxis)
	case !(k.Eccentricity >= 0 && k.Eccentricity < 1):
		return fmt.Errorf("%w: eccentricity must be in [0, 1), got %v", ErrInvalidElements, k.Eccentricity)
	}
	for name, v := range map[string]float64{
		"inclination":                 k.Inclination,
		"longitude of ascending node": k.LongitudeOfAscendingNode,
		"argument of periapsis":       k.ArgumentOfPeriapsis,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidElements, name)
		}
	}
	return nil
}
