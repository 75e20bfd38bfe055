package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/moment"
	"github.com/signalsfoundry/orrery/orbit"
)

// ErrInvalidTLE reports a two-line element set that cannot be propagated.
var ErrInvalidTLE = errors.New("invalid TLE")

// MotionModel computes a body's parent-local position at a simulation moment.
// It reports false when no position is available for that moment, in which
// case the caller skips the body for the tick.
type MotionModel interface {
	Position(now moment.Moment) (model.Motion, bool)
}

// StaticMotionModel pins a body at a fixed parent-local position.
type StaticMotionModel struct {
	At model.Motion
}

func (m StaticMotionModel) Position(moment.Moment) (model.Motion, bool) { return m.At, true }

// KeplerMotionModel propagates a two-body orbit.
type KeplerMotionModel struct {
	Orbit orbit.Orbit
}

// NewKeplerMotionModel validates the elements and builds the orbit.
func NewKeplerMotionModel(elements orbit.KeplerElements) (*KeplerMotionModel, error) {
	if err := elements.Validate(); err != nil {
		return nil, err
	}
	return &KeplerMotionModel{Orbit: orbit.New(elements)}, nil
}

func (m *KeplerMotionModel) Position(now moment.Moment) (model.Motion, bool) {
	p, ok := m.Orbit.PointOnOrbit(now)
	if !ok {
		return model.Motion{}, false
	}
	return model.MotionFromVec(p), true
}

// OrbitalSGP4MotionModel uses a TLE and SGP4 to place an Earth satellite.
// Positions are in the parent's inertial (TEME) axes.
type OrbitalSGP4MotionModel struct {
	sat     satellite.Satellite
	noradID uint32
}

// NewOrbitalModelFromTLE constructs an orbital model from TLE lines.
func NewOrbitalModelFromTLE(line1, line2 string) (*OrbitalSGP4MotionModel, error) {
	line1, line2 = strings.TrimRight(line1, " \r\n"), strings.TrimRight(line2, " \r\n")
	if err := ValidateTLE(line1, line2); err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(strings.TrimSpace(line1[2:7]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog number %q", ErrInvalidTLE, line1[2:7])
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &OrbitalSGP4MotionModel{sat: sat, noradID: uint32(id)}, nil
}

// NoradID returns the satellite catalog number.
func (m *OrbitalSGP4MotionModel) NoradID() uint32 { return m.noradID }

// Position propagates the satellite to now. go-satellite works in
// kilometres; we return metres. NaN output marks a decayed or otherwise
// unpropagatable element set.
func (m *OrbitalSGP4MotionModel) Position(now moment.Moment) (model.Motion, bool) {
	t := now.Time()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	if math.IsNaN(posECI.X) || math.IsNaN(posECI.Y) || math.IsNaN(posECI.Z) {
		return model.Motion{}, false
	}

	const kmToM = 1000.0
	return model.Motion{
		X: posECI.X * kmToM,
		Y: posECI.Y * kmToM,
		Z: posECI.Z * kmToM,
	}, true
}

// ValidateTLE checks line lengths, line numbers, matching catalog numbers and
// the modulo-10 checksums.
func ValidateTLE(line1, line2 string) error {
	for i, line := range []string{line1, line2} {
		if len(line) != 69 {
			return fmt.Errorf("%w: line %d has %d characters, want 69", ErrInvalidTLE, i+1, len(line))
		}
		if line[0] != byte('1'+i) || line[1] != ' ' {
			return fmt.Errorf("%w: line %d must start with %q", ErrInvalidTLE, i+1, fmt.Sprintf("%d ", i+1))
		}
		if want, got := tleChecksum(line[:68]), int(line[68]-'0'); want != got {
			return fmt.Errorf("%w: line %d checksum %d, computed %d", ErrInvalidTLE, i+1, got, want)
		}
	}
	if line1[2:7] != line2[2:7] {
		return fmt.Errorf("%w: catalog numbers %q and %q differ", ErrInvalidTLE, line1[2:7], line2[2:7])
	}
	return nil
}

// tleChecksum sums the digits of s, counting '-' as 1.
func tleChecksum(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

// NewMotionModel chooses an appropriate MotionModel for the body.
func NewMotionModel(b model.Body, elements *orbit.KeplerElements, tle1, tle2 string) (MotionModel, error) {
	switch b.MotionSource {
	case model.MotionSourceKepler:
		if elements == nil {
			return nil, fmt.Errorf("body %q: kepler motion without elements", b.ID)
		}
		return NewKeplerMotionModel(*elements)
	case model.MotionSourceSpacetrack:
		return NewOrbitalModelFromTLE(tle1, tle2)
	default:
		return StaticMotionModel{At: b.Placement.Local}, nil
	}
}
