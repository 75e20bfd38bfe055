// Package moment provides a continuous time value counted as a Modified
// Julian Date: fractional days since 1858-11-17T00:00:00Z.
package moment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const secondsPerDay = 86400

// maxSeconds bounds the distance from the epoch, in either direction, that
// day counts and offsets may reach. It keeps every second count within int64
// after the epoch's own Unix offset is added.
const maxSeconds = 1 << 62

// MaxDays is the largest MJD day count a Moment can be decoded from.
const MaxDays = maxSeconds / secondsPerDay

var (
	// ErrBeforeEpoch is returned when encoding a moment that precedes MJD 0.
	ErrBeforeEpoch = errors.New("moment precedes the MJD epoch")
	// ErrOutOfRange is returned when a day count or offset leaves the
	// representable range.
	ErrOutOfRange = errors.New("moment outside the representable range")
)

var epoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// Moment is a UTC instant measured against the MJD epoch. The zero value
// reads as the epoch itself.
type Moment struct {
	t   time.Time
	set bool
}

func at(t time.Time) Moment { return Moment{t: t.UTC(), set: true} }

// Epoch returns the reference instant of the day count.
func Epoch() time.Time { return epoch }

// Zero returns MJD 0.
func Zero() Moment { return at(epoch) }

// Now returns the current wall-clock moment.
func Now() Moment { return at(time.Now()) }

// FromTime wraps a calendar instant. Instants before the epoch, including
// the zero time.Time, stay before it.
func FromTime(t time.Time) Moment { return at(t) }

// FromDays returns the epoch advanced by days*86400 seconds. days must be
// finite with a magnitude of at most MaxDays; ParseDays and the decoders
// check untrusted input.
func FromDays(days float64) Moment {
	return fromEpochSeconds(days * secondsPerDay)
}

func fromEpochSeconds(secs float64) Moment {
	whole, frac := math.Modf(secs)
	return at(time.Unix(epoch.Unix()+int64(whole), int64(math.Round(frac*1e9))))
}

// Days returns the fractional day count since the epoch. It reports false
// when the moment precedes the epoch.
func (m Moment) Days() (float64, bool) {
	t := m.Time()
	if t.Before(epoch) {
		return 0, false
	}
	secs := float64(t.Unix()-epoch.Unix()) + float64(t.Nanosecond())/1e9
	return secs / secondsPerDay, true
}

// Time returns the wrapped instant. The zero Moment reports the epoch.
func (m Moment) Time() time.Time {
	if !m.set {
		return epoch
	}
	return m.t
}

// SetFromTime replaces the wrapped instant.
func (m *Moment) SetFromTime(t time.Time) { *m = at(t) }

// SetFromDays replaces the wrapped instant with an MJD day count.
func (m *Moment) SetFromDays(days float64) { *m = FromDays(days) }

// Add advances the moment by d.
func (m Moment) Add(d time.Duration) Moment { return at(m.Time().Add(d)) }

// AddSeconds advances the moment by a fractional second count, which may
// exceed the range of time.Duration. It fails with ErrOutOfRange when s is
// not finite or the result lies more than MaxDays from the epoch.
func (m Moment) AddSeconds(s float64) (Moment, error) {
	target := m.Sub(Zero()) + s
	if !(math.Abs(s) <= maxSeconds && math.Abs(target) <= maxSeconds) {
		return Moment{}, fmt.Errorf("%w: %v s from %v", ErrOutOfRange, s, m)
	}
	whole, frac := math.Modf(s)
	t := m.Time()
	return at(time.Unix(t.Unix()+int64(whole), int64(t.Nanosecond())+int64(math.Round(frac*1e9)))), nil
}

// Sub returns m - o in seconds.
func (m Moment) Sub(o Moment) float64 {
	a, b := m.Time(), o.Time()
	return float64(a.Unix()-b.Unix()) + float64(a.Nanosecond()-b.Nanosecond())/1e9
}

func (m Moment) Before(o Moment) bool { return m.Time().Before(o.Time()) }
func (m Moment) After(o Moment) bool  { return m.Time().After(o.Time()) }
func (m Moment) Equal(o Moment) bool  { return m.Time().Equal(o.Time()) }

// String renders "MJD 60000.5", or "MJD N/A" before the epoch.
func (m Moment) String() string {
	days, ok := m.Days()
	if !ok {
		return "MJD N/A"
	}
	return "MJD " + strconv.FormatFloat(days, 'f', 1, 64)
}

// ParseDays parses a decimal MJD day count.
func ParseDays(s string) (Moment, error) {
	days, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Moment{}, fmt.Errorf("invalid MJD day count %q: expected days since midnight of Nov. 17, 1858", s)
	}
	return checkedFromDays(days)
}

func checkedFromDays(days float64) (Moment, error) {
	switch {
	case math.IsNaN(days) || math.IsInf(days, 0):
		return Moment{}, fmt.Errorf("invalid MJD day count %v: must be finite", days)
	case days < 0:
		return Moment{}, fmt.Errorf("invalid MJD day count %v: %w", days, ErrBeforeEpoch)
	case days > MaxDays:
		return Moment{}, fmt.Errorf("invalid MJD day count %v: %w (at most %v days)", days, ErrOutOfRange, float64(MaxDays))
	}
	return FromDays(days), nil
}

// MarshalJSON writes the day count as a JSON number.
func (m Moment) MarshalJSON() ([]byte, error) {
	days, ok := m.Days()
	if !ok {
		return nil, ErrBeforeEpoch
	}
	return json.Marshal(days)
}

// UnmarshalJSON reads a JSON number of days.
func (m *Moment) UnmarshalJSON(data []byte) error {
	var days float64
	if err := json.Unmarshal(data, &days); err != nil {
		return fmt.Errorf("invalid MJD day count %s: expected a number of days since midnight of Nov. 17, 1858", data)
	}
	parsed, err := checkedFromDays(days)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML writes the day count as a float.
func (m Moment) MarshalYAML() (any, error) {
	days, ok := m.Days()
	if !ok {
		return nil, ErrBeforeEpoch
	}
	return days, nil
}

// UnmarshalYAML reads a numeric day count.
func (m *Moment) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an MJD day count", node.Line)
	}
	if tag := node.ShortTag(); tag != "!!int" && tag != "!!float" {
		return fmt.Errorf("line %d: invalid MJD day count %q: expected a number", node.Line, node.Value)
	}
	var days float64
	if err := node.Decode(&days); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	parsed, err := checkedFromDays(days)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = parsed
	return nil
}
