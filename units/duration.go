package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// Duration is a denormalized days/hours/minutes/seconds quad as written in
// manifests, e.g. "1d 2h 30m 45.5s".
type Duration struct {
	Days    uint32
	Hours   uint32
	Minutes uint32
	Seconds float64
}

var (
	errUnknownUnit   = errors.New("unknown duration unit")
	errMissingNumber = errors.New("missing number before unit")
)

// maxComponent bounds the whole days, hours and minutes of a Duration.
const maxComponent = math.MaxUint32

// DurationFromSeconds splits a scalar second count into calendar components.
// Negative and NaN inputs yield the zero duration. Counts whose whole days do
// not fit a uint32 fail with a *ParseError wrapping strconv.ErrRange.
func DurationFromSeconds(v float64) (Duration, error) {
	return durationFromSeconds(strconv.FormatFloat(v, 'g', -1, 64), v)
}

func durationFromSeconds(input string, v float64) (Duration, error) {
	if !(v > 0) {
		return Duration{}, nil
	}
	days := v / secondsPerDay
	if math.Floor(days) > maxComponent {
		return Duration{}, durationError(input, 0, len(input), strconv.ErrRange)
	}
	_, dayFrac := math.Modf(days)
	hours := dayFrac * 24
	_, hourFrac := math.Modf(hours)
	minutes := hourFrac * 60
	_, minFrac := math.Modf(minutes)
	return Duration{
		Days:    uint32(math.Floor(days)),
		Hours:   uint32(math.Floor(hours)),
		Minutes: uint32(math.Floor(minutes)),
		Seconds: minFrac * 60,
	}, nil
}

// ParseDuration parses whitespace-separated "<number><unit>" tokens. Tokens
// of the same unit are summed and a bare number counts as seconds.
// Fractional days, hours and minutes carry into the next smaller unit. A
// whole component beyond the uint32 range fails with strconv.ErrRange,
// reported against the last token of that unit.
func ParseDuration(s string) (Duration, error) {
	var days, hours, minutes, seconds float64
	var lastDays, lastHours, lastMinutes span

	for _, tok := range tokenize(s) {
		text := s[tok.start:tok.end]
		split := strings.IndexFunc(text, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.'
		})
		if split < 0 {
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return Duration{}, durationError(s, tok.start, tok.end, err)
			}
			seconds += v
			continue
		}

		if split == 0 {
			return Duration{}, durationError(s, tok.start, tok.end, errMissingNumber)
		}
		v, err := strconv.ParseFloat(text[:split], 64)
		if err != nil {
			return Duration{}, durationError(s, tok.start, tok.start+split, err)
		}
		switch text[split:] {
		case "d", "day", "days":
			days += v
			lastDays = tok
		case "h", "hour", "hours":
			hours += v
			lastHours = tok
		case "m", "min", "minute", "minutes":
			minutes += v
			lastMinutes = tok
		case "s", "sec", "second", "seconds":
			seconds += v
		default:
			return Duration{}, durationError(s, tok.start+split, tok.end, errUnknownUnit)
		}
	}

	wholeDays, dayFrac := math.Modf(days)
	hours += dayFrac * 24
	wholeHours, hourFrac := math.Modf(hours)
	minutes += hourFrac * 60
	wholeMinutes, minFrac := math.Modf(minutes)
	seconds += minFrac * 60

	for _, c := range []struct {
		whole float64
		tok   span
	}{{wholeDays, lastDays}, {wholeHours, lastHours}, {wholeMinutes, lastMinutes}} {
		if c.whole > maxComponent {
			return Duration{}, durationError(s, c.tok.start, c.tok.end, strconv.ErrRange)
		}
	}

	return Duration{
		Days:    uint32(wholeDays),
		Hours:   uint32(wholeHours),
		Minutes: uint32(wholeMinutes),
		Seconds: seconds,
	}, nil
}

type span struct{ start, end int }

func tokenize(s string) []span {
	var out []span
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, span{start, len(s)})
	}
	return out
}

func durationError(input string, start, end int, err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		err = numErr.Err
	}
	return &ParseError{Kind: KindDuration, Input: input, Start: start, End: end, Err: err}
}

// TotalSeconds returns the total length in seconds.
func (d Duration) TotalSeconds() float64 {
	return float64(d.Days)*secondsPerDay +
		float64(d.Hours)*secondsPerHour +
		float64(d.Minutes)*secondsPerMinute +
		d.Seconds
}

// IsZero reports whether every component is zero.
func (d Duration) IsZero() bool {
	return d.Days == 0 && d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0
}

// String formats the canonical "<d>d <h>h <m>m <s.s>s" form. Zero components
// are omitted and a zero duration prints as "0". Seconds keep one decimal
// place, so ParseDuration(d.String()) only restores d when d.Seconds is a
// multiple of 0.1; "45.55s" comes back as 45.5s.
func (d Duration) String() string {
	parts := make([]string, 0, 4)
	if d.Days > 0 {
		parts = append(parts, strconv.FormatUint(uint64(d.Days), 10)+"d")
	}
	if d.Hours > 0 {
		parts = append(parts, strconv.FormatUint(uint64(d.Hours), 10)+"h")
	}
	if d.Minutes > 0 {
		parts = append(parts, strconv.FormatUint(uint64(d.Minutes), 10)+"m")
	}
	if d.Seconds > 0 {
		parts = append(parts, strconv.FormatFloat(d.Seconds, 'f', 1, 64)+"s")
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " ")
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		parsed, err := durationFromSeconds(string(data), f)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a duration string or a number: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalYAML writes the canonical string form.
func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

// UnmarshalYAML accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a duration string or a number", node.Line)
	}
	if tag := node.ShortTag(); tag == "!!int" || tag == "!!float" {
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		parsed, err := durationFromSeconds(node.Value, f)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*d = parsed
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}
