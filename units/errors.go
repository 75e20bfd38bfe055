// Package units parses and formats the numeric literals used in system
// manifests: SI-prefixed magnitudes, compound durations and auto-scaling
// distances.
package units

import "fmt"

// ParseKind identifies which literal failed to parse.
type ParseKind int

const (
	KindDuration ParseKind = iota
	KindSIPrefixed
)

func (k ParseKind) String() string {
	switch k {
	case KindDuration:
		return "duration"
	case KindSIPrefixed:
		return "SI-prefixed value"
	default:
		return "value"
	}
}

// ParseError reports a malformed literal. Start and End are byte offsets
// into Input delimiting the offending substring.
type ParseError struct {
	Kind  ParseKind
	Input string
	Start int
	End   int
	Err   error
}

// Fragment returns the offending substring of Input.
func (e *ParseError) Fragment() string {
	if e.Start < 0 || e.End > len(e.Input) || e.Start > e.End {
		return e.Input
	}
	return e.Input[e.Start:e.End]
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("failed to parse %s string %q at [%d:%d] (%q)", e.Kind, e.Input, e.Start, e.End, e.Fragment())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
