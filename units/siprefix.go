package units

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SIPrefix is a decimal scale factor attached to a numeric literal.
type SIPrefix int

const (
	NoPrefix SIPrefix = iota
	Yotta
	Zetta
	Exa
	Peta
	Tera
	Giga
	Mega
	Kilo
	Hecto
	Deca
	Deci
	Centi
	Milli
	Micro
	Nano
	Pico
	Femto
	Atto
	Zepto
	Yocto
)

type prefixInfo struct {
	symbol string
	factor float64
}

var prefixes = map[SIPrefix]prefixInfo{
	Yotta: {"Y", 1e24},
	Zetta: {"Z", 1e21},
	Exa:   {"E", 1e18},
	Peta:  {"P", 1e15},
	Tera:  {"T", 1e12},
	Giga:  {"G", 1e9},
	Mega:  {"M", 1e6},
	Kilo:  {"k", 1e3},
	Hecto: {"h", 1e2},
	Deca:  {"da", 1e1},
	Deci:  {"d", 1e-1},
	Centi: {"c", 1e-2},
	Milli: {"m", 1e-3},
	Micro: {"u", 1e-6},
	Nano:  {"n", 1e-9},
	Pico:  {"p", 1e-12},
	Femto: {"f", 1e-15},
	Atto:  {"a", 1e-18},
	Zepto: {"z", 1e-21},
	Yocto: {"y", 1e-24},
}

var prefixBySymbol = func() map[string]SIPrefix {
	m := make(map[string]SIPrefix, len(prefixes))
	for p, info := range prefixes {
		m[info.symbol] = p
	}
	return m
}()

// Symbol returns the prefix symbol, or "" for NoPrefix.
func (p SIPrefix) Symbol() string { return prefixes[p].symbol }

// Factor returns the multiplier of the prefix; 1 for NoPrefix.
func (p SIPrefix) Factor() float64 {
	if info, ok := prefixes[p]; ok {
		return info.factor
	}
	return 1
}

func (p SIPrefix) String() string { return p.Symbol() }

// PrefixFromSymbol looks up a prefix by its symbol. Deca is "da"; a lone
// "d" is deci.
func PrefixFromSymbol(s string) (SIPrefix, bool) {
	p, ok := prefixBySymbol[s]
	return p, ok
}

// SIPrefixed is a magnitude with an optional SI prefix, e.g. "1.23k".
type SIPrefixed struct {
	Value  float64
	Prefix SIPrefix
}

// SIFromBase wraps a base-unit value without a prefix.
func SIFromBase(v float64) SIPrefixed { return SIPrefixed{Value: v} }

// ParseSIPrefixed parses "<float><optional prefix>".
func ParseSIPrefixed(s string) (SIPrefixed, error) {
	trimmed := strings.TrimSpace(s)
	offset := strings.Index(s, trimmed)
	if trimmed == "" {
		return SIPrefixed{}, &ParseError{Kind: KindSIPrefixed, Input: s, Start: 0, End: len(s), Err: errors.New("empty value")}
	}

	// Longest suffix first so "da" wins over "a".
	for _, n := range []int{2, 1} {
		if len(trimmed) <= n {
			continue
		}
		p, ok := prefixBySymbol[trimmed[len(trimmed)-n:]]
		if !ok {
			continue
		}
		num := trimmed[:len(trimmed)-n]
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		return SIPrefixed{Value: v, Prefix: p}, nil
	}

	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return SIPrefixed{}, &ParseError{
			Kind:  KindSIPrefixed,
			Input: s,
			Start: offset,
			End:   offset + len(trimmed),
			Err:   err,
		}
	}
	return SIPrefixed{Value: v}, nil
}

// BaseValue returns the magnitude multiplied by the prefix factor.
func (v SIPrefixed) BaseValue() float64 { return v.Value * v.Prefix.Factor() }

func (v SIPrefixed) String() string {
	return strconv.FormatFloat(v.Value, 'g', -1, 64) + v.Prefix.Symbol()
}

// MarshalText implements encoding.TextMarshaler.
func (v SIPrefixed) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *SIPrefixed) UnmarshalText(text []byte) error {
	parsed, err := ParseSIPrefixed(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (v *SIPrefixed) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = SIFromBase(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a number with optional SI prefix: %w", err)
	}
	return v.UnmarshalText([]byte(s))
}

// MarshalYAML writes the "<value><prefix>" form.
func (v SIPrefixed) MarshalYAML() (any, error) { return v.String(), nil }

// UnmarshalYAML accepts a scalar number or a prefixed string.
func (v *SIPrefixed) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number with optional SI prefix", node.Line)
	}
	return v.UnmarshalText([]byte(node.Value))
}
