package units

import (
	"strconv"
)

// DistanceUnit is a display unit for lengths.
type DistanceUnit int

const (
	Meters DistanceUnit = iota
	Kilometers
	AstronomicalUnits
	LightYears
	Parsecs
)

// unitsDescending lists units from largest to smallest factor.
var unitsDescending = [...]DistanceUnit{Parsecs, LightYears, AstronomicalUnits, Kilometers, Meters}

// Factor returns the number of meters in one unit.
func (u DistanceUnit) Factor() float64 {
	switch u {
	case Kilometers:
		return 1000
	case AstronomicalUnits:
		return 149_597_870_700
	case LightYears:
		return 9_460_730_472_580_800
	case Parsecs:
		return 308_567_758_149_136_730
	default:
		return 1
	}
}

func (u DistanceUnit) String() string {
	switch u {
	case Kilometers:
		return "km"
	case AstronomicalUnits:
		return "AU"
	case LightYears:
		return "ly"
	case Parsecs:
		return "pc"
	default:
		return "m"
	}
}

// unitFor picks the largest unit whose factor is below twice the value.
func unitFor(meters float64) DistanceUnit {
	for _, u := range unitsDescending {
		if meters > u.Factor()/2 {
			return u
		}
	}
	return Meters
}

// Distance is a length expressed in an automatically chosen display unit.
type Distance struct {
	Value float64
	Unit  DistanceUnit
}

// DistanceFromMeters selects a display unit for a base value in meters.
func DistanceFromMeters(m float64) Distance {
	u := unitFor(m)
	return Distance{Value: m / u.Factor(), Unit: u}
}

// DistanceFromSI converts an SI-prefixed length in meters.
func DistanceFromSI(v SIPrefixed) Distance { return DistanceFromMeters(v.BaseValue()) }

// Meters returns the base value.
func (d Distance) Meters() float64 { return d.Value * d.Unit.Factor() }

// Renormalize re-selects the display unit for the current base value.
func (d Distance) Renormalize() Distance { return DistanceFromMeters(d.Meters()) }

// Add sums two distances, keeping the receiver's unit.
func (d Distance) Add(o Distance) Distance {
	return Distance{Value: d.Value + o.Meters()/d.Unit.Factor(), Unit: d.Unit}
}

// Scale multiplies the distance, keeping its unit.
func (d Distance) Scale(f float64) Distance {
	return Distance{Value: d.Value * f, Unit: d.Unit}
}

// Equal compares base values.
func (d Distance) Equal(o Distance) bool { return d.Meters() == o.Meters() }

func (d Distance) String() string {
	return strconv.FormatFloat(d.Value, 'g', -1, 64) + " " + d.Unit.String()
}
