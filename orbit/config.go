package orbit

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/signalsfoundry/orrery/moment"
	"github.com/signalsfoundry/orrery/units"
	"gopkg.in/yaml.v3"
)

// ElementsConfig is the declarative form of KeplerElements found in system
// manifests. Angles are degrees.
type ElementsConfig struct {
	Epoch                    EpochValue       `yaml:"epoch" json:"epoch"`
	Period                   units.Duration   `yaml:"period" json:"period"`
	SemiMajorAxis            units.SIPrefixed `yaml:"semi-major-axis" json:"semi-major-axis"`
	Eccentricity             float64          `yaml:"eccentricity" json:"eccentricity"`
	Inclination              float64          `yaml:"inclination" json:"inclination"`
	LongitudeOfAscendingNode float64          `yaml:"longitude-of-ascending-node" json:"longitude-of-ascending-node"`
	ArgumentOfPeriapsis      float64          `yaml:"argument-of-periapsis" json:"argument-of-periapsis"`
}

// Elements converts to radians and base units and validates the result.
func (c ElementsConfig) Elements() (KeplerElements, error) {
	k := KeplerElements{
		Epoch:                    c.Epoch.Moment,
		Period:                   c.Period.TotalSeconds(),
		SemiMajorAxis:            c.SemiMajorAxis.BaseValue(),
		Eccentricity:             c.Eccentricity,
		Inclination:              radians(c.Inclination),
		LongitudeOfAscendingNode: radians(c.LongitudeOfAscendingNode),
		ArgumentOfPeriapsis:      radians(c.ArgumentOfPeriapsis),
	}
	if err := k.Validate(); err != nil {
		return KeplerElements{}, err
	}
	return k, nil
}

// ConfigFromElements renders elements back into their declarative form. It
// fails when the period is too long to write as a duration.
func ConfigFromElements(k KeplerElements) (ElementsConfig, error) {
	period, err := units.DurationFromSeconds(k.Period)
	if err != nil {
		return ElementsConfig{}, fmt.Errorf("period: %w", err)
	}
	return ElementsConfig{
		Epoch:                    EpochValue{Moment: k.Epoch},
		Period:                   period,
		SemiMajorAxis:            units.SIFromBase(k.SemiMajorAxis),
		Eccentricity:             k.Eccentricity,
		Inclination:              degrees(k.Inclination),
		LongitudeOfAscendingNode: degrees(k.LongitudeOfAscendingNode),
		ArgumentOfPeriapsis:      degrees(k.ArgumentOfPeriapsis),
	}, nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// EpochValue decodes an epoch given either as an MJD day count or as a
// duration string measured from MJD 0, e.g. "51544d 12h".
type EpochValue struct {
	moment.Moment
}

func epochFromDuration(s string) (EpochValue, error) {
	d, err := units.ParseDuration(s)
	if err != nil {
		return EpochValue{}, fmt.Errorf("epoch: %w", err)
	}
	m, err := moment.Zero().AddSeconds(d.TotalSeconds())
	if err != nil {
		return EpochValue{}, fmt.Errorf("epoch: %w", err)
	}
	return EpochValue{Moment: m}, nil
}

func (e EpochValue) MarshalJSON() ([]byte, error) { return e.Moment.MarshalJSON() }

func (e *EpochValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := epochFromDuration(s)
		if err != nil {
			return err
		}
		*e = parsed
		return nil
	}
	return e.Moment.UnmarshalJSON(data)
}

func (e EpochValue) MarshalYAML() (any, error) { return e.Moment.MarshalYAML() }

func (e *EpochValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!str" {
		parsed, err := epochFromDuration(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*e = parsed
		return nil
	}
	return e.Moment.UnmarshalYAML(node)
}
