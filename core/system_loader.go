package core

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/orbit"
	"github.com/signalsfoundry/orrery/units"
)

// System is what LoadSystem registered: the body order (parents first), the
// grid frame and each body's motion model.
type System struct {
	Root   string
	Order  []string
	Frame  ReferenceFrame
	Models map[string]MotionModel
}

// Orbit returns the Keplerian orbit of id, if it has one.
func (s *System) Orbit(id string) (orbit.Orbit, bool) {
	m, ok := s.Models[id].(*KeplerMotionModel)
	if !ok {
		return orbit.Orbit{}, false
	}
	return m.Orbit, true
}

// manifest shapes are unexported so the file format can evolve freely.
type systemManifest struct {
	Frame frameManifest `yaml:"frame"`
	Root  rootManifest  `yaml:"root"`
}

type frameManifest struct {
	CellLength units.SIPrefixed `yaml:"cell-length"`
}

type rootManifest struct {
	Name         string `yaml:"name"`
	bodyManifest `yaml:",inline"`
}

type bodyManifest struct {
	Radius      units.SIPrefixed        `yaml:"radius"`
	SiderealDay units.Duration          `yaml:"sidereal-day"`
	AxialTilt   float64                 `yaml:"axial-tilt"`
	Position    []units.SIPrefixed      `yaml:"position"`
	Orbit       *orbit.ElementsConfig   `yaml:"orbit"`
	TLE         []string                `yaml:"tle"`
	Satellites  map[string]bodyManifest `yaml:"satellites"`
}

// LoadSystem reads a YAML system manifest from r, registers every body in
// store and returns the motion models needed to propagate them.
func LoadSystem(store *kb.KnowledgeBase, r io.Reader) (*System, error) {
	if store == nil {
		return nil, fmt.Errorf("LoadSystem: kb is nil")
	}

	var payload systemManifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("LoadSystem: empty manifest")
		}
		return nil, fmt.Errorf("LoadSystem: decode failed: %w", err)
	}
	if payload.Root.Name == "" {
		return nil, fmt.Errorf("LoadSystem: root body has no name")
	}

	sys := &System{
		Root:   payload.Root.Name,
		Frame:  ReferenceFrame{CellLength: payload.Frame.CellLength.BaseValue()},
		Models: make(map[string]MotionModel),
	}
	if err := sys.add(store, payload.Root.Name, "", payload.Root.bodyManifest); err != nil {
		return nil, err
	}
	return sys, nil
}

func (s *System) add(store *kb.KnowledgeBase, id, parent string, m bodyManifest) error {
	b := model.Body{
		ID:            id,
		ParentID:      parent,
		Radius:        m.Radius.BaseValue(),
		RotationSpeed: model.RotationSpeedFromDay(m.SiderealDay.TotalSeconds()),
		AxialTilt:     radians(m.AxialTilt),
		MotionSource:  model.MotionSourceStatic,
	}

	var elements *orbit.KeplerElements
	switch {
	case m.Orbit != nil && len(m.TLE) > 0:
		return fmt.Errorf("LoadSystem: body %q sets both orbit and tle", id)
	case m.Orbit != nil:
		k, err := m.Orbit.Elements()
		if err != nil {
			return fmt.Errorf("LoadSystem: body %q: %w", id, err)
		}
		elements = &k
		b.MotionSource = model.MotionSourceKepler
	case len(m.TLE) > 0:
		if len(m.TLE) != 2 {
			return fmt.Errorf("LoadSystem: body %q: tle needs 2 lines, got %d", id, len(m.TLE))
		}
		b.MotionSource = model.MotionSourceSpacetrack
	}

	if m.Position != nil {
		if len(m.Position) != 3 {
			return fmt.Errorf("LoadSystem: body %q: position needs 3 components, got %d", id, len(m.Position))
		}
		b.Placement.Local = model.Motion{
			X: m.Position[0].BaseValue(),
			Y: m.Position[1].BaseValue(),
			Z: m.Position[2].BaseValue(),
		}
	}

	var tle1, tle2 string
	if b.MotionSource == model.MotionSourceSpacetrack {
		tle1, tle2 = m.TLE[0], m.TLE[1]
	}
	motion, err := NewMotionModel(b, elements, tle1, tle2)
	if err != nil {
		return fmt.Errorf("LoadSystem: body %q: %w", id, err)
	}
	if sgp4, ok := motion.(*OrbitalSGP4MotionModel); ok {
		b.NoradID = sgp4.NoradID()
	}

	if err := store.AddBody(b); err != nil {
		return fmt.Errorf("LoadSystem: %w", err)
	}
	s.Order = append(s.Order, id)
	s.Models[id] = motion

	names := make([]string, 0, len(m.Satellites))
	for name := range m.Satellites {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.add(store, name, id, m.Satellites[name]); err != nil {
			return err
		}
	}
	return nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
