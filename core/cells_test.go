package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/moment"
)

type transition struct {
	id       string
	from, to model.GridCell
}

func TestWatchGridCells(t *testing.T) {
	store := kb.NewKnowledgeBase()
	sys, err := LoadSystem(store, strings.NewReader(engineManifest))
	if err != nil {
		t.Fatalf("LoadSystem: %v", err)
	}
	eng := NewEngine(store, sys, nil)

	var got []transition
	stop := WatchGridCells(store, func(id string, from, to model.GridCell) {
		got = append(got, transition{id, from, to})
	})

	epoch := moment.FromDays(51544.5)
	if _, err := eng.Step(context.Background(), epoch); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("first placements reported as transitions: %+v", got)
	}

	// A quarter year moves earth from +X to +Z, far beyond one 1G cell; the
	// sun and the static relay stay put.
	if _, err := eng.Step(context.Background(), epoch.Add(91*24*time.Hour)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(got) != 1 || got[0].id != "earth" {
		t.Fatalf("transitions = %+v, want one for earth", got)
	}
	if got[0].from.X != 150 || got[0].to == got[0].from {
		t.Fatalf("earth transition = %+v", got[0])
	}

	stop()
	if _, err := eng.Step(context.Background(), epoch); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("transition reported after stop: %+v", got)
	}
}
