package core

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/moment"
	"gonum.org/v1/gonum/spatial/r3"
)

const engineManifest = `
frame:
  cell-length: 1G
root:
  name: sun
  sidereal-day: 1d
  satellites:
    earth:
      orbit:
        epoch: 51544.5
        period: 365d 6h
        semi-major-axis: 149.6G
      satellites:
        relay:
          position: [400M, 0, 0]
`

type recordingStep struct {
	mu      sync.Mutex
	calls   int
	updated []string
	skipped []string
}

func (r *recordingStep) ObserveStep(_ time.Duration, updated, skipped []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.updated = append(r.updated, updated...)
	r.skipped = append(r.skipped, skipped...)
}

type countingGrid struct {
	ReferenceFrame
	calls atomic.Int32
}

func (g *countingGrid) TranslationToGrid(pos r3.Vec) (model.GridCell, r3.Vec) {
	g.calls.Add(1)
	return g.ReferenceFrame.TranslationToGrid(pos)
}

func newTestEngine(t *testing.T) (*Engine, *kb.KnowledgeBase) {
	t.Helper()
	store := kb.NewKnowledgeBase()
	sys, err := LoadSystem(store, strings.NewReader(engineManifest))
	if err != nil {
		t.Fatalf("LoadSystem: %v", err)
	}
	return NewEngine(store, sys, nil), store
}

func TestEngineStep_UpdatesPlacements(t *testing.T) {
	eng, store := newTestEngine(t)
	rec := &recordingStep{}
	grid := &countingGrid{ReferenceFrame: eng.System.Frame}
	eng.Metrics = rec
	eng.Grid = grid

	epoch := moment.FromDays(51544.5)
	res, err := eng.Step(context.Background(), epoch)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(res.Updated) != 3 || len(res.Skipped) != 0 {
		t.Fatalf("Step result = %+v", res)
	}
	if got := grid.calls.Load(); got != 3 {
		t.Fatalf("grid transform called %d times, want once per body", got)
	}
	if rec.calls != 1 || len(rec.updated) != 3 {
		t.Fatalf("recorder = %+v", rec)
	}

	earth, _ := store.GetBody("earth")
	if !earth.Placement.At.Equal(epoch) {
		t.Fatalf("earth placement time = %v", earth.Placement.At)
	}
	if math.Abs(earth.Placement.Local.X-149.6e9) > 1 || math.Abs(earth.Placement.Local.Z) > 1 {
		t.Fatalf("earth at epoch = %+v, want periapsis on +X", earth.Placement.Local)
	}
	if earth.Placement.Cell.X != 150 {
		t.Fatalf("earth cell = %+v, want X=150", earth.Placement.Cell)
	}
	back := eng.System.Frame.GridToTranslation(earth.Placement.Cell, earth.Placement.Offset.Vec())
	if r3.Norm(r3.Sub(back, earth.Placement.Local.Vec())) > 1e-3 {
		t.Fatalf("cell/offset %v/%v do not reconstruct %v", earth.Placement.Cell, earth.Placement.Offset, earth.Placement.Local)
	}

	// The sun spins once per day: half a day past an integral MJD is half a turn.
	sun, _ := store.GetBody("sun")
	if math.Abs(sun.Placement.Spin-math.Pi) > 1e-6 {
		t.Fatalf("sun spin = %v, want pi", sun.Placement.Spin)
	}

	abs, err := store.AbsolutePosition("relay")
	if err != nil {
		t.Fatalf("AbsolutePosition: %v", err)
	}
	if math.Abs(abs.X-150e9) > 1 {
		t.Fatalf("relay absolute X = %v, want earth + 400M", abs.X)
	}
}

func TestEngineStep_SkipsBodiesWithoutPosition(t *testing.T) {
	eng, store := newTestEngine(t)
	rec := &recordingStep{}
	eng.Metrics = rec

	epoch := moment.FromDays(51544.5)
	if _, err := eng.Step(context.Background(), epoch); err != nil {
		t.Fatalf("Step: %v", err)
	}

	// Before the epoch the Keplerian body has no position and keeps its
	// previous placement; the static bodies still advance.
	before := epoch.Add(-time.Hour)
	res, err := eng.Step(context.Background(), before)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "earth" {
		t.Fatalf("Skipped = %v, want [earth]", res.Skipped)
	}
	if strings.Join(res.Updated, ",") != "sun,relay" {
		t.Fatalf("Updated = %v", res.Updated)
	}
	earth, _ := store.GetBody("earth")
	if !earth.Placement.At.Equal(epoch) {
		t.Fatalf("skipped body placement moved to %v", earth.Placement.At)
	}
	if len(rec.skipped) != 1 {
		t.Fatalf("recorder skipped = %v", rec.skipped)
	}
}

func TestEngineStep_ListenersAndConcurrency(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.Concurrency = 1

	var got []StepResult
	eng.RegisterStepListener(func(r StepResult) { got = append(got, r) })

	for i := 0; i < 3; i++ {
		if _, err := eng.Step(context.Background(), moment.FromDays(51545+float64(i))); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if len(got) != 3 {
		t.Fatalf("listener saw %d steps, want 3", len(got))
	}
	if !got[2].At.Equal(moment.FromDays(51547)) {
		t.Fatalf("last step at %v", got[2].At)
	}
}

func TestEngineStep_CanceledContext(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.Step(ctx, moment.FromDays(51545)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Step(canceled) = %v, want context.Canceled", err)
	}
}

func TestEngineStep_MissingBody(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.System.Order = append(eng.System.Order, "ghost")
	eng.System.Models["ghost"] = StaticMotionModel{}

	if _, err := eng.Step(context.Background(), moment.FromDays(51545)); !errors.Is(err, kb.ErrBodyNotFound) {
		t.Fatalf("Step = %v, want ErrBodyNotFound", err)
	}
}
