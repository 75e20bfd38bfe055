package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/moment"
)

const tracerName = "github.com/signalsfoundry/orrery/core"

// StepRecorder receives per-step measurements, typically a Prometheus
// collector.
type StepRecorder interface {
	ObserveStep(d time.Duration, updated, skipped []string)
}

// StepResult lists which bodies received a new placement.
type StepResult struct {
	At      moment.Moment
	Updated []string
	Skipped []string
}

// Engine evaluates every body's motion model once per step and writes the
// resulting placements to the knowledge base.
type Engine struct {
	KB     *kb.KnowledgeBase
	System *System

	// Grid defaults to the system's reference frame.
	Grid GridTransform
	Log  logging.Logger
	// Metrics may be nil.
	Metrics StepRecorder
	// Concurrency bounds parallel motion evaluations; zero means unbounded.
	Concurrency int

	tracer        trace.Tracer
	stepListeners []func(StepResult)
}

// NewEngine wires an engine for a loaded system.
func NewEngine(store *kb.KnowledgeBase, sys *System, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{
		KB:     store,
		System: sys,
		Grid:   sys.Frame,
		Log:    log,
		tracer: otel.Tracer(tracerName),
	}
}

// RegisterStepListener adds a callback run after every completed step.
func (e *Engine) RegisterStepListener(fn func(StepResult)) {
	e.stepListeners = append(e.stepListeners, fn)
}

type evaluation struct {
	pos model.Motion
	ok  bool
}

// Step computes placements for now. Bodies whose model yields no position
// keep their previous placement and are reported in Skipped.
func (e *Engine) Step(ctx context.Context, now moment.Moment) (StepResult, error) {
	tracer := e.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "Engine.Step", trace.WithAttributes(
		attribute.String("orrery.moment", now.String()),
		attribute.Int("orrery.bodies", len(e.System.Order)),
	))
	defer span.End()

	start := time.Now()
	order := e.System.Order
	results := make([]evaluation, len(order))

	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i, id := range order {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			mm, ok := e.System.Models[id]
			if !ok {
				return nil
			}
			pos, ok := mm.Position(now)
			results[i] = evaluation{pos: pos, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return StepResult{}, err
	}

	res := StepResult{At: now}
	spinSeconds := now.Sub(moment.Zero())
	for i, id := range order {
		if !results[i].ok {
			res.Skipped = append(res.Skipped, id)
			e.Log.Warn(ctx, "no position for body; skipping",
				logging.String("body", id),
				logging.String("moment", now.String()),
			)
			continue
		}
		body, ok := e.KB.GetBody(id)
		if !ok {
			err := fmt.Errorf("step: %w: %q", kb.ErrBodyNotFound, id)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return StepResult{}, err
		}
		cell, offset := e.Grid.TranslationToGrid(results[i].pos.Vec())
		placement := model.Placement{
			Local:  results[i].pos,
			Cell:   cell,
			Offset: model.MotionFromVec(offset),
			Spin:   body.SpinAt(spinSeconds),
			At:     now,
		}
		if err := e.KB.UpdateBodyPlacement(id, placement); err != nil {
			return StepResult{}, fmt.Errorf("step: %w", err)
		}
		res.Updated = append(res.Updated, id)
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("orrery.updated", len(res.Updated)),
		attribute.Int("orrery.skipped", len(res.Skipped)),
	)
	if e.Metrics != nil {
		e.Metrics.ObserveStep(elapsed, res.Updated, res.Skipped)
	}
	e.Log.Debug(ctx, "step complete",
		logging.String("moment", now.String()),
		logging.Int("updated", len(res.Updated)),
		logging.Int("skipped", len(res.Skipped)),
		logging.Duration("elapsed", elapsed),
	)
	for _, fn := range e.stepListeners {
		fn(res)
	}
	return res, nil
}
