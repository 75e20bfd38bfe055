package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// PropagationCollector bundles Prometheus metrics for the propagation engine
// and the gRPC surface, and exposes them over HTTP.
type PropagationCollector struct {
	gatherer prometheus.Gatherer

	Steps         prometheus.Counter
	StepDurations prometheus.Histogram
	BodyUpdates   *prometheus.CounterVec
	BodySkips     *prometheus.CounterVec
	Bodies        prometheus.Gauge
	SimulationMJD prometheus.Gauge
	// CellTransitions counts grid cell changes per body.
	CellTransitions *prometheus.CounterVec

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewPropagationCollector registers metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil. Registering twice
// against the same registry returns the existing collectors.
func NewPropagationCollector(reg prometheus.Registerer) (*PropagationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &PropagationCollector{gatherer: gatherer}
	var err error

	if c.Steps, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orrery_steps_total",
		Help: "Total number of propagation steps.",
	})); err != nil {
		return nil, err
	}
	if c.StepDurations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_step_duration_seconds",
		Help:    "Wall-clock time spent evaluating every body for one step.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})); err != nil {
		return nil, err
	}
	if c.BodyUpdates, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_body_updates_total",
		Help: "Placements written per body.",
	}, []string{"body"})); err != nil {
		return nil, err
	}
	if c.BodySkips, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_body_skips_total",
		Help: "Steps in which a body had no position, labeled by body.",
	}, []string{"body"})); err != nil {
		return nil, err
	}
	if c.Bodies, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_bodies",
		Help: "Current number of bodies in the knowledge base.",
	})); err != nil {
		return nil, err
	}
	if c.SimulationMJD, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_simulation_mjd",
		Help: "Current simulation time as a Modified Julian Date.",
	})); err != nil {
		return nil, err
	}
	if c.CellTransitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_grid_cell_transitions_total",
		Help: "Times a body moved into a different grid cell, labeled by body.",
	}, []string{"body"})); err != nil {
		return nil, err
	}
	if c.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_rpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"})); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orrery_rpc_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"})); err != nil {
		return nil, err
	}
	return c, nil
}

// ObserveStep records one engine step.
func (c *PropagationCollector) ObserveStep(d time.Duration, updated, skipped []string) {
	if c == nil {
		return
	}
	c.Steps.Inc()
	c.StepDurations.Observe(d.Seconds())
	for _, id := range updated {
		c.BodyUpdates.WithLabelValues(id).Inc()
	}
	for _, id := range skipped {
		c.BodySkips.WithLabelValues(id).Inc()
	}
}

// SetBodyCount updates the body gauge.
func (c *PropagationCollector) SetBodyCount(n int) {
	if c == nil {
		return
	}
	c.Bodies.Set(float64(n))
}

// SetSimulationMJD updates the simulation clock gauge.
func (c *PropagationCollector) SetSimulationMJD(days float64) {
	if c == nil {
		return
	}
	c.SimulationMJD.Set(days)
}

// ObserveCellTransition counts one grid cell change for body.
func (c *PropagationCollector) ObserveCellTransition(body string) {
	if c == nil {
		return
	}
	c.CellTransitions.WithLabelValues(body).Inc()
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PropagationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *PropagationCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PropagationCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register adds c to reg, reusing an existing collector of the same type when
// one is already registered under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero C
		return zero, err
	}
	return c, nil
}
