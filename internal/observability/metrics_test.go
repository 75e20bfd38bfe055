package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestObserveStepRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPropagationCollector(reg)
	if err != nil {
		t.Fatalf("NewPropagationCollector: %v", err)
	}

	collector.ObserveStep(3*time.Millisecond, []string{"earth", "moon"}, []string{"iss"})
	collector.ObserveStep(time.Millisecond, []string{"earth"}, nil)

	if got := testutil.ToFloat64(collector.Steps); got != 2 {
		t.Fatalf("orrery_steps_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.BodyUpdates.WithLabelValues("earth")); got != 2 {
		t.Fatalf("orrery_body_updates_total{earth} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.BodySkips.WithLabelValues("iss")); got != 1 {
		t.Fatalf("orrery_body_skips_total{iss} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "orrery_step_duration_seconds", nil); count != 2 {
		t.Fatalf("orrery_step_duration_seconds sample_count = %d, want 2", count)
	}

	collector.ObserveCellTransition("earth")
	collector.ObserveCellTransition("earth")
	if got := testutil.ToFloat64(collector.CellTransitions.WithLabelValues("earth")); got != 2 {
		t.Fatalf("orrery_grid_cell_transitions_total{earth} = %v, want 2", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *PropagationCollector
	c.ObserveStep(time.Second, []string{"a"}, nil)
	c.SetBodyCount(3)
	c.SetSimulationMJD(60000)
	c.ObserveCellTransition("earth")
	if c.Gatherer() != nil {
		t.Fatalf("nil collector should have no gatherer")
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPropagationCollector(reg)
	if err != nil {
		t.Fatalf("NewPropagationCollector: %v", err)
	}
	second, err := NewPropagationCollector(reg)
	if err != nil {
		t.Fatalf("second NewPropagationCollector: %v", err)
	}
	first.Steps.Inc()
	if got := testutil.ToFloat64(second.Steps); got != 1 {
		t.Fatalf("second collector steps = %v, want the shared counter", got)
	}
}

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPropagationCollector(reg)
	if err != nil {
		t.Fatalf("NewPropagationCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}
	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "OK")); got != 1 {
		t.Fatalf("orrery_rpc_requests_total{OK} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "NotFound")); got != 1 {
		t.Fatalf("orrery_rpc_requests_total{NotFound} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "orrery_rpc_duration_seconds", map[string]string{
		"service": "Health",
		"method":  "Check",
	}); count != 2 {
		t.Fatalf("orrery_rpc_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestMetricsHandlerExposesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPropagationCollector(reg)
	if err != nil {
		t.Fatalf("NewPropagationCollector: %v", err)
	}
	collector.SetBodyCount(7)
	collector.SetSimulationMJD(60123.5)
	collector.ObserveStep(time.Millisecond, []string{"earth"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"orrery_bodies 7",
		"orrery_simulation_mjd 60123.5",
		`orrery_body_updates_total{body="earth"} 1`,
		"orrery_steps_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in /metrics output:\n%s", want, body)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in, service, method string
	}{
		{"/grpc.health.v1.Health/Check", "Health", "Check"},
		{"Svc/Do", "Svc", "Do"},
		{"", "unknown", "unknown"},
		{"/broken", "unknown", "unknown"},
	}
	for _, tt := range tests {
		service, method := SplitMethod(tt.in)
		if service != tt.service || method != tt.method {
			t.Fatalf("SplitMethod(%q) = %q, %q; want %q, %q", tt.in, service, method, tt.service, tt.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
