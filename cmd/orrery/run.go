package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/moment"
	"github.com/signalsfoundry/orrery/timectrl"
)

const healthService = "orrery.Engine"

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Propagate the system on the simulation clock",
		Long: `run loads the manifest and steps every body on the simulation clock. It
serves Prometheus metrics over HTTP and a gRPC health service. An empty
address disables the corresponding server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var lis net.Listener
			if a.cfg.GRPCAddress != "" {
				l, err := net.Listen("tcp", a.cfg.GRPCAddress)
				if err != nil {
					return fmt.Errorf("listen for gRPC on %s: %w", a.cfg.GRPCAddress, err)
				}
				lis = l
			}
			return run(cmd.Context(), a.cfg, a.log, lis)
		},
	}

	flags := cmd.Flags()
	flags.String("grpc-addr", ":50051", "TCP address the gRPC health server listens on")
	flags.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	flags.String("start", "", "simulation start as an MJD (default now)")
	flags.Duration("tick", time.Second, "simulated step per tick before scaling")
	flags.Float64("scale", 1, "simulated seconds per tick second")
	flags.String("mode", "realtime", "clock mode (realtime|accelerated)")
	flags.Duration("duration", 0, "total tick time to run; 0 runs until interrupted")
	flags.Int("concurrency", 0, "maximum parallel motion evaluations; 0 is unbounded")
	cobra.CheckErr(bindFlags(a.v, flags, map[string]string{
		"grpc_address":    "grpc-addr",
		"metrics_address": "metrics-addr",
		"sim.start":       "start",
		"sim.tick":        "tick",
		"sim.scale":       "scale",
		"sim.mode":        "mode",
		"sim.duration":    "duration",
		"sim.concurrency": "concurrency",
	}))
	return cmd
}

// run owns the engine lifecycle until ctx is done or the configured duration
// elapses. lis may be nil to skip the gRPC server; run closes it either way.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Once serving, GracefulStop owns the listener.
	var server *grpc.Server
	if lis != nil {
		defer func() {
			if server == nil {
				_ = lis.Close()
			}
		}()
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewPropagationCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	store, sys, err := a.loadSystem()
	if err != nil {
		return err
	}
	collector.SetBodyCount(store.Len())
	log.Info(ctx, "loaded system",
		logging.String("manifest", cfg.Manifest),
		logging.String("root", sys.Root),
		logging.Int("bodies", store.Len()),
	)

	engine := core.NewEngine(store, sys, log)
	engine.Metrics = collector
	engine.Concurrency = cfg.Sim.Concurrency
	engine.RegisterStepListener(func(r core.StepResult) {
		if days, ok := r.At.Days(); ok {
			collector.SetSimulationMJD(days)
		}
	})

	stopWatching := core.WatchGridCells(store, func(id string, from, to model.GridCell) {
		collector.ObserveCellTransition(id)
		log.Debug(ctx, "body changed grid cell",
			logging.String("body", id),
			logging.Any("from", from),
			logging.Any("to", to),
		)
	})
	defer stopWatching()

	start, err := cfg.Sim.start()
	if err != nil {
		return err
	}
	mode, err := cfg.Sim.mode()
	if err != nil {
		return err
	}
	clock, err := timectrl.NewTimeController(start, cfg.Sim.Tick, mode)
	if err != nil {
		return err
	}
	clock.SetScale(cfg.Sim.Scale)

	stepErr := make(chan error, 1)
	step := func(now moment.Moment) {
		if _, err := engine.Step(ctx, now); err != nil && ctx.Err() == nil {
			select {
			case stepErr <- err:
			default:
			}
		}
	}
	clock.AddListener(step)
	step(start)

	var metricsSrv *http.Server
	if cfg.MetricsAddress != "" {
		metricsSrv = serveMetrics(ctx, cfg.MetricsAddress, collector, log)
	}

	if lis != nil {
		server = newGRPCServer(collector, log)
		log.Info(ctx, "starting gRPC health server", logging.String("addr", lis.Addr().String()))
		go func() {
			if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error(ctx, "gRPC server exited", logging.Err(err))
			}
		}()
	}

	log.Info(ctx, "simulation started",
		logging.String("start", start.String()),
		logging.String("mode", mode.String()),
		logging.Duration("tick", cfg.Sim.Tick),
		logging.Float64("scale", cfg.Sim.Scale),
	)

	done := clock.Start(ctx, cfg.Sim.Duration)

	var runErr error
	select {
	case <-ctx.Done():
	case <-done:
		if runErr = clock.Err(); runErr != nil {
			log.Error(ctx, "clock stopped", logging.Err(runErr))
		}
	case runErr = <-stepErr:
		log.Error(ctx, "step failed", logging.Err(runErr))
	}
	cancel()
	<-done

	log.Info(context.Background(), "shutting down",
		logging.Int("steps", int(clock.Steps())),
		logging.String("at", clock.Now().String()),
	)
	if server != nil {
		server.GracefulStop()
	}
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

func newGRPCServer(collector *observability.PropagationCollector, log logging.Logger) *grpc.Server {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			observability.RequestIDUnaryServerInterceptor(log),
			collector.UnaryServerInterceptor(),
		),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)
	return server
}

func serveMetrics(ctx context.Context, addr string, collector *observability.PropagationCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(ctx, "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
