package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/ambulance-tracker/internal/app"
	"github.com/signalsfoundry/ambulance-tracker/internal/config"
	"github.com/signalsfoundry/ambulance-tracker/internal/geo"
	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/internal/nbi"
	"github.com/signalsfoundry/ambulance-tracker/internal/observability"
	"github.com/signalsfoundry/ambulance-tracker/internal/surface"
	"github.com/signalsfoundry/ambulance-tracker/timectrl"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	Config   config.Config
	AutoFind bool
	// LocationGate holds every position answer until POST /location/release.
	LocationGate bool
	// Registry defaults to the global Prometheus registerer.
	Registry prometheus.Registerer
}

func main() {
	configPath := flag.String("config", "", "YAML config file (overrides "+config.EnvConfigPath+")")
	autoFind := flag.Bool("auto-find", false, "press Find Ambulance at startup, opening the map view")
	locationDelay := flag.Duration("location-delay", -1, "override the simulated location provider latency")
	locationGate := flag.Bool("location-gate", false, "hold the map view's position answer until POST /location/release")
	flag.Parse()

	if *configPath != "" {
		_ = os.Setenv(config.EnvConfigPath, *configPath)
	}
	cfg, cfgErr := config.FromEnv()

	log := logging.NewFromEnv()
	ctx := context.Background()
	if cfgErr != nil {
		log.Error(ctx, "failed to load configuration", logging.Error(cfgErr))
		os.Exit(1)
	}
	if *locationDelay >= 0 {
		cfg.Location.Latency = *locationDelay
	}

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Error(err))
		os.Exit(1)
	}
	httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.Server.HTTPAddr), logging.Error(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(stopCtx, options{Config: cfg, AutoFind: *autoFind, LocationGate: *locationGate}, log, grpcLis, httpLis); err != nil {
		log.Error(ctx, "tracker exited", logging.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then closes the map view and stops
// both servers.
func run(ctx context.Context, opts options, log logging.Logger, grpcLis, httpLis net.Listener) error {
	cfg := opts.Config

	tracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer tracing.Shutdown(ctx)

	collector, err := observability.NewTrackerCollector(opts.Registry)
	if err != nil {
		return err
	}

	provider, err := cfg.Provider()
	if err != nil {
		return err
	}
	resolverOpts := []geo.ResolverOption{
		geo.WithTimeout(cfg.Location.Timeout),
		geo.WithRecorder(collector),
	}
	geoLog := log.With(logging.String("component", "geo"))
	resolver := geo.NewResolver(provider, geoLog, resolverOpts...)

	// The gate holds only the map's lookup; the home screen check answers
	// straight away.
	var gate *geo.GatedProvider
	mapResolver := resolver
	if opts.LocationGate {
		gate = geo.NewGatedProvider(provider)
		mapResolver = geo.NewResolver(gate, geoLog, resolverOpts...)
	}

	a, err := app.New(app.Options{
		Tracker:    cfg.TrackerConfig(),
		Locator:    resolver,
		MapLocator: mapResolver,
		TickSource: timectrl.NewTicker(collector),
		Recorder:   collector,
		Drops:      collector,
		Log:        log,
	})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			nbi.RequestIDUnaryServerInterceptor(log),
			nbi.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			nbi.RequestIDStreamServerInterceptor(log),
			nbi.TracingStreamServerInterceptor(),
			collector.StreamServerInterceptor(),
		),
	)
	nbi.RegisterTrackerServiceServer(grpcServer, nbi.NewTrackerService(a, a.Hub, log))

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/ws", surface.NewWebSocketHandler(a.Hub, a, log.With(logging.String("component", "websocket"))))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(a.Route()))
	})
	if gate != nil {
		mux.HandleFunc("POST /location/release", func(w http.ResponseWriter, r *http.Request) {
			gate.Release()
			log.Info(r.Context(), "location gate released")
			w.WriteHeader(http.StatusNoContent)
		})
	}
	httpServer := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting tracker gRPC server", logging.String("addr", grpcLis.Addr().String()))
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info(gctx, "serving metrics and map stream", logging.String("addr", httpLis.Addr().String()))
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if opts.AutoFind {
		g.Go(func() error {
			if err := a.FindAmbulance(gctx); err != nil {
				log.Warn(gctx, "auto-find did not open the map", logging.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down tracker")

		if gate != nil {
			// A held lookup ignores cancellation; it must return before
			// Shutdown waits for it.
			a.View.Unmount()
			gate.Release()
		}
		a.Shutdown()
		stopGRPC(grpcServer, shutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// stopGRPC drains in-flight RPCs, cutting open streams after timeout.
func stopGRPC(srv *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		srv.Stop()
	}
}
