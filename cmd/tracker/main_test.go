package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/signalsfoundry/ambulance-tracker/internal/config"
	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/internal/nbi"
	"github.com/signalsfoundry/ambulance-tracker/internal/surface"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	return lis
}

func TestTrackerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := config.Default()
	cfg.Tracker.TickPeriod = 5 * time.Millisecond

	grpcLis, httpLis := listen(t), listen(t)
	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, options{Config: cfg, AutoFind: true, Registry: prometheus.NewRegistry()}, log, grpcLis, httpLis)
	}()

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	client := nbi.NewTrackerServiceClient(conn)

	var step uint64
	for step < 3 {
		if ctx.Err() != nil {
			t.Fatalf("map view never ticked")
		}
		if resp, err := client.GetFrame(ctx, &emptypb.Empty{}); err == nil {
			f, _ := surface.FrameFromStruct(resp)
			step = f.Step
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + httpLis.Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, name := range []string{"tracker_ticks_total", "tracker_mounts_total 1", "tracker_active_tick_sources 1"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics output missing %q", name)
		}
	}

	if _, err := client.Close(ctx, &emptypb.Empty{}); err != nil {
		t.Fatalf("Close: %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}
}

type runningTracker struct {
	client   nbi.TrackerServiceClient
	httpAddr string
	cancel   context.CancelFunc
	errCh    chan error
}

func startTracker(t *testing.T, opts options) *runningTracker {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	grpcLis, httpLis := listen(t), listen(t)
	log := logging.New(logging.Config{Level: "warn", Format: "text"})
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	rt := &runningTracker{httpAddr: httpLis.Addr().String(), cancel: cancel, errCh: make(chan error, 1)}
	go func() { rt.errCh <- run(ctx, opts, log, grpcLis, httpLis) }()

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	rt.client = nbi.NewTrackerServiceClient(conn)
	return rt
}

// waitFrame polls GetFrame until ok accepts a frame.
func (rt *runningTracker) waitFrame(t *testing.T, what string, ok func(model.Frame) bool) model.Frame {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err := rt.client.GetFrame(context.Background(), &emptypb.Empty{}); err == nil {
			if f, err := surface.FrameFromStruct(resp); err == nil && ok(f) {
				return f
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return model.Frame{}
}

func (rt *runningTracker) stop(t *testing.T) {
	t.Helper()
	rt.cancel()
	select {
	case err := <-rt.errCh:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}
}

func TestLocationGateHoldsMapLookupUntilReleased(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.TickPeriod = 5 * time.Millisecond
	rt := startTracker(t, options{Config: cfg, AutoFind: true, LocationGate: true})
	defer rt.stop(t)

	defaultLoc := cfg.TrackerConfig().DefaultLocation
	held := rt.waitFrame(t, "map ticking on the default location", func(f model.Frame) bool { return f.Step >= 3 })
	if held.UserLocation != defaultLoc {
		t.Fatalf("user location = %v before release, want default %v", held.UserLocation, defaultLoc)
	}

	resp, err := http.Post("http://"+rt.httpAddr+"/location/release", "", nil)
	if err != nil {
		t.Fatalf("POST /location/release: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("release status = %d", resp.StatusCode)
	}

	want := model.LocationPoint{Latitude: cfg.Location.Position.Latitude, Longitude: cfg.Location.Position.Longitude}
	rt.waitFrame(t, "re-centre on the released location", func(f model.Frame) bool { return f.UserLocation == want })
}

func TestShutdownDoesNotWaitOnHeldLookup(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.TickPeriod = 5 * time.Millisecond
	rt := startTracker(t, options{Config: cfg, AutoFind: true, LocationGate: true})

	rt.waitFrame(t, "map open", func(f model.Frame) bool { return f.Step >= 1 })
	rt.stop(t)
}

func TestReleaseRouteExistsOnlyWithGate(t *testing.T) {
	cfg := config.Default()
	rt := startTracker(t, options{Config: cfg})
	defer rt.stop(t)

	resp, err := http.Post("http://"+rt.httpAddr+"/location/release", "", nil)
	if err != nil {
		t.Fatalf("POST /location/release: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("release status without gate = %d, want 404", resp.StatusCode)
	}
}
