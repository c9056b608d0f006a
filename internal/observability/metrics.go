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

// TrackerCollector bundles Prometheus metrics for the tracking view and its
// gRPC surface.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	Ticks               prometheus.Counter
	ActiveTickSources   prometheus.Gauge
	TrackedEntities     prometheus.Gauge
	Mounts              prometheus.Counter
	SuppressedMutations *prometheus.CounterVec
	Resolutions         *prometheus.CounterVec
	ResolutionDurations prometheus.Histogram
	DroppedEvents       *prometheus.CounterVec
}

// NewTrackerCollector registers tracker metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_requests_total",
		Help: "Total number of handled tracker RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "rpc_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rpc_request_duration_seconds",
		Help:    "Tracker RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"service", "method"}), "rpc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_ticks_total",
		Help: "Motion ticks applied to an active tracking view.",
	}), "tracker_ticks_total")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_active_tick_sources",
		Help: "Tick sources currently running across all tickers; above one means a source outlived its view.",
	}), "tracker_active_tick_sources")
	if err != nil {
		return nil, err
	}

	entities, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_tracked_entities",
		Help: "Entities rendered by the currently mounted tracking view.",
	}), "tracker_tracked_entities")
	if err != nil {
		return nil, err
	}

	mounts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_mounts_total",
		Help: "Number of times the tracking view was mounted.",
	}), "tracker_mounts_total")
	if err != nil {
		return nil, err
	}

	suppressed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_suppressed_mutations_total",
		Help: "Callbacks that tried to mutate a view after it was deactivated, by source.",
	}, []string{"source"}), "tracker_suppressed_mutations_total")
	if err != nil {
		return nil, err
	}

	resolutions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_geolocation_resolutions_total",
		Help: "One-shot geolocation resolutions, by outcome.",
	}, []string{"outcome"}), "tracker_geolocation_resolutions_total")
	if err != nil {
		return nil, err
	}

	resolutionDur, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_geolocation_duration_seconds",
		Help:    "Time spent on permission plus position lookup.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "tracker_geolocation_duration_seconds")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_surface_dropped_events_total",
		Help: "Map events a slow subscriber missed, by event kind.",
	}, []string{"kind"}), "tracker_surface_dropped_events_total")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:            gatherer,
		RPCRequests:         requests,
		RPCDurations:        durations,
		Ticks:               ticks,
		ActiveTickSources:   active,
		TrackedEntities:     entities,
		Mounts:              mounts,
		SuppressedMutations: suppressed,
		Resolutions:         resolutions,
		ResolutionDurations: resolutionDur,
		DroppedEvents:       dropped,
	}, nil
}

// IncTicks satisfies the tracker's metrics recorder.
func (c *TrackerCollector) IncTicks() {
	if c == nil || c.Ticks == nil {
		return
	}
	c.Ticks.Inc()
}

// IncMounts satisfies the tracker's metrics recorder.
func (c *TrackerCollector) IncMounts() {
	if c == nil || c.Mounts == nil {
		return
	}
	c.Mounts.Inc()
}

// IncSuppressed counts a dropped stale mutation.
func (c *TrackerCollector) IncSuppressed(source string) {
	if c == nil || c.SuppressedMutations == nil {
		return
	}
	c.SuppressedMutations.WithLabelValues(source).Inc()
}

// SetTrackedEntities satisfies the tracker's metrics recorder.
func (c *TrackerCollector) SetTrackedEntities(n int) {
	if c == nil || c.TrackedEntities == nil {
		return
	}
	c.TrackedEntities.Set(float64(n))
}

// AddActiveTickSources satisfies timectrl.ActivityObserver.
func (c *TrackerCollector) AddActiveTickSources(delta int) {
	if c == nil || c.ActiveTickSources == nil {
		return
	}
	c.ActiveTickSources.Add(float64(delta))
}

// ObserveResolution satisfies geo.ResolutionRecorder.
func (c *TrackerCollector) ObserveResolution(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.Resolutions != nil {
		c.Resolutions.WithLabelValues(outcome).Inc()
	}
	if c.ResolutionDurations != nil {
		c.ResolutionDurations.Observe(d.Seconds())
	}
}

// IncDropped satisfies surface.DropRecorder.
func (c *TrackerCollector) IncDropped(kind string) {
	if c == nil || c.DroppedEvents == nil {
		return
	}
	c.DroppedEvents.WithLabelValues(kind).Inc()
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *TrackerCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		c.observeRPC(fullMethod, err, start)
		return resp, err
	}
}

// StreamServerInterceptor records counts and durations for streaming RPCs.
func (c *TrackerCollector) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		c.observeRPC(fullMethod, err, start)
		return err
	}
}

func (c *TrackerCollector) observeRPC(fullMethod string, err error, start time.Time) {
	if c == nil {
		return
	}
	service, method := SplitMethod(fullMethod)
	code := status.Code(err).String()

	if c.RPCRequests != nil {
		c.RPCRequests.WithLabelValues(service, method, code).Inc()
	}
	if c.RPCDurations != nil {
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components, returning "unknown"/"unknown" when parsing fails.
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

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
