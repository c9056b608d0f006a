package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/ambulance-tracker/internal/geo"

var (
	// ErrPermissionDenied means the user declined location access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrLocationUnavailable means the provider failed or timed out.
	ErrLocationUnavailable = errors.New("location unavailable")
)

// Outcome labels for resolution metrics.
const (
	OutcomeGranted     = "granted"
	OutcomeDenied      = "denied"
	OutcomeUnavailable = "unavailable"
)

// OutcomeOf maps a ResolveOnce error onto its metric label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeGranted
	case errors.Is(err, ErrPermissionDenied):
		return OutcomeDenied
	default:
		return OutcomeUnavailable
	}
}

// ResolutionRecorder receives one observation per ResolveOnce call.
type ResolutionRecorder interface {
	ObserveResolution(outcome string, d time.Duration)
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithTimeout bounds the position fetch. Zero disables the bound.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.timeout = d }
}

// WithAccuracy overrides the accuracy hint; the default is AccuracyHigh.
func WithAccuracy(a Accuracy) ResolverOption {
	return func(r *Resolver) { r.accuracy = a }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec ResolutionRecorder) ResolverOption {
	return func(r *Resolver) { r.recorder = rec }
}

// Resolver performs a single permission + position lookup.
type Resolver struct {
	provider Provider
	accuracy Accuracy
	timeout  time.Duration
	recorder ResolutionRecorder
	log      logging.Logger
}

// NewResolver wraps provider.
func NewResolver(provider Provider, log logging.Logger, opts ...ResolverOption) *Resolver {
	if log == nil {
		log = logging.Noop()
	}
	r := &Resolver{
		provider: provider,
		accuracy: AccuracyHigh,
		log:      log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// ResolveOnce asks for permission and then for one position. The returned
// error wraps ErrPermissionDenied or ErrLocationUnavailable; neither is
// retried.
func (r *Resolver) ResolveOnce(ctx context.Context) (loc model.LocationPoint, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "geo/ResolveOnce", trace.WithSpanKind(trace.SpanKindInternal))
	start := time.Now()
	defer func() {
		outcome := OutcomeOf(err)
		span.SetAttributes(attribute.String("geo.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		if r.recorder != nil {
			r.recorder.ObserveResolution(outcome, time.Since(start))
		}
	}()

	log := logging.FromContext(ctx, r.log)

	if r.provider == nil {
		return model.LocationPoint{}, fmt.Errorf("%w: no location provider configured", ErrLocationUnavailable)
	}

	perm, err := r.provider.RequestForegroundPermission(ctx)
	if err != nil {
		log.Warn(ctx, "location permission request failed", logging.Error(err))
		return model.LocationPoint{}, fmt.Errorf("%w: permission request: %v", ErrLocationUnavailable, err)
	}
	if perm != PermissionGranted {
		log.Info(ctx, "location permission denied")
		return model.LocationPoint{}, ErrPermissionDenied
	}

	fetchCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	loc, err = r.provider.CurrentPosition(fetchCtx, Options{Accuracy: r.accuracy})
	if err != nil {
		log.Warn(ctx, "current position unavailable", logging.Error(err))
		return model.LocationPoint{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	span.SetAttributes(
		attribute.Float64("geo.latitude", loc.Latitude),
		attribute.Float64("geo.longitude", loc.Longitude),
	)
	log.Debug(ctx, "resolved current position", logging.Location("location", loc.Latitude, loc.Longitude))
	return loc, nil
}
