package geo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/model"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingRecorder) ObserveResolution(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

type permissionErrProvider struct{ *StaticProvider }

func (permissionErrProvider) RequestForegroundPermission(context.Context) (Permission, error) {
	return PermissionDenied, errors.New("platform exploded")
}

func TestResolveOnce(t *testing.T) {
	bangalore := model.LocationPoint{Latitude: 12.97, Longitude: 77.59}

	tests := []struct {
		name     string
		provider Provider
		opts     []ResolverOption
		want     model.LocationPoint
		wantErr  error
		outcome  string
	}{
		{
			name:     "granted",
			provider: &StaticProvider{Permission: PermissionGranted, Location: bangalore},
			want:     bangalore,
			outcome:  OutcomeGranted,
		},
		{
			name:     "denied",
			provider: &StaticProvider{Permission: PermissionDenied, Location: bangalore},
			wantErr:  ErrPermissionDenied,
			outcome:  OutcomeDenied,
		},
		{
			name:     "provider failure",
			provider: &StaticProvider{Permission: PermissionGranted, Fail: true},
			wantErr:  ErrLocationUnavailable,
			outcome:  OutcomeUnavailable,
		},
		{
			name:     "permission request error",
			provider: permissionErrProvider{&StaticProvider{}},
			wantErr:  ErrLocationUnavailable,
			outcome:  OutcomeUnavailable,
		},
		{
			name:     "fetch timeout",
			provider: &StaticProvider{Permission: PermissionGranted, Location: bangalore, Latency: time.Second},
			opts:     []ResolverOption{WithTimeout(10 * time.Millisecond)},
			wantErr:  ErrLocationUnavailable,
			outcome:  OutcomeUnavailable,
		},
		{
			name:     "nil provider",
			provider: nil,
			wantErr:  ErrLocationUnavailable,
			outcome:  OutcomeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingRecorder{}
			opts := append([]ResolverOption{WithRecorder(rec)}, tt.opts...)
			r := NewResolver(tt.provider, logging.Noop(), opts...)

			got, err := r.ResolveOnce(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveOnce error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ResolveOnce error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveOnce = %v, want %v", got, tt.want)
			}
			if len(rec.outcomes) != 1 || rec.outcomes[0] != tt.outcome {
				t.Fatalf("recorded outcomes = %v, want [%s]", rec.outcomes, tt.outcome)
			}
		})
	}
}

func TestResolveOnceRecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	r := NewResolver(&StaticProvider{Permission: PermissionDenied}, nil)
	if _, err := r.ResolveOnce(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("ResolveOnce error = %v, want ErrPermissionDenied", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "geo/ResolveOnce" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	found := false
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "geo.outcome" && kv.Value.AsString() == OutcomeDenied {
			found = true
		}
	}
	if !found {
		t.Fatalf("span missing geo.outcome=denied: %v", spans[0].Attributes())
	}
}

func TestResolveOnceRequestsHighAccuracy(t *testing.T) {
	p := &accuracySpy{}
	if _, err := NewResolver(p, nil).ResolveOnce(context.Background()); err != nil {
		t.Fatalf("ResolveOnce: %v", err)
	}
	if p.got != AccuracyHigh {
		t.Fatalf("accuracy = %v, want AccuracyHigh", p.got)
	}
}

type accuracySpy struct{ got Accuracy }

func (a *accuracySpy) RequestForegroundPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (a *accuracySpy) CurrentPosition(_ context.Context, opts Options) (model.LocationPoint, error) {
	a.got = opts.Accuracy
	return model.LocationPoint{}, nil
}

func TestNewProviderKinds(t *testing.T) {
	loc := model.LocationPoint{Latitude: 1, Longitude: 2}
	ctx := context.Background()

	p, err := NewProvider(ProviderStatic, loc, 0)
	if err != nil {
		t.Fatalf("NewProvider(static): %v", err)
	}
	if got, _ := p.CurrentPosition(ctx, Options{}); got != loc {
		t.Fatalf("static provider position = %v, want %v", got, loc)
	}

	p, _ = NewProvider(ProviderDenied, loc, 0)
	if perm, _ := p.RequestForegroundPermission(ctx); perm != PermissionDenied {
		t.Fatalf("denied provider permission = %v", perm)
	}

	p, _ = NewProvider(ProviderUnavailable, loc, 0)
	if _, err := p.CurrentPosition(ctx, Options{}); !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("unavailable provider error = %v", err)
	}

	if _, err := NewProvider("gps-dongle", loc, 0); err == nil {
		t.Fatalf("NewProvider(unknown) succeeded")
	}
}

func TestGatedProviderHoldsAnswer(t *testing.T) {
	loc := model.LocationPoint{Latitude: 5, Longitude: 6}
	g := NewGatedProvider(&StaticProvider{Permission: PermissionGranted, Location: loc})

	done := make(chan model.LocationPoint, 1)
	go func() {
		got, _ := g.CurrentPosition(context.Background(), Options{})
		done <- got
	}()

	<-g.Waiting()
	select {
	case <-done:
		t.Fatalf("gated fetch completed before Release")
	case <-time.After(10 * time.Millisecond):
	}

	g.Release()
	g.Release()
	if got := <-done; got != loc {
		t.Fatalf("gated fetch = %v, want %v", got, loc)
	}
}
