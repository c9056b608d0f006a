package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

// ErrProviderFailure is what StaticProvider returns when configured to fail.
var ErrProviderFailure = errors.New("location provider failure")

// StaticProvider answers with a fixed permission and position, optionally
// after a delay.
type StaticProvider struct {
	Permission Permission
	Location   model.LocationPoint
	Latency    time.Duration
	// Fail makes CurrentPosition return ErrProviderFailure.
	Fail bool
}

// RequestForegroundPermission implements PermissionProvider.
func (p *StaticProvider) RequestForegroundPermission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDenied, err
	}
	return p.Permission, nil
}

// CurrentPosition implements PositionProvider.
func (p *StaticProvider) CurrentPosition(ctx context.Context, _ Options) (model.LocationPoint, error) {
	if p.Latency > 0 {
		timer := time.NewTimer(p.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.LocationPoint{}, ctx.Err()
		case <-timer.C:
		}
	}
	if p.Fail {
		return model.LocationPoint{}, ErrProviderFailure
	}
	return p.Location, nil
}

// ProviderKind names a configured provider.
type ProviderKind string

const (
	ProviderStatic      ProviderKind = "static"
	ProviderDenied      ProviderKind = "denied"
	ProviderUnavailable ProviderKind = "unavailable"
)

// NewProvider builds a provider by kind.
func NewProvider(kind ProviderKind, loc model.LocationPoint, latency time.Duration) (Provider, error) {
	switch kind {
	case ProviderStatic, "":
		return &StaticProvider{Permission: PermissionGranted, Location: loc, Latency: latency}, nil
	case ProviderDenied:
		return &StaticProvider{Permission: PermissionDenied}, nil
	case ProviderUnavailable:
		return &StaticProvider{Permission: PermissionGranted, Latency: latency, Fail: true}, nil
	default:
		return nil, fmt.Errorf("unknown location provider %q", kind)
	}
}
