// Package geo resolves the user's position once per view activation and
// defines the permission/location provider contract it consumes.
package geo

import (
	"context"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

// Permission is the answer to a foreground location permission request.
type Permission int

const (
	PermissionDenied Permission = iota
	PermissionGranted
)

func (p Permission) String() string {
	if p == PermissionGranted {
		return "granted"
	}
	return "denied"
}

// Accuracy is the precision hint passed to the position provider.
type Accuracy int

const (
	AccuracyBalanced Accuracy = iota
	AccuracyHigh
)

// Options tune a single position request.
type Options struct {
	Accuracy Accuracy
}

// PermissionProvider asks the platform for foreground location access.
type PermissionProvider interface {
	RequestForegroundPermission(ctx context.Context) (Permission, error)
}

// PositionProvider fetches the device's current position.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, opts Options) (model.LocationPoint, error)
}

// Provider is the two-call contract of a platform location service.
type Provider interface {
	PermissionProvider
	PositionProvider
}
