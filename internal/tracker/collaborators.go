package tracker

import (
	"context"
	"time"

	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

// MapSurface draws frames and moves the camera. Implementations must not
// call back into the View synchronously.
type MapSurface interface {
	Render(frame model.Frame)
	AnimateToRegion(region model.Region, d time.Duration)
}

// Navigator returns to the previous screen.
type Navigator interface {
	Back()
}

// Notifier shows a non-blocking notice to the user.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

// Locator resolves the user's position once.
type Locator interface {
	ResolveOnce(ctx context.Context) (model.LocationPoint, error)
}

// Recorder receives view-level metrics.
type Recorder interface {
	IncTicks()
	IncMounts()
	IncSuppressed(source string)
	SetTrackedEntities(n int)
}

type nopSurface struct{}

func (nopSurface) Render(model.Frame)                          {}
func (nopSurface) AnimateToRegion(model.Region, time.Duration) {}

type nopNavigator struct{}

func (nopNavigator) Back() {}

type nopRecorder struct{}

func (nopRecorder) IncTicks()              {}
func (nopRecorder) IncMounts()             {}
func (nopRecorder) IncSuppressed(string)   {}
func (nopRecorder) SetTrackedEntities(int) {}

// logNotifier writes notices to the log when nothing else displays them.
type logNotifier struct {
	log logging.Logger
}

func (n logNotifier) Notify(ctx context.Context, msg string) {
	logging.FromContext(ctx, n.log).Info(ctx, "notice", logging.String("message", msg))
}

// Surfaces fans frames and camera moves out to several surfaces in order.
type Surfaces []MapSurface

// Render implements MapSurface.
func (s Surfaces) Render(frame model.Frame) {
	for _, surface := range s {
		if surface != nil {
			surface.Render(frame)
		}
	}
}

// AnimateToRegion implements MapSurface.
func (s Surfaces) AnimateToRegion(region model.Region, d time.Duration) {
	for _, surface := range s {
		if surface != nil {
			surface.AnimateToRegion(region, d)
		}
	}
}
