// Package home implements the landing screen's two actions: finding the
// nearest ambulance on the map and raising an emergency call.
package home

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/ambulance-tracker/internal/geo"
	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/internal/navigation"
	"github.com/signalsfoundry/ambulance-tracker/internal/tracker"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

// NoticeHelpOnTheWay confirms an emergency call.
const NoticeHelpOnTheWay = "Emergency services have been notified. Help is on the way!"

// Pusher opens a route.
type Pusher interface {
	Push(ctx context.Context, route string) error
}

// Screen is the home screen. It does its own location check before either
// action; the map view resolves the position again once mounted.
type Screen struct {
	navigation.StaticScreen

	locator  tracker.Locator
	router   Pusher
	notifier tracker.Notifier
	log      logging.Logger
}

// NewScreen wires the home screen.
func NewScreen(locator tracker.Locator, router Pusher, notifier tracker.Notifier, log logging.Logger) *Screen {
	if log == nil {
		log = logging.Noop()
	}
	return &Screen{
		locator:  locator,
		router:   router,
		notifier: notifier,
		log:      log,
	}
}

// FindAmbulance checks location access and opens the map. On failure the
// user sees a notice and the error is returned.
func (s *Screen) FindAmbulance(ctx context.Context) error {
	loc, err := s.checkLocation(ctx)
	if err != nil {
		return fmt.Errorf("find ambulance: %w", err)
	}
	logging.FromContext(ctx, s.log).Info(ctx, "searching for ambulances near",
		logging.Location("location", loc.Latitude, loc.Longitude))

	if err := s.router.Push(ctx, navigation.RouteMap); err != nil {
		return fmt.Errorf("find ambulance: %w", err)
	}
	return nil
}

// CallAmbulance checks location access and confirms the emergency call. It
// returns the location the call was placed from.
func (s *Screen) CallAmbulance(ctx context.Context) (model.LocationPoint, error) {
	loc, err := s.checkLocation(ctx)
	if err != nil {
		return model.LocationPoint{}, fmt.Errorf("call ambulance: %w", err)
	}
	logging.FromContext(ctx, s.log).Info(ctx, "emergency call initiated",
		logging.Location("location", loc.Latitude, loc.Longitude))
	s.notify(ctx, NoticeHelpOnTheWay)
	return loc, nil
}

func (s *Screen) checkLocation(ctx context.Context) (model.LocationPoint, error) {
	if s.locator == nil {
		s.notify(ctx, tracker.NoticeLocationUnavailable)
		return model.LocationPoint{}, geo.ErrLocationUnavailable
	}
	loc, err := s.locator.ResolveOnce(ctx)
	switch {
	case err == nil:
		return loc, nil
	case errors.Is(err, geo.ErrPermissionDenied):
		s.notify(ctx, tracker.NoticePermissionDenied)
	default:
		s.notify(ctx, tracker.NoticeLocationUnavailable)
	}
	return model.LocationPoint{}, err
}

func (s *Screen) notify(ctx context.Context, msg string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg)
	}
}
