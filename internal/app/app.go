// Package app assembles the tracker: navigation stack, home screen, map
// view and the hub remote clients watch.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/ambulance-tracker/internal/home"
	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/internal/navigation"
	"github.com/signalsfoundry/ambulance-tracker/internal/surface"
	"github.com/signalsfoundry/ambulance-tracker/internal/tracker"
	"github.com/signalsfoundry/ambulance-tracker/model"
	"github.com/signalsfoundry/ambulance-tracker/timectrl"
)

// ErrMapNotOpen is returned by CloseMap when the map view is not on top.
var ErrMapNotOpen = errors.New("map view is not open")

// Options configures New.
type Options struct {
	Tracker tracker.Config
	// Locator serves the home screen's check and, unless MapLocator is
	// set, the map's lookup.
	Locator    tracker.Locator
	MapLocator tracker.Locator
	TickSource timectrl.TickSource
	Recorder   tracker.Recorder
	Drops      surface.DropRecorder
	Log        logging.Logger
	// Surfaces receive frames alongside the hub.
	Surfaces []tracker.MapSurface
}

// App is the running tracker.
type App struct {
	Router *navigation.Router
	Home   *home.Screen
	View   *tracker.View
	Hub    *surface.Hub

	log logging.Logger
}

// New wires every component; nothing is shown until Start.
func New(opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		log = logging.Noop()
	}

	hubOpts := []surface.HubOption{surface.WithHubLogger(log.With(logging.String("component", "hub")))}
	if opts.Drops != nil {
		hubOpts = append(hubOpts, surface.WithDropRecorder(opts.Drops))
	}
	hub := surface.NewHub(hubOpts...)

	router := navigation.NewRouter(
		navigation.WithLogger(log.With(logging.String("component", "router"))),
		navigation.WithObserver(hub.RouteChanged),
	)

	surfaces := append(tracker.Surfaces{hub}, opts.Surfaces...)
	viewOpts := []tracker.Option{
		tracker.WithSurface(surfaces),
		tracker.WithNavigator(router),
		tracker.WithNotifier(hub),
		tracker.WithLogger(log.With(logging.String("component", "tracker"))),
	}
	if opts.TickSource != nil {
		viewOpts = append(viewOpts, tracker.WithTickSource(opts.TickSource))
	}
	if opts.Recorder != nil {
		viewOpts = append(viewOpts, tracker.WithRecorder(opts.Recorder))
	}
	mapLocator := opts.MapLocator
	if mapLocator == nil {
		mapLocator = opts.Locator
	}
	view, err := tracker.NewView(opts.Tracker, mapLocator, viewOpts...)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	homeScreen := home.NewScreen(opts.Locator, router, hub, log.With(logging.String("component", "home")))

	router.Register(navigation.RouteHome, func() navigation.Screen { return homeScreen })
	router.Register(navigation.RouteAccount, func() navigation.Screen { return navigation.StaticScreen{} })
	router.Register(navigation.RouteMap, func() navigation.Screen { return view })

	return &App{
		Router: router,
		Home:   homeScreen,
		View:   view,
		Hub:    hub,
		log:    log,
	}, nil
}

// Start shows the home screen.
func (a *App) Start(ctx context.Context) error {
	return a.Router.Start(ctx)
}

// FindAmbulance runs the home screen action that opens the map.
func (a *App) FindAmbulance(ctx context.Context) error {
	return a.Home.FindAmbulance(ctx)
}

// CallAmbulance runs the home screen's emergency call.
func (a *App) CallAmbulance(ctx context.Context) (model.LocationPoint, error) {
	return a.Home.CallAmbulance(ctx)
}

// CloseMap presses the map view's close button.
func (a *App) CloseMap(ctx context.Context) error {
	if a.Router.Current() != navigation.RouteMap || !a.View.Active() {
		return ErrMapNotOpen
	}
	logging.FromContext(ctx, a.log).Info(ctx, "closing map view")
	a.View.Close()
	return nil
}

// Back pops the top screen.
func (a *App) Back(context.Context) {
	a.Router.Back()
}

// Frame returns the last frame the map view published.
func (a *App) Frame() (model.Frame, bool) {
	return a.View.Frame()
}

// Route returns the route on top of the navigation stack.
func (a *App) Route() string {
	return a.Router.Current()
}

// Shutdown tears the map view down and waits for its lookup to finish.
func (a *App) Shutdown() {
	a.View.Unmount()
	a.View.Wait()
}
