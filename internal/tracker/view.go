// Package tracker implements the live-tracking map view: a set of simulated
// ambulances orbiting anchors near the user, a one-shot location lookup that
// re-centres everything, and a teardown path that leaves no tick or late
// result able to touch the view again.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/ambulance-tracker/core"
	"github.com/signalsfoundry/ambulance-tracker/internal/geo"
	"github.com/signalsfoundry/ambulance-tracker/internal/lifecycle"
	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/model"
	"github.com/signalsfoundry/ambulance-tracker/timectrl"
)

var (
	// ErrAlreadyMounted is returned by Mount while a session is active.
	ErrAlreadyMounted = errors.New("tracking view already mounted")
	// ErrStaleViewMutation describes a callback that fired after teardown.
	// It is logged and counted, never returned.
	ErrStaleViewMutation = errors.New("mutation after view deactivation")
)

// Mutation sources used for suppressed-mutation accounting.
const (
	SourceTick  = "tick"
	SourceFetch = "fetch"
)

// Option customises a View.
type Option func(*View)

// WithSurface sets the map surface; defaults to a no-op surface.
func WithSurface(s MapSurface) Option { return func(v *View) { v.surface = s } }

// WithNavigator sets the navigation collaborator.
func WithNavigator(n Navigator) Option { return func(v *View) { v.nav = n } }

// WithNotifier sets where resolver failures are shown.
func WithNotifier(n Notifier) Option { return func(v *View) { v.notifier = n } }

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option { return func(v *View) { v.metrics = r } }

// WithTickSource replaces the wall-clock ticker.
func WithTickSource(ts timectrl.TickSource) Option { return func(v *View) { v.ticks = ts } }

// WithLogger sets the base logger.
func WithLogger(l logging.Logger) Option { return func(v *View) { v.log = l } }

// WithClock overrides the frame timestamp source.
func WithClock(now func() time.Time) Option { return func(v *View) { v.now = now } }

// View is the live-tracking map view. A View can be mounted, torn down and
// mounted again; every mount gets a fresh session with its own lifecycle
// guard, simulator and step counter.
type View struct {
	cfg      Config
	locator  Locator
	ticks    timectrl.TickSource
	surface  MapSurface
	nav      Navigator
	notifier Notifier
	metrics  Recorder
	log      logging.Logger
	now      func() time.Time

	// mu serialises every mutation: mounts, ticks, fetch completions and
	// teardown. Collaborators are called with mu held.
	mu        sync.Mutex
	sess      *session
	lastFrame model.Frame

	fetches sync.WaitGroup
}

// session is the state owned by one mount. Callbacks carry a pointer to
// their session and must find it still current and active before mutating.
type session struct {
	id       string
	ctx      context.Context
	log      logging.Logger
	guard    *lifecycle.Guard
	sim      *core.Simulator
	current  model.LocationPoint
	resolved bool
	ticking  bool
}

// NewView validates cfg and constructs an unmounted view. locator may be nil,
// in which case the view stays on its default location.
func NewView(cfg Config, locator Locator, opts ...Option) (*View, error) {
	if _, err := core.NewSimulator(cfg.Motion, cfg.Entities, cfg.DefaultLocation); err != nil {
		return nil, fmt.Errorf("tracking view: %w", err)
	}
	v := &View{
		cfg:     cfg,
		locator: locator,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.log == nil {
		v.log = logging.Noop()
	}
	if v.ticks == nil {
		v.ticks = timectrl.NewTicker(nil)
	}
	if v.surface == nil {
		v.surface = nopSurface{}
	}
	if v.nav == nil {
		v.nav = nopNavigator{}
	}
	if v.notifier == nil {
		v.notifier = logNotifier{log: v.log}
	}
	if v.metrics == nil {
		v.metrics = nopRecorder{}
	}
	return v, nil
}

// Mount activates a new session: it publishes the initial frame, starts the
// tick source and launches the one-shot location lookup.
func (v *View) Mount(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sess != nil && v.sess.guard.IsActive() {
		return ErrAlreadyMounted
	}

	sim, err := core.NewSimulator(v.cfg.Motion, v.cfg.Entities, v.cfg.DefaultLocation)
	if err != nil {
		return fmt.Errorf("mount tracking view: %w", err)
	}

	// The session outlives the caller's context; it ends on teardown only.
	ctx = logging.ContextWithSessionID(context.WithoutCancel(ctx), logging.NewSessionID())
	ctx, log := logging.WithSessionLogger(ctx, v.log)
	fetchCtx, cancelFetch := context.WithCancel(ctx)

	s := &session{
		id:      logging.SessionIDFromContext(ctx),
		ctx:     ctx,
		log:     log,
		guard:   lifecycle.New(),
		sim:     sim,
		current: v.cfg.DefaultLocation,
	}
	s.guard.Activate()
	s.guard.OnDeactivate(cancelFetch)
	s.guard.OnDeactivate(v.ticks.Stop)
	v.sess = s

	v.metrics.IncMounts()
	v.metrics.SetTrackedEntities(len(v.cfg.Entities))

	v.surface.AnimateToRegion(v.cfg.InitialRegion, 0)
	v.publishLocked(s)

	v.ticks.Start(v.cfg.TickPeriod, func() { v.tick(s) })
	s.ticking = true

	if v.locator != nil {
		v.fetches.Add(1)
		go v.resolve(fetchCtx, s)
	}

	log.Info(ctx, "tracking view mounted",
		logging.Int("entities", len(v.cfg.Entities)),
		logging.Duration("tick_period", v.cfg.TickPeriod),
		logging.Location("default_location", v.cfg.DefaultLocation.Latitude, v.cfg.DefaultLocation.Longitude),
	)
	return nil
}

// Close is the view's own close action: it tears the session down, which
// cancels the tick source and any in-flight lookup, and only then asks the
// navigator to go back. Calling Close on an inactive view does nothing.
func (v *View) Close() {
	v.mu.Lock()
	closed := v.teardownLocked(v.sess, "close")
	v.mu.Unlock()

	if closed {
		v.nav.Back()
	}
}

// Unmount tears the session down without navigating; the navigator calls it
// when the view is popped by other means.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.teardownLocked(v.sess, "unmount")
}

// Activate and Deactivate let the view sit in a navigation stack.
func (v *View) Activate(ctx context.Context) error { return v.Mount(ctx) }

// Deactivate implements the navigation screen contract.
func (v *View) Deactivate() { v.Unmount() }

// Active reports whether a session is mounted.
func (v *View) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sess != nil && v.sess.guard.IsActive()
}

// Wait blocks until every location lookup started by this view has returned
// and been applied or dropped.
func (v *View) Wait() {
	v.fetches.Wait()
}

func (v *View) teardownLocked(s *session, reason string) bool {
	if s == nil {
		return false
	}
	s.ticking = false
	if !s.guard.Deactivate() {
		return false
	}
	v.metrics.SetTrackedEntities(0)
	s.log.Info(s.ctx, "tracking view deactivated",
		logging.String("reason", reason),
		logging.Uint64("step", s.sim.Step()),
	)
	return true
}

func (v *View) tick(s *session) {
	v.mu.Lock()
	defer v.mu.Unlock()

	applied := v.sess == s && s.ticking && s.guard.Do(func() {
		s.sim.Tick()
		v.metrics.IncTicks()
		v.publishLocked(s)
	})
	if !applied {
		v.suppressLocked(s, SourceTick)
	}
}

func (v *View) resolve(ctx context.Context, s *session) {
	defer v.fetches.Done()

	loc, err := v.locator.ResolveOnce(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sess != s || !s.guard.Do(func() { v.applyResolvedLocked(s, loc, err) }) {
		v.suppressLocked(s, SourceFetch)
	}
}

func (v *View) applyResolvedLocked(s *session, loc model.LocationPoint, err error) {
	if err != nil {
		s.log.Warn(s.ctx, "continuing on default location", logging.Error(err))
		v.notifier.Notify(s.ctx, noticeFor(err))
		return
	}

	s.current = loc
	s.resolved = true
	s.sim.Reseed(loc)
	v.surface.AnimateToRegion(
		model.RegionAround(loc, v.cfg.RecenterLatitudeDelta, v.cfg.RecenterLongitudeDelta),
		v.cfg.RecenterDuration,
	)
	v.publishLocked(s)

	s.log.Info(s.ctx, "re-centred on resolved location",
		logging.Location("location", loc.Latitude, loc.Longitude))
}

func (v *View) suppressLocked(s *session, source string) {
	v.metrics.IncSuppressed(source)
	if s == nil {
		return
	}
	s.log.Debug(s.ctx, "dropped stale callback",
		logging.String("source", source),
		logging.Error(ErrStaleViewMutation),
	)
}

func (v *View) publishLocked(s *session) {
	entities := s.sim.Entities()
	frame := model.Frame{
		SessionID:    s.id,
		Step:         s.sim.Step(),
		UserLocation: s.current,
		Markers:      Markers(entities, v.cfg.MarkerTitle, v.cfg.MarkerDescription),
		Panel:        InfoPanel(entities),
		PublishedAt:  v.now(),
	}
	v.lastFrame = frame
	v.surface.Render(frame.Clone())
}

func noticeFor(err error) string {
	if errors.Is(err, geo.ErrPermissionDenied) {
		return NoticePermissionDenied
	}
	return NoticeLocationUnavailable
}
