// Package navigation keeps the stack of screens the user moves through.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
)

// Route names used by the tracker app.
const (
	RouteHome    = "/"
	RouteAccount = "/account"
	RouteMap     = "/map"
)

var (
	// ErrUnknownRoute is returned by Push for a route with no registered screen.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrAlreadyShown is returned by Push when route is already on top. A
	// screen that closed itself but has not been popped yet stays on top
	// until its Back lands, so it cannot be stacked twice.
	ErrAlreadyShown = errors.New("route already on top")
)

// Screen is anything the router can show. Activate is called when the
// screen is pushed, Deactivate when it is popped.
type Screen interface {
	Activate(ctx context.Context) error
	Deactivate()
}

// Factory returns the screen for a route. It may return the same instance
// every time.
type Factory func() Screen

// StaticScreen is a screen with no behaviour.
type StaticScreen struct{}

// Activate implements Screen.
func (StaticScreen) Activate(context.Context) error { return nil }

// Deactivate implements Screen.
func (StaticScreen) Deactivate() {}

type entry struct {
	route  string
	screen Screen
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithLogger sets the router logger.
func WithLogger(l logging.Logger) RouterOption {
	return func(r *Router) { r.log = l }
}

// WithObserver registers fn to be called with the current route after every
// successful Push or Back.
func WithObserver(fn func(route string)) RouterOption {
	return func(r *Router) { r.observer = fn }
}

// Router is a stack of screens. The root entry is never popped.
type Router struct {
	mu       sync.Mutex
	routes   map[string]Factory
	stack    []entry
	log      logging.Logger
	observer func(string)
}

// NewRouter returns a router whose stack holds only the root route. The
// root screen is not activated until Start.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{routes: make(map[string]Factory)}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.log == nil {
		r.log = logging.Noop()
	}
	return r
}

// Register binds a factory to route, replacing any previous binding.
func (r *Router) Register(route string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route] = f
}

// Start pushes the root route onto an empty stack.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	started := len(r.stack) > 0
	r.mu.Unlock()
	if started {
		return nil
	}
	return r.Push(ctx, RouteHome)
}

// Push activates the screen for route and puts it on top of the stack. A
// screen that fails to activate is not pushed.
func (r *Router) Push(ctx context.Context, route string) error {
	r.mu.Lock()
	f, ok := r.routes[route]
	onTop := len(r.stack) > 0 && r.stack[len(r.stack)-1].route == route
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("push %q: %w", route, ErrUnknownRoute)
	}
	if onTop {
		return fmt.Errorf("push %q: %w", route, ErrAlreadyShown)
	}

	screen := f()
	if err := screen.Activate(ctx); err != nil {
		return fmt.Errorf("push %q: %w", route, err)
	}

	r.mu.Lock()
	r.stack = append(r.stack, entry{route: route, screen: screen})
	depth := len(r.stack)
	r.mu.Unlock()

	r.log.Info(ctx, "navigated", logging.String("route", route), logging.Int("depth", depth))
	r.notify(route)
	return nil
}

// Back pops and deactivates the top screen. It does nothing when only the
// root is left.
func (r *Router) Back() {
	r.mu.Lock()
	if len(r.stack) <= 1 {
		r.mu.Unlock()
		return
	}
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	current := r.stack[len(r.stack)-1].route
	r.mu.Unlock()

	top.screen.Deactivate()
	r.log.Info(context.Background(), "navigated back",
		logging.String("from", top.route),
		logging.String("route", current),
	)
	r.notify(current)
}

// Current returns the route on top of the stack, or "" before Start.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return ""
	}
	return r.stack[len(r.stack)-1].route
}

// Routes returns the stack from root to top.
func (r *Router) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.stack))
	for i, e := range r.stack {
		out[i] = e.route
	}
	return out
}

func (r *Router) notify(route string) {
	if r.observer != nil {
		r.observer(route)
	}
}
