// Package lifecycle provides the activity token shared by every task that
// may mutate a view: the token flips on once and off once, and nothing may
// commit state after it is off.
package lifecycle

import "sync"

// State is the position of a Guard in its one-way lifecycle.
type State int

const (
	// Pending means the guard has not been activated yet.
	Pending State = iota
	// Active means the owning view is mounted.
	Active
	// Done means the guard was deactivated and can never become active again.
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Guard is a one-shot activity flag with deactivation hooks.
type Guard struct {
	mu    sync.Mutex
	state State
	hooks []func()
}

// New returns a pending guard.
func New() *Guard {
	return &Guard{}
}

// Activate moves the guard from Pending to Active. It reports false if the
// guard was activated before.
func (g *Guard) Activate() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Pending {
		return false
	}
	g.state = Active
	return true
}

// IsActive reports whether mutations are currently allowed.
func (g *Guard) IsActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == Active
}

// State returns the current lifecycle state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// OnDeactivate registers fn to run when the guard is deactivated. Hooks run
// in reverse registration order. Registering on a guard that is already done
// runs fn immediately.
func (g *Guard) OnDeactivate(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	if g.state == Done {
		g.mu.Unlock()
		fn()
		return
	}
	g.hooks = append(g.hooks, fn)
	g.mu.Unlock()
}

// Deactivate moves the guard to Done and runs the hooks. Only the first call
// does anything; it reports whether this call performed the transition.
// A guard that was never activated is also moved to Done.
func (g *Guard) Deactivate() bool {
	g.mu.Lock()
	if g.state == Done {
		g.mu.Unlock()
		return false
	}
	g.state = Done
	hooks := g.hooks
	g.hooks = nil
	g.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	return true
}

// Do runs fn only while the guard is active and reports whether it ran.
// The guard stays locked for the duration of fn, so a concurrent Deactivate
// waits for fn to finish. fn must not call back into the guard.
func (g *Guard) Do(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Active {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}
