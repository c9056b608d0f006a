package geo

import (
	"context"
	"sync"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

// GatedProvider wraps another provider and holds every position answer until
// Release is called. Permission requests pass straight through.
type GatedProvider struct {
	inner Provider

	mu      sync.Mutex
	gate    chan struct{}
	waiting chan struct{}
}

// NewGatedProvider returns a closed gate in front of inner.
func NewGatedProvider(inner Provider) *GatedProvider {
	return &GatedProvider{
		inner:   inner,
		gate:    make(chan struct{}),
		waiting: make(chan struct{}, 1),
	}
}

// RequestForegroundPermission implements PermissionProvider.
func (g *GatedProvider) RequestForegroundPermission(ctx context.Context) (Permission, error) {
	return g.inner.RequestForegroundPermission(ctx)
}

// CurrentPosition blocks until Release, then delegates. It ignores
// cancellation while waiting, so the answer can land after the caller left.
func (g *GatedProvider) CurrentPosition(ctx context.Context, opts Options) (model.LocationPoint, error) {
	g.mu.Lock()
	gate := g.gate
	g.mu.Unlock()

	select {
	case g.waiting <- struct{}{}:
	default:
	}
	<-gate
	return g.inner.CurrentPosition(context.WithoutCancel(ctx), opts)
}

// Waiting is signalled when a fetch starts blocking on the gate.
func (g *GatedProvider) Waiting() <-chan struct{} {
	return g.waiting
}

// Release opens the gate for all pending and future fetches.
func (g *GatedProvider) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.gate:
	default:
		close(g.gate)
	}
}
