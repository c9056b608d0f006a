package timectrl

import (
	"sync"
	"time"
)

// TickSource delivers a callback on a fixed period. Implementations keep at
// most one source running: Start cancels whatever was running before.
type TickSource interface {
	// Start begins calling fn every period, replacing any running source.
	Start(period time.Duration, fn func())
	// Stop cancels the running source. It is a no-op when nothing runs.
	// Once Stop returns no new callback is delivered.
	Stop()
	// Active reports whether a source is currently registered.
	Active() bool
}

// ActivityObserver counts running tick sources. Several tickers may share
// one observer, so it receives deltas: +1 when a source starts and -1 when
// a running source is stopped or replaced.
type ActivityObserver interface {
	AddActiveTickSources(delta int)
}

// Ticker is a wall-clock TickSource backed by time.Ticker.
type Ticker struct {
	mu       sync.Mutex
	stop     chan struct{}
	observer ActivityObserver
}

// NewTicker constructs an idle ticker. observer may be nil.
func NewTicker(observer ActivityObserver) *Ticker {
	return &Ticker{observer: observer}
}

// Start implements TickSource.
func (t *Ticker) Start(period time.Duration, fn func()) {
	if period <= 0 {
		period = 100 * time.Millisecond
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	stop := make(chan struct{})
	t.stop = stop
	t.report(1)

	go run(stop, period, fn)
}

func run(stop <-chan struct{}, period time.Duration, fn func()) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Stop may have raced with the tick.
			select {
			case <-stop:
				return
			default:
			}
			if fn != nil {
				fn()
			}
		}
	}
}

// Stop implements TickSource.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Ticker) stopLocked() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	t.report(-1)
}

// Active implements TickSource.
func (t *Ticker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Ticker) report(delta int) {
	if t.observer != nil {
		t.observer.AddActiveTickSources(delta)
	}
}
