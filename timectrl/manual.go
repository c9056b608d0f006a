package timectrl

import (
	"sync"
	"time"
)

// ManualTicker is a TickSource advanced explicitly with Fire. It records the
// highest number of sources that were ever registered at once, which must
// never exceed one.
type ManualTicker struct {
	mu        sync.Mutex
	fn        func()
	period    time.Duration
	running   int
	maxActive int
	starts    int
	stops     int
}

// NewManualTicker returns an idle manual source.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{}
}

// Start implements TickSource.
func (m *ManualTicker) Start(period time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fn != nil {
		m.running--
		m.stops++
	}
	m.fn = fn
	m.period = period
	m.running++
	m.starts++
	if m.running > m.maxActive {
		m.maxActive = m.running
	}
}

// Stop implements TickSource.
func (m *ManualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fn == nil {
		return
	}
	m.fn = nil
	m.running--
	m.stops++
}

// Active implements TickSource.
func (m *ManualTicker) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Fire delivers n ticks synchronously. It reports false if no source was
// registered when a tick was due.
func (m *ManualTicker) Fire(n int) bool {
	for i := 0; i < n; i++ {
		m.mu.Lock()
		fn := m.fn
		m.mu.Unlock()
		if fn == nil {
			return false
		}
		fn()
	}
	return true
}

// Callback returns the registered callback, or nil. Tests use it to hold on
// to a tick that is about to fire after teardown.
func (m *ManualTicker) Callback() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn
}

// Period returns the period passed to the last Start.
func (m *ManualTicker) Period() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.period
}

// MaxActive returns the highest number of concurrently registered sources.
func (m *ManualTicker) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// Counts returns how many times Start and Stop took effect.
func (m *ManualTicker) Counts() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}
