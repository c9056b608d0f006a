// Package surface publishes the tracking view to remote map clients.
package surface

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

// Event kinds.
const (
	KindFrame  = "frame"
	KindCamera = "camera"
	KindNotice = "notice"
	KindRoute  = "route"
)

// Event is one update pushed to subscribers. Exactly one of the payload
// fields is set, according to Kind.
type Event struct {
	Kind string
	At   time.Time

	Frame    *model.Frame
	Region   *model.Region
	Duration time.Duration
	Notice   string
	Route    string
}

// DropRecorder counts events a slow subscriber missed.
type DropRecorder interface {
	IncDropped(kind string)
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub logger.
func WithHubLogger(l logging.Logger) HubOption { return func(h *Hub) { h.log = l } }

// WithDropRecorder attaches a recorder for dropped events.
func WithDropRecorder(r DropRecorder) HubOption { return func(h *Hub) { h.drops = r } }

// WithHubClock overrides the event timestamp source.
func WithHubClock(now func() time.Time) HubOption { return func(h *Hub) { h.now = now } }

// Hub fans map updates out to any number of subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event. The hub keeps
// the last frame, camera move and route so late subscribers start from the
// current picture.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64

	lastFrame  *Event
	lastCamera *Event
	lastRoute  *Event

	log   logging.Logger
	drops DropRecorder
	now   func() time.Time
}

// NewHub returns an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs: make(map[uint64]chan Event),
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.log == nil {
		h.log = logging.Noop()
	}
	return h
}

// Render implements tracker.MapSurface.
func (h *Hub) Render(frame model.Frame) {
	f := frame.Clone()
	h.publish(Event{Kind: KindFrame, Frame: &f})
}

// AnimateToRegion implements tracker.MapSurface.
func (h *Hub) AnimateToRegion(region model.Region, d time.Duration) {
	r := region
	h.publish(Event{Kind: KindCamera, Region: &r, Duration: d})
}

// Notify implements tracker.Notifier.
func (h *Hub) Notify(ctx context.Context, msg string) {
	logging.FromContext(ctx, h.log).Info(ctx, "notice", logging.String("message", msg))
	h.publish(Event{Kind: KindNotice, Notice: msg})
}

// RouteChanged publishes the route now on top of the navigation stack.
func (h *Hub) RouteChanged(route string) {
	h.publish(Event{Kind: KindRoute, Route: route})
}

// LastFrame returns the most recent frame.
func (h *Hub) LastFrame() (model.Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastFrame == nil {
		return model.Frame{}, false
	}
	return h.lastFrame.Frame.Clone(), true
}

// Subscribe registers a subscriber with the given buffer size. The returned
// channel first receives the retained route, camera and frame events. The
// cancel function unregisters and closes the channel; it is safe to call
// more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 4 {
		buffer = 4
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	for _, e := range []*Event{h.lastRoute, h.lastCamera, h.lastFrame} {
		if e != nil {
			ch <- *e
		}
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(e Event) {
	e.At = h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.Kind {
	case KindFrame:
		h.lastFrame = &e
	case KindCamera:
		h.lastCamera = &e
	case KindRoute:
		h.lastRoute = &e
	}

	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			if h.drops != nil {
				h.drops.IncDropped(e.Kind)
			}
		}
	}
}
