package tracker

import "github.com/signalsfoundry/ambulance-tracker/model"

// Snapshot is a consistent copy of the view's state. After teardown it keeps
// describing the last session, frozen.
type Snapshot struct {
	Active       bool
	SessionID    string
	Step         uint64
	UserLocation model.LocationPoint
	Resolved     bool
	Entities     []model.TrackedEntity
	References   []model.ReferencePoint
	Frame        model.Frame
}

// Snapshot returns the current state. The zero Snapshot means the view was
// never mounted.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.sess
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Active:       s.guard.IsActive(),
		SessionID:    s.id,
		Step:         s.sim.Step(),
		UserLocation: s.current,
		Resolved:     s.resolved,
		Entities:     s.sim.Entities(),
		References:   s.sim.References(),
		Frame:        v.lastFrame.Clone(),
	}
}

// Frame returns the last published frame and whether one exists.
func (v *View) Frame() (model.Frame, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sess == nil {
		return model.Frame{}, false
	}
	return v.lastFrame.Clone(), true
}
