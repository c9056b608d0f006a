package model

import "time"

// Frame is a single render of the tracking view: every marker at the
// positions computed for Step, plus the info panel text.
type Frame struct {
	SessionID    string
	Step         uint64
	UserLocation LocationPoint
	Markers      []MarkerDescriptor
	Panel        []string
	PublishedAt  time.Time
}

// Clone returns a deep copy so subscribers can hold frames past the next tick.
func (f Frame) Clone() Frame {
	out := f
	if f.Markers != nil {
		out.Markers = append([]MarkerDescriptor(nil), f.Markers...)
	}
	if f.Panel != nil {
		out.Panel = append([]string(nil), f.Panel...)
	}
	return out
}
