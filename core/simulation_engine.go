package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

var (
	// ErrNoEntities is returned when a simulator is built without entities.
	ErrNoEntities = errors.New("simulator requires at least one entity")
	// ErrDuplicateEntityID is returned when two entities share an ID.
	ErrDuplicateEntityID = errors.New("duplicate entity id")
)

// Simulator owns the motion state of one tracking session: the step
// counter, the per-entity reference points and the entity list.
//
// Simulator is not safe for concurrent use; the owning view serialises
// every call.
type Simulator struct {
	model    *CircularMotionModel
	entities []model.TrackedEntity
	refs     []model.ReferencePoint
	step     uint64
}

// NewSimulator copies entities and seeds their reference points from seed.
func NewSimulator(cfg MotionConfig, entities []model.TrackedEntity, seed model.LocationPoint) (*Simulator, error) {
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}
	seen := make(map[int]struct{}, len(entities))
	for _, e := range entities {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateEntityID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	s := &Simulator{
		model:    NewCircularMotionModel(cfg),
		entities: append([]model.TrackedEntity(nil), entities...),
	}
	s.Reseed(seed)
	for i := range s.entities {
		s.entities[i].Position = s.refs[i].Point()
	}
	return s, nil
}

// Model exposes the motion model driving the simulator.
func (s *Simulator) Model() *CircularMotionModel {
	return s.model
}

// Reseed recomputes every reference point around loc. Positions are left
// alone until the next Tick.
func (s *Simulator) Reseed(loc model.LocationPoint) {
	s.refs = ReferencePoints(loc, len(s.entities), s.model.cfg.ReferenceOffset)
}

// Tick advances the step counter and moves every entity. It returns a copy
// of the updated list.
func (s *Simulator) Tick() []model.TrackedEntity {
	s.step++
	for i := range s.entities {
		s.entities[i].Position = s.model.Position(s.refs[i], s.step, i)
	}
	return s.Entities()
}

// Step returns the current step counter.
func (s *Simulator) Step() uint64 {
	return s.step
}

// Entities returns a copy of the entity list.
func (s *Simulator) Entities() []model.TrackedEntity {
	return append([]model.TrackedEntity(nil), s.entities...)
}

// References returns a copy of the reference points.
func (s *Simulator) References() []model.ReferencePoint {
	return append([]model.ReferencePoint(nil), s.refs...)
}
