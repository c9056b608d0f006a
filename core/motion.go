package core

import (
	"math"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

// MotionConfig holds the constants of the circular motion pattern.
type MotionConfig struct {
	// BaseRadius is the orbit radius of the first entity, in degrees.
	BaseRadius float64
	// RadiusStep is added per entity index so markers orbit at distinct radii.
	RadiusStep float64
	// PhaseOffsetDegrees separates consecutive entities on their circles.
	PhaseOffsetDegrees float64
	// ReferenceOffset shifts entity i's anchor by (i+1)*ReferenceOffset
	// on both axes away from the user location.
	ReferenceOffset float64
}

// DefaultMotionConfig returns the pattern used by the tracking view.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		BaseRadius:         0.002,
		RadiusStep:         0.001,
		PhaseOffsetDegrees: 60,
		ReferenceOffset:    0.01,
	}
}

// MotionModel computes an entity position from a step counter.
type MotionModel interface {
	Position(ref model.ReferencePoint, step uint64, index int) model.LocationPoint
}

// CircularMotionModel places entity i on a circle around its reference point.
type CircularMotionModel struct {
	cfg MotionConfig
}

// NewCircularMotionModel constructs a circular model.
func NewCircularMotionModel(cfg MotionConfig) *CircularMotionModel {
	return &CircularMotionModel{cfg: cfg}
}

// Radius returns the orbit radius for the entity at index.
func (m *CircularMotionModel) Radius(index int) float64 {
	return m.cfg.BaseRadius + float64(index)*m.cfg.RadiusStep
}

// AngleDegrees returns the angular position of entity index at step.
func (m *CircularMotionModel) AngleDegrees(step uint64, index int) float64 {
	return float64(step) + float64(index)*m.cfg.PhaseOffsetDegrees
}

// AngleRadians converts the step-derived angle the way the map animation
// has always done it: deg * 2π / 180, so one step advances two degrees
// of real rotation.
func AngleRadians(deg float64) float64 {
	return deg * 2 * math.Pi / 180
}

// Position implements MotionModel.
func (m *CircularMotionModel) Position(ref model.ReferencePoint, step uint64, index int) model.LocationPoint {
	r := m.Radius(index)
	a := AngleRadians(m.AngleDegrees(step, index))
	return model.LocationPoint{
		Latitude:  ref.BaseLatitude + r*math.Sin(a),
		Longitude: ref.BaseLongitude + r*math.Cos(a),
	}
}
