package tracker

import (
	"time"

	"github.com/signalsfoundry/ambulance-tracker/core"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

// Notices shown when the one-shot resolution fails.
const (
	NoticePermissionDenied    = "Permission to access location was denied"
	NoticeLocationUnavailable = "Error accessing location. Please try again."
)

// Config describes one tracking view.
type Config struct {
	Motion   core.MotionConfig
	Entities []model.TrackedEntity

	// DefaultLocation is shown, and orbited, until a position resolves.
	DefaultLocation model.LocationPoint
	// InitialRegion is the viewport at mount.
	InitialRegion model.Region
	// RecenterLatitudeDelta and RecenterLongitudeDelta are the span the
	// camera zooms to around a resolved location.
	RecenterLatitudeDelta  float64
	RecenterLongitudeDelta float64
	RecenterDuration       time.Duration

	TickPeriod time.Duration

	MarkerTitle       string // "{id}" is replaced by the entity ID
	MarkerDescription string
}

// DefaultConfig returns three ambulances around the centre of India.
func DefaultConfig() Config {
	def := model.LocationPoint{Latitude: 20.5937, Longitude: 78.9629}
	return Config{
		Motion: core.DefaultMotionConfig(),
		Entities: []model.TrackedEntity{
			{ID: 1, DistanceLabel: "2.3 km", ETALabel: "5 mins"},
			{ID: 2, DistanceLabel: "3.1 km", ETALabel: "8 mins"},
			{ID: 3, DistanceLabel: "4.5 km", ETALabel: "12 mins"},
		},
		DefaultLocation:        def,
		InitialRegion:          model.RegionAround(def, 0.0222, 0.0121),
		RecenterLatitudeDelta:  0.0222,
		RecenterLongitudeDelta: 0.0121,
		RecenterDuration:       time.Second,
		TickPeriod:             100 * time.Millisecond,
		MarkerTitle:            "Ambulance {id}",
		MarkerDescription:      "Ambulance en route",
	}
}
