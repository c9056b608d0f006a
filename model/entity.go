package model

// TrackedEntity is one simulated ambulance. Only Position changes after
// creation; the labels are fixed placeholders.
type TrackedEntity struct {
	ID            int
	Position      LocationPoint
	DistanceLabel string
	ETALabel      string
}

// MarkerDescriptor is what a map surface needs to draw one marker.
type MarkerDescriptor struct {
	ID          int
	Coordinate  LocationPoint
	Title       string
	Description string
}
