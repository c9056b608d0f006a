package model

import "fmt"

// LocationPoint is a geographic coordinate in decimal degrees.
// It is a plain value; two points with equal fields are the same point.
type LocationPoint struct {
	Latitude  float64
	Longitude float64
}

// Offset returns p shifted by dLat/dLon degrees.
func (p LocationPoint) Offset(dLat, dLon float64) LocationPoint {
	return LocationPoint{Latitude: p.Latitude + dLat, Longitude: p.Longitude + dLon}
}

func (p LocationPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

// ReferencePoint is the anchor an entity orbits around.
type ReferencePoint struct {
	BaseLatitude  float64
	BaseLongitude float64
}

// Point converts the anchor back into a LocationPoint.
func (r ReferencePoint) Point() LocationPoint {
	return LocationPoint{Latitude: r.BaseLatitude, Longitude: r.BaseLongitude}
}
