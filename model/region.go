package model

// Region is a map viewport: a centre plus the latitude/longitude span
// visible on screen, in degrees.
type Region struct {
	Center         LocationPoint
	LatitudeDelta  float64
	LongitudeDelta float64
}

// RegionAround centres a viewport of the given span on p.
func RegionAround(p LocationPoint, latDelta, lonDelta float64) Region {
	return Region{
		Center:         p,
		LatitudeDelta:  latDelta,
		LongitudeDelta: lonDelta,
	}
}
