package core

import "github.com/signalsfoundry/ambulance-tracker/model"

// ReferencePoints derives n anchors from the user location. Entity i sits
// (i+1)*offset degrees north-east of loc.
func ReferencePoints(loc model.LocationPoint, n int, offset float64) []model.ReferencePoint {
	if n <= 0 {
		return nil
	}
	refs := make([]model.ReferencePoint, n)
	for i := range refs {
		d := float64(i+1) * offset
		p := loc.Offset(d, d)
		refs[i] = model.ReferencePoint{BaseLatitude: p.Latitude, BaseLongitude: p.Longitude}
	}
	return refs
}
