// ABOUTME: Great-circle distance and hail zone membership
// ABOUTME: Straight-line haversine kilometers are the only distance metric used for routing
package routes

import (
	"math"

	"github.com/harperreed/hailtrack/models"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b models.Location) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// InZone reports whether p lies inside zone. The boundary counts as inside.
func InZone(p models.Location, zone models.HailDamageZone) bool {
	return Haversine(p, zone.Center) <= zone.RadiusMeters/1000
}
