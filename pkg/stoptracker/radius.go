package stoptracker

import (
	"math"

	"github.com/tripflow/tripflow/pkg/tripdata"
)

const earthRadiusKm = 6371

const feetPerKilometre = 3280.84

// Fallback when a stop has no depart action to derive an arrival radius
// from.
const FallbackArrivedRadiusFeet = 200

// GeofenceShape decides whether a stop is fenced by its boundary polygon
// or by a circle around its coordinates. A polygon needs more than one
// boundary coordinate and the polygonal opt-out unset.
func GeofenceShape(boundary []tripdata.Location, polygonalOptOut bool) tripdata.GeofenceType {
	if !polygonalOptOut && len(boundary) > 1 {
		return tripdata.GeofenceTypePolygon
	}

	return tripdata.GeofenceTypeCircular
}

// DefaultArrivedRadius derives the arrival radius from the stop's depart
// action. An arrival fence is kept tighter than the matching departure
// fence. Returns ok=false when the stop has no depart action and the
// caller must fall back to FallbackArrivedRadiusFeet.
func DefaultArrivedRadius(departAction *tripdata.Action) (int, bool) {
	if departAction == nil {
		return 0, false
	}

	return int(math.Round(float64(departAction.RadiusFeet) * 0.6)), true
}

// ContainsLocation reports whether point falls inside the stop's
// geofence. Circular fences compare great-circle distance against the
// radius; polygonal fences run a point-in-polygon test over the boundary.
func ContainsLocation(point tripdata.Location, stopPoint tripdata.Location, boundary []tripdata.Location, radiusFeet float64, geofenceType tripdata.GeofenceType) bool {
	if geofenceType == tripdata.GeofenceTypePolygon {
		return pointInPolygon(point, boundary)
	}

	return DistanceFeet(point, stopPoint) < radiusFeet
}

// DistanceFeet returns the great-circle distance between two points in
// feet. The kilometre value is rounded to two decimal places before
// conversion so results line up exactly with persisted distances.
func DistanceFeet(a tripdata.Location, b tripdata.Location) float64 {
	km := haversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	km = math.Round(km*100) / 100

	return km * feetPerKilometre
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// pointInPolygon is a planar ray cast over the boundary vertices. Stop
// boundaries are small enough that a geodesic test makes no practical
// difference.
func pointInPolygon(point tripdata.Location, boundary []tripdata.Location) bool {
	if len(boundary) < 3 {
		return false
	}

	inside := false
	j := len(boundary) - 1
	for i := 0; i < len(boundary); i++ {
		yi, xi := boundary[i].Latitude, boundary[i].Longitude
		yj, xj := boundary[j].Latitude, boundary[j].Longitude

		if (yi > point.Latitude) != (yj > point.Latitude) &&
			point.Longitude < (xj-xi)*(point.Latitude-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}

	return inside
}
