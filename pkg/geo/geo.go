// Package geo provides great-circle distance helpers on WGS-84 coordinates.
package geo

import "math"

// EarthRadiusM is the mean radius of Earth in meters
const EarthRadiusM = 6_371_000.0

// NearbyThresholdM is the distance under which a passenger counts as at the bus
const NearbyThresholdM = 100.0

// Point is a latitude/longitude pair in degrees
type Point struct {
	Lat float64
	Lng float64
}

// HaversineM returns the great-circle distance between two points in meters
func HaversineM(a, b Point) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLng*sinLng

	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// Within reports whether b lies within radiusM meters of a, and the distance
func Within(a, b Point, radiusM float64) (bool, float64) {
	d := HaversineM(a, b)
	return d <= radiusM, d
}

// RouteLengthM sums the leg distances of an ordered list of points
func RouteLengthM(points []Point) float64 {
	total := 0.0
	for i := 0; i+1 < len(points); i++ {
		total += HaversineM(points[i], points[i+1])
	}
	return total
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
