// Package geo provides the distance math for proximity search. SQLite has
// no geospatial functions, so queries prefilter with a bounding box in SQL
// and the exact haversine distance is computed here.
package geo

import "math"

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// coordinates, using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the latitude and longitude half-spans (in degrees)
// of a box enclosing a circle of radiusKm centered at latitude lat. The box
// over-selects near the poles; callers must still apply the exact distance
// check.
func BoundingBox(lat, radiusKm float64) (dLat, dLng float64) {
	// One degree of latitude is ~111 km everywhere.
	dLat = radiusKm / 111.0

	c := math.Cos(lat * math.Pi / 180)
	if c < 0.01 {
		c = 0.01
	}
	dLng = radiusKm / (111.0 * c)
	return dLat, dLng
}
