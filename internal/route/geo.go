package route

import "math"

const earthRadiusMiles = 3958.8

// Coordinate is a WGS84 (latitude, longitude) pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineMiles calculates the great-circle distance in miles between two points.
func HaversineMiles(a, b Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMiles * c
}

// pointToSegmentMiles returns the distance in miles from p to the segment a-b,
// together with the clamped projection parameter t in [0,1].
//
// The projection is done in plain (lat,lon) coordinate space, which is a fair
// approximation at the short segment lengths a recorded route produces. The
// distance itself is the Haversine distance from p to the clamped projection.
func pointToSegmentMiles(p, a, b Coordinate) (miles, t float64) {
	dx := b.Lat - a.Lat
	dy := b.Lon - a.Lon

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		// Degenerate segment, both endpoints coincide
		return HaversineMiles(p, a), 0
	}

	t = ((p.Lat-a.Lat)*dx + (p.Lon-a.Lon)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))

	proj := Coordinate{
		Lat: a.Lat + t*dx,
		Lon: a.Lon + t*dy,
	}
	return HaversineMiles(p, proj), t
}
