// Package route models a travel path as an ordered sequence of coordinates and
// provides sampling and path-relative geometry for it.
package route

import (
	"math"
	"strconv"
	"strings"

	"github.com/joyvchen/birdride/internal/errors"
)

// Route is an ordered sequence of coordinates; insertion order is travel order.
// A valid route has at least one point.
type Route struct {
	points []Coordinate
}

// New creates a Route from points. It fails when the sequence is empty or
// contains an out-of-bounds coordinate.
func New(points []Coordinate) (Route, error) {
	if len(points) == 0 {
		return Route{}, errors.Newf("route must contain at least one point").
			Category(errors.CategoryValidation).
			Component("route").
			Build()
	}
	for i, p := range points {
		if !p.Valid() {
			return Route{}, errors.Newf("invalid coordinate at index %d: %v,%v", i, p.Lat, p.Lon).
				Category(errors.CategoryValidation).
				Context("index", i).
				Component("route").
				Build()
		}
	}
	r := Route{points: make([]Coordinate, len(points))}
	copy(r.points, points)
	return r, nil
}

// ParsePath parses a "lat,lon;lat,lon;..." string into a Route. This is the
// path format used by the CLI and the HTTP API.
func ParsePath(s string) (Route, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Route{}, errors.Newf("empty path").
			Category(errors.CategoryValidation).
			Component("route").
			Build()
	}

	pairs := strings.Split(s, ";")
	points := make([]Coordinate, 0, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return Route{}, errors.Newf("malformed coordinate pair %q, want lat,lon", pair).
				Category(errors.CategoryParsing).
				Component("route").
				Build()
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return Route{}, errors.Newf("malformed latitude in %q: %w", pair, err).
				Category(errors.CategoryParsing).
				Component("route").
				Build()
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return Route{}, errors.Newf("malformed longitude in %q: %w", pair, err).
				Category(errors.CategoryParsing).
				Component("route").
				Build()
		}
		points = append(points, Coordinate{Lat: lat, Lon: lon})
	}

	return New(points)
}

// Points returns a copy of the route's coordinates in travel order.
func (r Route) Points() []Coordinate {
	out := make([]Coordinate, len(r.points))
	copy(out, r.points)
	return out
}

// Len returns the number of coordinates in the route.
func (r Route) Len() int {
	return len(r.points)
}

// LengthMiles returns the total polyline length of the route in miles.
func (r Route) LengthMiles() float64 {
	var total float64
	for i := 1; i < len(r.points); i++ {
		total += HaversineMiles(r.points[i-1], r.points[i])
	}
	return total
}

// Sample reduces the route to at most maxPoints coordinates by fixed-stride
// decimation. Routes with at most maxPoints coordinates are returned unchanged.
//
// The stride is computed once from the point count, not from physical distance,
// so sample density follows the recording density of the input route.
func (r Route) Sample(maxPoints int) ([]Coordinate, error) {
	if maxPoints < 1 {
		return nil, errors.Newf("maxPoints must be at least 1, got %d", maxPoints).
			Category(errors.CategoryValidation).
			Component("route").
			Build()
	}
	if len(r.points) == 0 {
		return nil, errors.Newf("cannot sample an empty route").
			Category(errors.CategoryValidation).
			Component("route").
			Build()
	}

	if len(r.points) <= maxPoints {
		return r.Points(), nil
	}

	stride := len(r.points) / maxPoints
	samples := make([]Coordinate, 0, maxPoints)
	for i := 0; i < len(r.points) && len(samples) < maxPoints; i += stride {
		samples = append(samples, r.points[i])
	}
	return samples, nil
}

// DistanceMiles returns the minimum distance in miles from p to the route
// treated as a polyline. Both segment projections and raw vertices are
// considered, which covers single-point routes and numerical edge cases at
// segment ends.
func (r Route) DistanceMiles(p Coordinate) float64 {
	d, _ := r.nearest(p)
	return d
}

// PositionAlongMiles returns the mile marker of the point on the route closest
// to p, measured from the route's start along the polyline.
func (r Route) PositionAlongMiles(p Coordinate) float64 {
	_, at := r.nearest(p)
	return at
}

// nearest computes the minimum distance from p to the route and the distance
// along the route at which that minimum occurs.
func (r Route) nearest(p Coordinate) (minMiles, alongMiles float64) {
	minMiles = math.Inf(1)

	var traveled float64
	for i := 0; i < len(r.points); i++ {
		if d := HaversineMiles(p, r.points[i]); d < minMiles {
			minMiles = d
			alongMiles = traveled
		}
		if i+1 < len(r.points) {
			segLen := HaversineMiles(r.points[i], r.points[i+1])
			if d, t := pointToSegmentMiles(p, r.points[i], r.points[i+1]); d < minMiles {
				minMiles = d
				alongMiles = traveled + t*segLen
			}
			traveled += segLen
		}
	}
	return minMiles, alongMiles
}
