// Package geometry turns the points selected on a map into the single circle
// used as a reminder's geofence.
package geometry

import (
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/geominder/core/internal/domain/entities"
)

const (
	// DefaultRadiusMeters is the radius given to a newly selected single point.
	DefaultRadiusMeters = 100.0
	// ToggleRadiusMeters is how close a tap must land to an existing point to remove it.
	ToggleRadiusMeters = 30.0
	// DefaultPOIName names selections that carry no usable place name.
	DefaultPOIName = "Point of interest"
)

// Bounds is a latitude/longitude aligned box.
type Bounds struct {
	SouthWest entities.Coordinate `json:"southwest"`
	NorthEast entities.Coordinate `json:"northeast"`
}

// Center returns the midpoint of the box in degrees.
func (b Bounds) Center() entities.Coordinate {
	return fromPoint(b.bound().Center())
}

func (b Bounds) bound() orb.Bound {
	return orb.Bound{Min: toPoint(b.SouthWest), Max: toPoint(b.NorthEast)}
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b entities.Coordinate) float64 {
	return geo.DistanceHaversine(toPoint(a), toPoint(b))
}

// BoundsOf returns the smallest box containing every point. ok is false for
// an empty slice.
func BoundsOf(points []entities.Coordinate) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	mp := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		mp = append(mp, toPoint(p))
	}
	b := mp.Bound()
	return Bounds{SouthWest: fromPoint(b.Min), NorthEast: fromPoint(b.Max)}, true
}

// Reducer builds circles from point selections.
type Reducer struct {
	DefaultRadius float64
}

// NewReducer returns a Reducer using defaultRadius for new single points.
// A non-positive value falls back to DefaultRadiusMeters.
func NewReducer(defaultRadius float64) Reducer {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadiusMeters
	}
	return Reducer{DefaultRadius: defaultRadius}
}

// Circle reduces points to a center and a radius in meters.
//
//   - no points: ok is false
//   - one point: the previous radius when previous is centered exactly on it,
//     otherwise the default radius
//   - two points: centered on the first point, reaching the second
//   - more: centered on the bounding box, reaching its south-west corner
func (r Reducer) Circle(points []entities.Coordinate, previous *entities.PointOfInterest) (center entities.Coordinate, radius float64, ok bool) {
	switch len(points) {
	case 0:
		return entities.Coordinate{}, 0, false
	case 1:
		if previous != nil && previous.Center == points[0] {
			return points[0], previous.RadiusMeters, true
		}
		return points[0], r.defaultRadius(), true
	case 2:
		// Anchored on the first selection rather than the midpoint.
		return points[0], Distance(points[0], points[1]), true
	default:
		b, _ := BoundsOf(points)
		c := b.Center()
		return c, Distance(c, b.SouthWest), true
	}
}

// Reduce builds the point of interest for a selection. The name falls back
// to DefaultPOIName when blank or when more than two points are selected.
func (r Reducer) Reduce(points []entities.Coordinate, previous *entities.PointOfInterest, name string) (entities.PointOfInterest, bool) {
	center, radius, ok := r.Circle(points, previous)
	if !ok {
		return entities.PointOfInterest{}, false
	}
	if strings.TrimSpace(name) == "" || len(points) > 2 {
		name = DefaultPOIName
	}
	return entities.PointOfInterest{Center: center, RadiusMeters: radius, Name: name}, true
}

func (r Reducer) defaultRadius() float64 {
	if r.DefaultRadius <= 0 {
		return DefaultRadiusMeters
	}
	return r.DefaultRadius
}

// CameraBounds returns the box framing a circle of radius meters around center.
func CameraBounds(center entities.Coordinate, radius float64) Bounds {
	diagonal := radius * math.Sqrt2
	p := toPoint(center)
	return Bounds{
		SouthWest: fromPoint(geo.PointAtBearingAndDistance(p, 225, diagonal)),
		NorthEast: fromPoint(geo.PointAtBearingAndDistance(p, 45, diagonal)),
	}
}

// Contains reports whether c lies inside the circle.
func Contains(center entities.Coordinate, radius float64, c entities.Coordinate) bool {
	return Distance(center, c) <= radius
}

func toPoint(c entities.Coordinate) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

func fromPoint(p orb.Point) entities.Coordinate {
	return entities.Coordinate{Latitude: p.Lat(), Longitude: p.Lon()}
}
