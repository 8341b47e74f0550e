package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geominder/core/internal/domain/entities"
)

var (
	sanFrancisco = entities.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	losAngeles   = entities.Coordinate{Latitude: 34.0522, Longitude: -118.2437}
)

func TestDistance_GreatCircle(t *testing.T) {
	d := Distance(sanFrancisco, losAngeles)

	// Roughly 559 km; a planar degree distance would be nowhere near this.
	assert.InEpsilon(t, 559_000, d, 0.01)
	assert.InDelta(t, d, Distance(losAngeles, sanFrancisco), 1e-6)
	assert.Zero(t, Distance(sanFrancisco, sanFrancisco))
}

func TestCircle_NoPoints(t *testing.T) {
	_, _, ok := NewReducer(0).Circle(nil, nil)
	assert.False(t, ok)

	_, ok = NewReducer(0).Reduce([]entities.Coordinate{}, nil, "anything")
	assert.False(t, ok)
}

func TestCircle_SinglePoint(t *testing.T) {
	r := NewReducer(0)
	p := entities.Coordinate{Latitude: 10, Longitude: 20}

	tests := []struct {
		name     string
		previous *entities.PointOfInterest
		want     float64
	}{
		{name: "no previous circle", previous: nil, want: DefaultRadiusMeters},
		{
			name:     "previous centered on the point keeps its radius",
			previous: &entities.PointOfInterest{Center: p, RadiusMeters: 420},
			want:     420,
		},
		{
			name:     "previous elsewhere falls back to default",
			previous: &entities.PointOfInterest{Center: entities.Coordinate{Latitude: 10, Longitude: 20.0001}, RadiusMeters: 420},
			want:     DefaultRadiusMeters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			center, radius, ok := r.Circle([]entities.Coordinate{p}, tt.previous)
			require.True(t, ok)
			assert.Equal(t, p, center)
			assert.Equal(t, tt.want, radius)
		})
	}
}

func TestCircle_SinglePointCustomDefault(t *testing.T) {
	_, radius, ok := NewReducer(250).Circle([]entities.Coordinate{sanFrancisco}, nil)
	require.True(t, ok)
	assert.Equal(t, 250.0, radius)
}

func TestCircle_TwoPointsAnchorsOnFirst(t *testing.T) {
	center, radius, ok := NewReducer(0).Circle([]entities.Coordinate{sanFrancisco, losAngeles}, nil)

	require.True(t, ok)
	assert.Equal(t, sanFrancisco, center, "center is the first point, not the midpoint")
	assert.Equal(t, Distance(sanFrancisco, losAngeles), radius)

	center, _, _ = NewReducer(0).Circle([]entities.Coordinate{losAngeles, sanFrancisco}, nil)
	assert.Equal(t, losAngeles, center)
}

func TestCircle_ManyPointsUsesBoundingBox(t *testing.T) {
	points := []entities.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0.002, Longitude: 0.001},
		{Latitude: 0.001, Longitude: 0.004},
	}

	center, radius, ok := NewReducer(0).Circle(points, nil)

	require.True(t, ok)
	assert.InDelta(t, 0.001, center.Latitude, 1e-12)
	assert.InDelta(t, 0.002, center.Longitude, 1e-12)
	assert.InDelta(t, Distance(center, points[0]), radius, 1e-9)
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	assert.False(t, ok)

	b, ok := BoundsOf([]entities.Coordinate{sanFrancisco, losAngeles})
	require.True(t, ok)
	assert.Equal(t, entities.Coordinate{Latitude: 34.0522, Longitude: -122.4194}, b.SouthWest)
	assert.Equal(t, entities.Coordinate{Latitude: 37.7749, Longitude: -118.2437}, b.NorthEast)
}

func TestReduce_Naming(t *testing.T) {
	r := NewReducer(0)
	two := []entities.Coordinate{sanFrancisco, losAngeles}
	three := append(two, entities.Coordinate{Latitude: 36, Longitude: -120})

	poi, ok := r.Reduce(two, nil, "Coast trip")
	require.True(t, ok)
	assert.Equal(t, "Coast trip", poi.Name)

	poi, _ = r.Reduce(two, nil, "  ")
	assert.Equal(t, DefaultPOIName, poi.Name)

	poi, _ = r.Reduce(three, nil, "Coast trip")
	assert.Equal(t, DefaultPOIName, poi.Name)
}

func TestCameraBounds(t *testing.T) {
	b := CameraBounds(sanFrancisco, 100)

	assert.Less(t, b.SouthWest.Latitude, sanFrancisco.Latitude)
	assert.Less(t, b.SouthWest.Longitude, sanFrancisco.Longitude)
	assert.Greater(t, b.NorthEast.Latitude, sanFrancisco.Latitude)
	assert.Greater(t, b.NorthEast.Longitude, sanFrancisco.Longitude)
	assert.InEpsilon(t, 100*math.Sqrt2, Distance(sanFrancisco, b.SouthWest), 0.01)
	assert.InEpsilon(t, 100*math.Sqrt2, Distance(sanFrancisco, b.NorthEast), 0.01)
}

func TestContains(t *testing.T) {
	near := entities.Coordinate{Latitude: sanFrancisco.Latitude + 0.0005, Longitude: sanFrancisco.Longitude}

	assert.True(t, Contains(sanFrancisco, 100, near))
	assert.False(t, Contains(sanFrancisco, 10, near))
}
