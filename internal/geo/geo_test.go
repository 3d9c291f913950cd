package geo

import (
	"math"
	"testing"

	"territory-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func haversine(a, b domain.Coordinates) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func TestGreatCircleMatchesHaversine(t *testing.T) {
	phx := domain.Coordinates{Lat: 33.4484, Lon: -112.0740}
	tuc := domain.Coordinates{Lat: 32.2226, Lon: -110.9747}

	got := GreatCircleMeters(phx, tuc)
	assert.InDelta(t, haversine(phx, tuc), got, 0.01)
	assert.InDelta(t, 165_000, got, 5_000)
	assert.Equal(t, 0.0, GreatCircleMeters(phx, phx))
}

func TestGreatCircleMatrixSymmetricZeroDiagonal(t *testing.T) {
	coords := []domain.Coordinates{
		{Lat: 33.45, Lon: -112.07},
		{Lat: 33.50, Lon: -112.00},
		{Lat: 33.40, Lon: -111.90},
	}
	m := GreatCircleMatrix(coords)

	for i := range coords {
		assert.Equal(t, 0.0, m.At(i, i))
		for j := range coords {
			assert.Equal(t, m.At(i, j), m.At(j, i))
			assert.False(t, math.IsInf(m.At(i, j), 0))
		}
	}
}

func TestMercatorProjector(t *testing.T) {
	p := MercatorProjector{}.Project(domain.Coordinates{Lat: 0, Lon: 0})
	assert.InDelta(t, 0, p.X, 1e-6)
	assert.InDelta(t, 0, p.Y, 1e-6)

	east := MercatorProjector{}.Project(domain.Coordinates{Lat: 0, Lon: 180})
	assert.InDelta(t, 20037508.34, east.X, 1)

	north := MercatorProjector{}.Project(domain.Coordinates{Lat: 45, Lon: 0})
	assert.Greater(t, north.Y, 0.0)
}

func TestHilbertKeyLocality(t *testing.T) {
	a := HilbertKey(domain.Coordinates{Lat: 33.4484, Lon: -112.0740})
	b := HilbertKey(domain.Coordinates{Lat: 33.4485, Lon: -112.0741})
	far := HilbertKey(domain.Coordinates{Lat: -33.8688, Lon: 151.2093})

	diff := func(x, y uint64) uint64 {
		if x > y {
			return x - y
		}
		return y - x
	}
	assert.Less(t, diff(a, b), diff(a, far))
}
