package geo

import (
	"territory-route-service/internal/domain"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used by the fallback estimate.
const EarthRadiusMeters = 6_371_000.0

// GreatCircleMeters returns the great-circle distance between a and b.
func GreatCircleMeters(a, b domain.Coordinates) float64 {
	return s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon)).Radians() * EarthRadiusMeters
}

// GreatCircleMatrix builds a symmetric n×n matrix of great-circle distances
// with a zero diagonal. It is the fallback when the distance source fails.
func GreatCircleMatrix(coords []domain.Coordinates) *domain.Matrix {
	n := len(coords)
	m := domain.NewMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := GreatCircleMeters(coords[i], coords[j])
			m.Set(i, j, d)
			m.Set(j, i, d)
		}
	}
	return m
}
