package services

import (
	"errors"
	"slices"
	"territory-route-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latLonPoints(n int) []domain.Point {
	pts := make([]domain.Point, n)
	for i := range pts {
		// Scrambled so the sort has work to do.
		j := (i * 5) % max(n, 1)
		pts[i] = domain.Point{Index: i, Coord: domain.Coordinates{Lat: 33 + float64(j)*0.01, Lon: -112 + float64(i%3)*0.01}}
	}
	return pts
}

func daySizes(labels []int, d int) []int {
	sizes := make([]int, d)
	for _, l := range labels {
		sizes[l]++
	}
	return sizes
}

func TestBalanceDaysSevenPointsThreeDays(t *testing.T) {
	labels, err := BalanceDays(latLonPoints(7), 3, OrderLatLon)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 2}, daySizes(labels, 3))
}

func TestBalanceDaysFewerPointsThanDays(t *testing.T) {
	labels, err := BalanceDays(latLonPoints(2), 5, OrderLatLon)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, labels)
	assert.Equal(t, []int{1, 1, 0, 0, 0}, daySizes(labels, 5))
}

func TestBalanceDaysSlicesByLatitude(t *testing.T) {
	pts := []domain.Point{
		{Coord: domain.Coordinates{Lat: 40, Lon: 0}},
		{Coord: domain.Coordinates{Lat: 10, Lon: 0}},
		{Coord: domain.Coordinates{Lat: 30, Lon: 0}},
		{Coord: domain.Coordinates{Lat: 20, Lon: 0}},
	}

	labels, err := BalanceDays(pts, 2, OrderLatLon)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0}, labels)
}

func TestBalanceDaysEqualKeysKeepInputOrder(t *testing.T) {
	pts := make([]domain.Point, 4)
	for i := range pts {
		pts[i] = domain.Point{Index: i, Coord: domain.Coordinates{Lat: 1, Lon: 1}}
	}

	labels, err := BalanceDays(pts, 2, OrderLatLon)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, labels)
}

func TestBalanceDaysSizeProperty(t *testing.T) {
	for _, ordering := range []Ordering{OrderLatLon, OrderHilbert} {
		for n := 0; n <= 40; n++ {
			for d := 1; d <= 7; d++ {
				labels, err := BalanceDays(latLonPoints(n), d, ordering)
				require.NoError(t, err, "ordering=%s n=%d d=%d", ordering, n, d)
				require.Len(t, labels, n)

				sizes := daySizes(labels, d)
				if n > d {
					assert.LessOrEqual(t, slices.Max(sizes)-slices.Min(sizes), 1, "n=%d d=%d sizes=%v", n, d, sizes)
					assert.Equal(t, n%d, countEqual(sizes, n/d+1), "n=%d d=%d sizes=%v", n, d, sizes)
				}
				assert.NoError(t, VerifyDayPartition(n, d, labels))
			}
		}
	}
}

func countEqual(xs []int, v int) int {
	c := 0
	for _, x := range xs {
		if x == v {
			c++
		}
	}
	return c
}

func TestBalanceDaysRejectsNonPositiveDays(t *testing.T) {
	_, err := BalanceDays(latLonPoints(3), 0, OrderLatLon)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestVerifyDayPartitionDetectsImbalance(t *testing.T) {
	err := VerifyDayPartition(5, 2, []int{0, 0, 0, 0, 1})
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))

	err = VerifyDayPartition(3, 2, []int{0, 2, 1})
	assert.True(t, errors.Is(err, domain.ErrInvariantViolation))
}

func TestParseOrdering(t *testing.T) {
	o, err := ParseOrdering("")
	require.NoError(t, err)
	assert.Equal(t, OrderLatLon, o)

	o, err = ParseOrdering("hilbert")
	require.NoError(t, err)
	assert.Equal(t, OrderHilbert, o)

	_, err = ParseOrdering("zigzag")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
