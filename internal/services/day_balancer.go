package services

import (
	"cmp"
	"fmt"
	"slices"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/geo"
)

// Ordering selects the spatial sort applied before slicing a territory into days.
type Ordering string

const (
	// OrderLatLon sorts by latitude, then longitude.
	OrderLatLon Ordering = "latlon"
	// OrderHilbert sorts along the S2 Hilbert curve.
	OrderHilbert Ordering = "hilbert"
)

func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case "", OrderLatLon:
		return OrderLatLon, nil
	case OrderHilbert:
		return OrderHilbert, nil
	}
	return "", fmt.Errorf("parse ordering: %w: unknown day ordering %q", domain.ErrConfiguration, s)
}

// BalanceDays splits one territory's points into d near-equal, contiguous runs
// and returns the day index of every input point.
//
// Points are sorted by the chosen spatial key (stable, so equal keys keep input
// order) and sliced: the first n%d days receive n/d+1 points, the rest n/d.
// When there are no more points than days, point i is visited on day i and the
// remaining days stay empty.
func BalanceDays(points []domain.Point, d int, ordering Ordering) ([]int, error) {
	if d < 1 {
		return nil, fmt.Errorf("balance days: %w: day count must be >= 1, got %d", domain.ErrConfiguration, d)
	}

	n := len(points)
	labels := make([]int, n)

	if n <= d {
		for i := range labels {
			labels[i] = i
		}
		return labels, nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	switch ordering {
	case OrderHilbert:
		keys := make([]uint64, n)
		for i, p := range points {
			keys[i] = geo.HilbertKey(p.Coord)
		}
		slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(keys[a], keys[b]) })
	default:
		slices.SortStableFunc(order, func(a, b int) int {
			if c := cmp.Compare(points[a].Coord.Lat, points[b].Coord.Lat); c != 0 {
				return c
			}
			return cmp.Compare(points[a].Coord.Lon, points[b].Coord.Lon)
		})
	}

	base := n / d
	remainder := n % d

	start := 0
	for day := 0; day < d; day++ {
		size := base
		if day < remainder {
			size++
		}
		for _, idx := range order[start : start+size] {
			labels[idx] = day
		}
		start += size
	}

	if err := VerifyDayPartition(n, d, labels); err != nil {
		return nil, fmt.Errorf("balance days: %w", err)
	}

	return labels, nil
}

// VerifyDayPartition checks that labels assign each of n points to exactly one
// day in [0,d) and that non-empty bucket sizes follow the balancing rule.
func VerifyDayPartition(n, d int, labels []int) error {
	if len(labels) != n {
		return fmt.Errorf("%w: %d labels for %d points", domain.ErrInvariantViolation, len(labels), n)
	}

	sizes := make([]int, d)
	for i, l := range labels {
		if l < 0 || l >= d {
			return fmt.Errorf("%w: point %d has day %d outside [0,%d)", domain.ErrInvariantViolation, i, l, d)
		}
		sizes[l]++
	}

	if n <= d {
		for day, s := range sizes {
			if s > 1 {
				return fmt.Errorf("%w: day %d holds %d points, want at most 1", domain.ErrInvariantViolation, day, s)
			}
		}
		return nil
	}

	lo, hi := slices.Min(sizes), slices.Max(sizes)
	if hi-lo > 1 {
		return fmt.Errorf("%w: day sizes range %d..%d differ by more than 1", domain.ErrInvariantViolation, lo, hi)
	}

	return nil
}
