package services

import (
	"math"
	"territory-route-service/internal/domain"
)

// SequenceRoute orders a bucket's stops with a greedy nearest-neighbor walk.
//
// The walk starts at index 0 (the bucket's first point in input order) and
// repeatedly moves to the cheapest unvisited index from the last visited one.
// It does not attempt global route optimization; it prioritizes determinism:
//   - ties go to the lowest index,
//   - when every remaining cost is Unreachable (or NaN) the lowest unvisited
//     index is taken, so a full order is produced even with no distance data.
//
// The result is always a permutation of [0, n) starting at 0. O(n²).
func SequenceRoute(m *domain.Matrix) []int {
	n := m.Rows
	if n <= 1 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}

	visited := make([]bool, n)
	order := make([]int, 0, n)

	current := 0
	visited[current] = true
	order = append(order, current)

	for len(order) < n {
		row := m.Row(current)

		next := -1
		minCost := math.Inf(1)
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			// First unvisited index is the fallback when nothing finite remains.
			if next == -1 {
				next = j
				minCost = row[j]
				if math.IsNaN(minCost) {
					minCost = math.Inf(1)
				}
				continue
			}
			if c := row[j]; c < minCost {
				next = j
				minCost = c
			}
		}

		visited[next] = true
		order = append(order, next)
		current = next
	}

	return order
}

// RouteLength sums the finite legs of order through m.
func RouteLength(m *domain.Matrix, order []int) float64 {
	total := 0.0
	for i := 1; i < len(order); i++ {
		if leg := m.At(order[i-1], order[i]); isFinite(leg) {
			total += leg
		}
	}
	return total
}

// isFinite reports whether v is a usable travel cost.
func isFinite(v float64) bool { return !math.IsInf(v, 0) && !math.IsNaN(v) }
