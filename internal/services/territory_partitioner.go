package services

import (
	"fmt"
	"math"
	"math/rand/v2"
	"territory-route-service/internal/domain"
)

// Tunables for PartitionTerritories. Zero values fall back to the defaults.
type PartitionOptions struct {
	Restarts      int
	MaxIterations int
	Seed          int64
	Tolerance     float64
}

func DefaultPartitionOptions() PartitionOptions {
	return PartitionOptions{
		Restarts:      20,
		MaxIterations: 500,
		Seed:          42,
		Tolerance:     1e-4,
	}
}

func (o PartitionOptions) withDefaults() PartitionOptions {
	d := DefaultPartitionOptions()
	if o.Restarts <= 0 {
		o.Restarts = d.Restarts
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	return o
}

type kmeansRun struct {
	labels  []int
	inertia float64
}

// PartitionTerritories clusters points into k territories using Lloyd's
// algorithm on the projected coordinates.
//
// Each restart is seeded with k-means++ from a generator derived from opts.Seed,
// so equal inputs and seeds always produce equal labels. The run with the lowest
// within-cluster sum of squares wins; ties keep the earlier run.
func PartitionTerritories(points []domain.Point, k int, opts PartitionOptions) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("partition territories: %w: territory count must be >= 1, got %d", domain.ErrConfiguration, k)
	}
	if len(points) < k {
		return nil, fmt.Errorf(
			"partition territories: %w: %d territories requested for %d points",
			domain.ErrConfiguration, k, len(points),
		)
	}

	opts = opts.withDefaults()

	xy := make([][2]float64, len(points))
	for i, p := range points {
		xy[i] = [2]float64{p.Projected.X, p.Projected.Y}
	}

	if k == 1 {
		return make([]int, len(points)), nil
	}

	var best *kmeansRun
	for r := 0; r < opts.Restarts; r++ {
		rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(r)))
		run := lloyd(xy, k, opts, rng)
		if best == nil || run.inertia < best.inertia {
			best = run
		}
	}

	return best.labels, nil
}

func lloyd(xy [][2]float64, k int, opts PartitionOptions, rng *rand.Rand) *kmeansRun {
	centroids := seedPlusPlus(xy, k, rng)
	labels := make([]int, len(xy))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		changed := assignNearest(xy, centroids, labels)
		relocateEmpty(xy, centroids, labels)

		next := recomputeCentroids(xy, labels, k)
		shift := 0.0
		for c := range centroids {
			shift += sqDist(centroids[c], next[c])
		}
		centroids = next

		if !changed || shift <= opts.Tolerance {
			break
		}
	}

	// Labels must agree with the final centroids.
	assignNearest(xy, centroids, labels)
	relocateEmpty(xy, centroids, labels)

	inertia := 0.0
	final := recomputeCentroids(xy, labels, k)
	for i, p := range xy {
		inertia += sqDist(p, final[labels[i]])
	}

	return &kmeansRun{labels: labels, inertia: inertia}
}

// seedPlusPlus picks k initial centroids: the first uniformly, the rest with
// probability proportional to the squared distance to the nearest chosen one.
func seedPlusPlus(xy [][2]float64, k int, rng *rand.Rand) [][2]float64 {
	centroids := make([][2]float64, 0, k)
	centroids = append(centroids, xy[rng.IntN(len(xy))])

	d2 := make([]float64, len(xy))
	for i, p := range xy {
		d2[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		total := 0.0
		for _, d := range d2 {
			total += d
		}

		next := rng.IntN(len(xy))
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range d2 {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		}

		c := xy[next]
		centroids = append(centroids, c)
		for i, p := range xy {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}

	return centroids
}

// assignNearest labels every point with its closest centroid (lowest index on
// ties) and reports whether any label changed.
func assignNearest(xy [][2]float64, centroids [][2]float64, labels []int) bool {
	changed := false
	for i, p := range xy {
		best, bestD := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(p, centroid); d < bestD {
				best, bestD = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// relocateEmpty moves, for every empty cluster, the point farthest from its
// centroid (taken from a cluster with more than one member) into it.
func relocateEmpty(xy [][2]float64, centroids [][2]float64, labels []int) {
	sizes := make([]int, len(centroids))
	for _, l := range labels {
		sizes[l]++
	}

	for c := range centroids {
		if sizes[c] > 0 {
			continue
		}

		far, farD := -1, -1.0
		for i, p := range xy {
			if sizes[labels[i]] <= 1 {
				continue
			}
			if d := sqDist(p, centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			return
		}

		sizes[labels[far]]--
		labels[far] = c
		sizes[c]++
		centroids[c] = xy[far]
	}
}

func recomputeCentroids(xy [][2]float64, labels []int, k int) [][2]float64 {
	sums := make([][2]float64, k)
	counts := make([]int, k)
	for i, p := range xy {
		l := labels[i]
		sums[l][0] += p[0]
		sums[l][1] += p[1]
		counts[l]++
	}

	out := make([][2]float64, k)
	for c := range out {
		if counts[c] == 0 {
			continue
		}
		out[c] = [2]float64{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
	}
	return out
}

func sqDist(a, b [2]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}
