package ports

import "context"

// Directed pair of coordinate keys (domain.Coordinates.Key).
type DistancePair struct {
	Origin      string
	Destination string
}

// Contract for memoizing resolved distance pairs across runs.
type DistanceCache interface {
	// Return cached results for the requested pairs; misses are absent from the map.
	GetMany(ctx context.Context, pairs []DistancePair) (map[DistancePair]DistanceResult, error)
	// Store results; existing entries are overwritten.
	PutMany(ctx context.Context, results map[DistancePair]DistanceResult) error
}
