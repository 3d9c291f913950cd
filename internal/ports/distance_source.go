package ports

import (
	"context"
	"territory-route-service/internal/domain"
)

// Distance and travel duration between two locations.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// One origin->destination cell of a batch response.
// OK is false when the source could not resolve that pair.
type MatrixCell struct {
	DistanceResult
	OK bool
}

// Contract for a capped, rate-limited travel-cost source.
//
// Matrix returns a len(origins)×len(destinations) grid. A returned error means the
// whole batch failed (transport, timeout, malformed payload, non-OK status);
// unresolved individual pairs are reported through MatrixCell.OK instead.
type DistanceSource interface {
	Name() string
	Matrix(ctx context.Context, origins, destinations []domain.Coordinates) ([][]MatrixCell, error)
}

type throttleKey struct{}

// WithThrottle attaches wait to ctx. Distance sources call it through Throttle
// before each remote request, so answers served locally are never delayed.
func WithThrottle(ctx context.Context, wait func(context.Context) error) context.Context {
	return context.WithValue(ctx, throttleKey{}, wait)
}

// Throttle blocks until the throttle attached to ctx admits one remote
// request. It returns immediately when none is attached.
func Throttle(ctx context.Context) error {
	if wait, ok := ctx.Value(throttleKey{}).(func(context.Context) error); ok && wait != nil {
		return wait(ctx)
	}
	return nil
}
