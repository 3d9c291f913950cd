package ports

import (
	"context"
	"territory-route-service/internal/domain"
)

// Port: a boundary for retrieving geocoded points from a data source.
type PointRepository interface {
	// Load every point with usable coordinates, in input order.
	LoadPoints(ctx context.Context) (*domain.Dataset, error)
}

// Port: a sink for the ordered route table.
type RouteWriter interface {
	WriteRoutes(ctx context.Context, plan *domain.Plan) error
}

// Port: converts geographic coordinates to a planar projection suitable for
// Euclidean clustering.
type Projector interface {
	Project(c domain.Coordinates) domain.Projected
}
