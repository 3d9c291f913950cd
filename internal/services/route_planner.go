package services

import (
	"context"
	"territory-route-service/internal/domain"
)

// Plan the visiting order of one (territory, day) bucket.
//
// indices are positions in ds.Points, in input order; index 0 of the bucket is
// the route start. The travel-cost matrix comes from builder, which falls back
// to great-circle distances on its own, so planning a bucket never fails.
// It does not attempt global route optimization (e.g., TSP solvers).
func PlanBucketRoute(
	ctx context.Context,
	builder *MatrixBuilder,
	ds *domain.Dataset,
	key domain.BucketKey,
	indices []int,
) domain.BucketRoute {
	route := domain.BucketRoute{Key: key, Stops: []domain.RouteStop{}}
	if len(indices) == 0 {
		return route
	}

	coords := make([]domain.Coordinates, len(indices))
	for i, idx := range indices {
		coords[i] = ds.Points[idx].Coord
	}

	res := builder.Build(ctx, coords)
	order := SequenceRoute(res.Matrix)

	route.Stops = make([]domain.RouteStop, 0, len(order))
	for pos, local := range order {
		leg := 0.0
		if pos > 0 {
			if v := res.Matrix.At(order[pos-1], local); isFinite(v) {
				leg = v
			}
		}
		route.Stops = append(route.Stops, domain.RouteStop{
			PointIndex: indices[local],
			VisitOrder: pos + 1,
			LegMeters:  leg,
		})
	}

	route.TotalMeters = RouteLength(res.Matrix, order)
	route.Fallback = res.Fallback
	route.Batches = res.Batches
	route.MissingElements = res.MissingElements

	return route
}
