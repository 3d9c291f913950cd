package services

import (
	"context"
	"fmt"
	"slices"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/geo"
	"territory-route-service/internal/platform/metrics"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type PlannerOptions struct {
	Partition PartitionOptions
	Ordering  Ordering
	// Workers bounds how many buckets are planned at once. Values < 1 mean 1.
	Workers int
}

// Planner runs the full pipeline: projection, territory partitioning, day
// balancing and, per (territory, day) bucket, matrix building and sequencing.
type Planner struct {
	builder   *MatrixBuilder
	projector ports.Projector
	opts      PlannerOptions
	logger    *zap.Logger
}

func NewPlanner(builder *MatrixBuilder, projector ports.Projector, opts PlannerOptions, logger *zap.Logger) *Planner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Ordering == "" {
		opts.Ordering = OrderLatLon
	}
	return &Planner{
		builder:   builder,
		projector: projector,
		opts:      opts,
		logger:    obs.OrNop(logger),
	}
}

// Bucket is one (territory, day) group of point indices in input order.
type Bucket struct {
	Key     domain.BucketKey
	Indices []int
}

// Partition assigns every point a territory in [0,k) and a day in [0,d).
// It performs no distance lookups. ds.Points are projected in place when the
// planner has a projector.
func (p *Planner) Partition(ctx context.Context, ds *domain.Dataset, k, d int) (_ []domain.Assignment, err error) {
	defer obs.Time(ctx, "planner.Partition")(&err)

	if ds == nil {
		return nil, fmt.Errorf("partition: %w: dataset must be non-nil", domain.ErrConfiguration)
	}
	if d < 1 {
		return nil, fmt.Errorf("partition: %w: day count must be >= 1, got %d", domain.ErrConfiguration, d)
	}

	if p.projector != nil {
		geo.ProjectAll(ds, p.projector)
	}

	territories, err := PartitionTerritories(ds.Points, k, p.opts.Partition)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}

	members := make([][]int, k)
	for i, t := range territories {
		members[t] = append(members[t], i)
	}

	sizes := make([]int, k)
	for t, idx := range members {
		sizes[t] = len(idx)
	}
	p.logger.Info("territories assigned", zap.Int("territories", k), zap.Ints("sizes", sizes))

	assignments := make([]domain.Assignment, len(ds.Points))
	for t, idx := range members {
		pts := make([]domain.Point, len(idx))
		for j, i := range idx {
			pts[j] = ds.Points[i]
		}

		days, err := BalanceDays(pts, d, p.opts.Ordering)
		if err != nil {
			return nil, fmt.Errorf("partition: territory %d: %w", t+1, err)
		}
		for j, i := range idx {
			assignments[i] = domain.Assignment{Territory: t, Day: days[j]}
		}
	}

	return assignments, nil
}

// Buckets groups assignments into non-empty buckets sorted by key. Indices in
// each bucket keep input order.
func Buckets(assignments []domain.Assignment) []Bucket {
	byKey := make(map[domain.BucketKey][]int)
	for i, a := range assignments {
		byKey[a.Key()] = append(byKey[a.Key()], i)
	}

	out := make([]Bucket, 0, len(byKey))
	for k, idx := range byKey {
		out = append(out, Bucket{Key: k, Indices: idx})
	}
	slices.SortFunc(out, func(a, b Bucket) int {
		switch {
		case a.Key.Less(b.Key):
			return -1
		case b.Key.Less(a.Key):
			return 1
		}
		return 0
	})
	return out
}

// Plan partitions ds and sequences every bucket. Routes in the returned plan
// are ordered by (territory, day) whatever the worker count. Only context
// cancellation or a configuration/invariant error aborts the run; distance
// source failures degrade the affected buckets to great-circle routing.
func (p *Planner) Plan(ctx context.Context, ds *domain.Dataset, k, d int) (_ *domain.Plan, err error) {
	defer obs.Time(ctx, "planner.Plan")(&err)
	start := time.Now()

	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	assignments, err := p.Partition(ctx, ds, k, d)
	if err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}

	buckets := Buckets(assignments)
	logger.Info("buckets balanced",
		zap.Int("points", len(ds.Points)),
		zap.Int("territories", k),
		zap.Int("days", d),
		zap.Int("buckets", len(buckets)),
	)

	routes := make([]domain.BucketRoute, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, b := range buckets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			route := PlanBucketRoute(gctx, p.builder, ds, b.Key, b.Indices)
			routes[i] = route
			metrics.BucketsPlanned.Inc()

			logger.Debug("bucket planned",
				zap.Stringer("bucket", b.Key),
				zap.Int("stops", len(route.Stops)),
				zap.Float64("total_m", route.TotalMeters),
				zap.Bool("fallback", route.Fallback),
				zap.Int("missing", route.MissingElements),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}
	// Builders swallow cancellation into fallback; surface it here.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan routes: %w", err)
	}

	plan := &domain.Plan{
		RunID:       runID,
		Territories: k,
		Days:        d,
		Dataset:     ds,
		Assignments: assignments,
		Routes:      routes,
	}

	elapsed := time.Since(start)
	metrics.PlanDuration.Observe(elapsed.Seconds())
	logger.Info("plan complete",
		zap.Int("buckets", len(routes)),
		zap.Int("fallback_buckets", plan.FallbackCount()),
		zap.Duration("elapsed", elapsed),
	)

	return plan, nil
}

// PlanRoutes loads points from repo, plans them and hands the result to writer.
func PlanRoutes(
	ctx context.Context,
	planner *Planner,
	repo ports.PointRepository,
	writer ports.RouteWriter,
	k, d int,
) (*domain.Plan, error) {
	ds, err := repo.LoadPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan routes: load points: %w", err)
	}

	plan, err := planner.Plan(ctx, ds, k, d)
	if err != nil {
		return nil, err
	}

	if writer != nil {
		if err := writer.WriteRoutes(ctx, plan); err != nil {
			return nil, fmt.Errorf("plan routes: write routes: %w", err)
		}
	}

	return plan, nil
}
