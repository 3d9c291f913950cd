package services

import (
	"context"
	"errors"
	"fmt"
	"territory-route-service/internal/adapters/distance"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/geo"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testDataset(n int) *domain.Dataset {
	ds := &domain.Dataset{Columns: []string{"Retailer"}}
	for i, c := range testCoords(n) {
		// Two far-apart groups.
		if i%2 == 1 {
			c.Lon += 1.5
		}
		ds.Points = append(ds.Points, domain.Point{
			Index:      i,
			Coord:      c,
			Attributes: map[string]string{"Retailer": fmt.Sprintf("store-%02d", i)},
		})
	}
	return ds
}

func newTestPlanner(t *testing.T, src *distance.MockDistanceSource, workers int) *Planner {
	t.Helper()
	var builder *MatrixBuilder
	if src != nil {
		builder = NewMatrixBuilder(src, fastOptions(), zaptest.NewLogger(t))
	} else {
		builder = NewMatrixBuilder(nil, fastOptions(), zaptest.NewLogger(t))
	}
	return NewPlanner(builder, geo.MercatorProjector{}, PlannerOptions{
		Partition: DefaultPartitionOptions(),
		Workers:   workers,
	}, zaptest.NewLogger(t))
}

func TestPlannerPlanCoversEveryPoint(t *testing.T) {
	ds := testDataset(30)
	p := newTestPlanner(t, distance.NewMockDistanceSource(nil), 1)

	plan, err := p.Plan(context.Background(), ds, 2, 3)
	require.NoError(t, err)

	require.NotEmpty(t, plan.RunID)
	require.Len(t, plan.Assignments, 30)
	require.Len(t, plan.Routes, 6)

	seen := make(map[int]bool)
	for i, r := range plan.Routes {
		if i > 0 {
			assert.True(t, plan.Routes[i-1].Key.Less(r.Key), "routes must be sorted by bucket key")
		}
		assert.False(t, r.Fallback)
		for j, s := range r.Stops {
			assert.Equal(t, j+1, s.VisitOrder)
			assert.False(t, seen[s.PointIndex], "point %d routed twice", s.PointIndex)
			seen[s.PointIndex] = true

			a := plan.Assignments[s.PointIndex]
			assert.Equal(t, r.Key, a.Key())
		}
	}
	assert.Len(t, seen, 30)

	// The two longitude groups become the two territories.
	for i, a := range plan.Assignments {
		assert.Equal(t, plan.Assignments[i%2].Territory, a.Territory, "point %d", i)
	}
}

func TestPlannerConcurrentMatchesSequential(t *testing.T) {
	seq, err := newTestPlanner(t, distance.NewMockDistanceSource(nil), 1).Plan(context.Background(), testDataset(40), 3, 2)
	require.NoError(t, err)
	par, err := newTestPlanner(t, distance.NewMockDistanceSource(nil), 4).Plan(context.Background(), testDataset(40), 3, 2)
	require.NoError(t, err)

	assert.Equal(t, seq.Assignments, par.Assignments)
	assert.Equal(t, seq.Routes, par.Routes)
}

func TestPlannerDegradesToFallback(t *testing.T) {
	src := distance.NewMockDistanceSource(nil)
	src.FailAll = true

	plan, err := newTestPlanner(t, src, 2).Plan(context.Background(), testDataset(12), 2, 2)
	require.NoError(t, err)

	assert.Equal(t, len(plan.Routes), plan.FallbackCount())
}

func TestPlannerRejectsBadCounts(t *testing.T) {
	p := newTestPlanner(t, nil, 1)

	_, err := p.Plan(context.Background(), testDataset(3), 5, 1)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	_, err = p.Plan(context.Background(), testDataset(3), 1, 0)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestPlannerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPlanner(t, distance.NewMockDistanceSource(nil), 1).Plan(ctx, testDataset(10), 2, 2)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPlannerSingleDay(t *testing.T) {
	plan, err := newTestPlanner(t, nil, 1).Plan(context.Background(), testDataset(7), 1, 1)
	require.NoError(t, err)

	require.Len(t, plan.Routes, 1)
	assert.Len(t, plan.Routes[0].Stops, 7)
	assert.True(t, plan.Routes[0].Fallback)
}

func TestPlannerPartitionProjectsPoints(t *testing.T) {
	ds := testDataset(6)
	p := newTestPlanner(t, nil, 1)

	_, err := p.Partition(context.Background(), ds, 2, 1)
	require.NoError(t, err)

	for _, pt := range ds.Points {
		assert.Equal(t, geo.MercatorProjector{}.Project(pt.Coord), pt.Projected)
	}
}

func TestBucketsSkipsEmptyDays(t *testing.T) {
	got := Buckets([]domain.Assignment{
		{Territory: 1, Day: 0},
		{Territory: 0, Day: 1},
		{Territory: 0, Day: 1},
		{Territory: 0, Day: 0},
	})

	require.Len(t, got, 3)
	assert.Equal(t, domain.BucketKey{Territory: 0, Day: 0}, got[0].Key)
	assert.Equal(t, []int{1, 2}, got[1].Indices)
	assert.Equal(t, domain.BucketKey{Territory: 1, Day: 0}, got[2].Key)
}

type stubRepo struct{ ds *domain.Dataset }

func (r stubRepo) LoadPoints(context.Context) (*domain.Dataset, error) { return r.ds, nil }

type recordingWriter struct{ plan *domain.Plan }

func (w *recordingWriter) WriteRoutes(_ context.Context, p *domain.Plan) error {
	w.plan = p
	return nil
}

func TestPlanRoutesWritesPlan(t *testing.T) {
	w := &recordingWriter{}
	plan, err := PlanRoutes(context.Background(), newTestPlanner(t, nil, 1), stubRepo{ds: testDataset(6)}, w, 2, 1)
	require.NoError(t, err)
	assert.Same(t, plan, w.plan)
}
