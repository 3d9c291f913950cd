package services

import (
	"context"
	"territory-route-service/internal/adapters/distance"
	"territory-route-service/internal/domain"
	"testing"
)

func TestPlanBucketRoute(t *testing.T) {
	a := domain.Coordinates{Lat: 33.40, Lon: -112.00}
	b := domain.Coordinates{Lat: 33.50, Lon: -112.00}
	c := domain.Coordinates{Lat: 33.45, Lon: -112.00}

	ds := &domain.Dataset{Points: []domain.Point{
		{Index: 0, Coord: b},
		{Index: 1, Coord: c},
		{Index: 2, Coord: a},
	}}

	pairs := []distance.MockPair{
		{From: a, To: b, Meters: 1000, Seconds: 300},
		{From: a, To: c, Meters: 1500, Seconds: 450},
		{From: b, To: a, Meters: 1000, Seconds: 300},
		{From: b, To: c, Meters: 800, Seconds: 240},
		{From: c, To: a, Meters: 1500, Seconds: 450},
		{From: c, To: b, Meters: 800, Seconds: 240},
	}
	builder := NewMatrixBuilder(distance.NewMockDistanceSource(pairs), fastOptions(), nil)

	key := domain.BucketKey{Territory: 1, Day: 0}
	route := PlanBucketRoute(context.Background(), builder, ds, key, []int{2, 0, 1})

	if route.Key != key {
		t.Fatalf("key = %v, want %v", route.Key, key)
	}
	if len(route.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(route.Stops))
	}

	wantPoints := []int{2, 0, 1}
	wantLegs := []float64{0, 1000, 800}
	for i, s := range route.Stops {
		if s.PointIndex != wantPoints[i] {
			t.Fatalf("stop %d: point = %d, want %d", i, s.PointIndex, wantPoints[i])
		}
		if s.VisitOrder != i+1 {
			t.Fatalf("stop %d: visit order = %d, want %d", i, s.VisitOrder, i+1)
		}
		if s.LegMeters != wantLegs[i] {
			t.Fatalf("stop %d: leg = %v, want %v", i, s.LegMeters, wantLegs[i])
		}
	}

	if route.TotalMeters != 1800 {
		t.Fatalf("total = %v, want 1800", route.TotalMeters)
	}
	if route.Fallback {
		t.Fatalf("unexpected fallback")
	}
}

func TestPlanBucketRouteEmpty(t *testing.T) {
	builder := NewMatrixBuilder(nil, fastOptions(), nil)
	route := PlanBucketRoute(context.Background(), builder, &domain.Dataset{}, domain.BucketKey{}, nil)

	if len(route.Stops) != 0 {
		t.Fatalf("expected no stops, got %d", len(route.Stops))
	}
}

func TestPlanBucketRouteSinglePoint(t *testing.T) {
	ds := &domain.Dataset{Points: []domain.Point{{Coord: domain.Coordinates{Lat: 1, Lon: 1}}}}
	src := distance.NewMockDistanceSource(nil)
	builder := NewMatrixBuilder(src, fastOptions(), nil)

	route := PlanBucketRoute(context.Background(), builder, ds, domain.BucketKey{}, []int{0})

	if len(route.Stops) != 1 || route.Stops[0].VisitOrder != 1 {
		t.Fatalf("unexpected stops: %+v", route.Stops)
	}
	if len(src.Calls()) != 0 {
		t.Fatalf("single point bucket should not query the source")
	}
}
