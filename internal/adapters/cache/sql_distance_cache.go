package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
)

// SQLDistanceCache is a Postgres-backed cache for origin->destination distance results.
// Keys are coordinate keys ("lat,lon", 6 decimals).
type SQLDistanceCache struct {
	DB *sql.DB
}

func NewSQLDistanceCache(db *sql.DB) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db}
}

// Fetch cached distances for many origin/destination pairs in one round trip.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	pairs []ports.DistancePair,
) (_ map[ports.DistancePair]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	origins, destinations := uniquePairs(pairs)
	if len(origins) == 0 {
		return map[ports.DistancePair]ports.DistanceResult{}, nil
	}

	q := `
	SELECT c.origin, c.destination, c.distance_meters, c.duration_seconds
    FROM distance_cache c
    JOIN unnest($1::text[], $2::text[]) AS k(origin, destination)
        ON c.origin = k.origin AND c.destination = k.destination;
	`

	rows, err := s.DB.QueryContext(ctx, q, origins, destinations)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	return scanDistances(rows, len(origins))
}

// Store many distance results.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	results map[ports.DistancePair]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds;
	`)
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for p, r := range results {
		if err := validPair(p); err != nil {
			return fmt.Errorf("insert distance cache: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, p.Origin, p.Destination, r.DistanceMeters, r.DurationSeconds); err != nil {
			return fmt.Errorf("insert distance cache %s->%s: %w", p.Origin, p.Destination, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}
