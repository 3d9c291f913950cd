package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"
)

// SQLite backed cache for origin->destination distance results.
type SqliteDistanceCache struct {
	DB *sql.DB
}

func NewSqliteDistanceCache(db *sql.DB) *SqliteDistanceCache {
	return &SqliteDistanceCache{DB: db}
}

// Fetch cached distances, one query per distinct origin.
func (s *SqliteDistanceCache) GetMany(
	ctx context.Context,
	pairs []ports.DistancePair,
) (_ map[ports.DistancePair]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.sqlite.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	out := make(map[ports.DistancePair]ports.DistanceResult, len(pairs))
	for origin, destinations := range groupByOrigin(pairs) {
		ph := make([]string, len(destinations))
		args := make([]any, 0, 1+len(destinations))
		args = append(args, origin)
		for i, d := range destinations {
			ph[i] = "?"
			args = append(args, d)
		}

		// SQLite does not support binding slices directly in an IN (...) clause.
		// Only the placeholder structure is interpolated; all values remain parameterized.
		q := fmt.Sprintf(`
		SELECT
            origin,
            destination,
            distance_meters,
            duration_seconds
        FROM distance_cache
        WHERE origin = ?
            AND destination IN (%s);
		`, strings.Join(ph, ","))

		rows, err := s.DB.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
		}
		got, err := scanDistances(rows, len(destinations))
		rows.Close()
		if err != nil {
			return nil, err
		}
		for k, v := range got {
			out[k] = v
		}
	}

	return out, nil
}

// Store many distance results in one transaction.
func (s *SqliteDistanceCache) PutMany(
	ctx context.Context,
	results map[ports.DistancePair]ports.DistanceResult,
) error {
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
	INSERT OR REPLACE INTO distance_cache (
        origin,
        destination,
        distance_meters,
        duration_seconds
    )
    VALUES (?, ?, ?, ?)
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
