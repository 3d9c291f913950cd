package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/ports"
)

// Dialect selects the SQL flavour for schema creation.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectPostgres, "postgresql", "pgx":
		return DialectPostgres, nil
	case DialectSQLite, "sqlite3":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("parse dialect: %w: unknown database dialect %q", domain.ErrConfiguration, s)
}

// Initialize the distance cache schema.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	var statements []string
	switch dialect {
	case DialectPostgres:
		statements = []string{`
		CREATE TABLE IF NOT EXISTS distance_cache (
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            distance_meters INTEGER NOT NULL,
            duration_seconds INTEGER NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (origin, destination)
        );
		`}
	case DialectSQLite:
		statements = []string{`
		CREATE TABLE IF NOT EXISTS distance_cache (
            origin TEXT NOT NULL,
            destination TEXT NOT NULL,
            distance_meters INTEGER NOT NULL,
            duration_seconds INTEGER NOT NULL,
            created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (origin, destination)
        );
		`}
	default:
		return fmt.Errorf("init schema: %w: unsupported dialect %q", domain.ErrConfiguration, dialect)
	}

	statements = append(statements, `
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
    ON distance_cache(destination, origin);
	`)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type DistanceSeed struct {
	Origin          domain.Coordinates `json:"origin"`
	Destination     domain.Coordinates `json:"destination"`
	DistanceMeters  int                `json:"distance_meters"`
	DurationSeconds int                `json:"duration_seconds"`
}

// Preload a distance cache from a JSON array of DistanceSeed values.
// It returns the number of pairs written.
func SeedFromJSON(ctx context.Context, c ports.DistanceCache, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed distances: read %q: %w", jsonPath, err)
	}

	var data []DistanceSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed distances: parse json: %w", err)
	}

	results := make(map[ports.DistancePair]ports.DistanceResult, len(data))
	for i, item := range data {
		if !item.Origin.Valid() || !item.Destination.Valid() {
			return 0, fmt.Errorf("seed distances: item %d: coordinates out of range", i+1)
		}
		if item.DistanceMeters < 0 || item.DurationSeconds < 0 {
			return 0, fmt.Errorf("seed distances: item %d: negative distance or duration", i+1)
		}
		p := ports.DistancePair{Origin: item.Origin.Key(), Destination: item.Destination.Key()}
		results[p] = ports.DistanceResult{DistanceMeters: item.DistanceMeters, DurationSeconds: item.DurationSeconds}
	}

	if err := c.PutMany(ctx, results); err != nil {
		return 0, fmt.Errorf("seed distances: %w", err)
	}

	return len(results), nil
}
