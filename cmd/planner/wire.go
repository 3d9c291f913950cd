package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"territory-route-service/internal/adapters/cache"
	"territory-route-service/internal/adapters/distance"
	"territory-route-service/internal/config"
	"territory-route-service/internal/geo"
	"territory-route-service/internal/platform/db"
	"territory-route-service/internal/ports"
	"territory-route-service/internal/services"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the wired planner and whatever must be released on exit.
type app struct {
	planner  *services.Planner
	provider string
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// wire is the composition root: it builds concrete adapters from cfg and
// hands them to the services behind ports.
func wire(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{provider: cfg.Distance.Provider}

	source, err := buildSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}

	if source != nil {
		distCache, err := buildCache(ctx, cfg, a)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("wire: %w", err)
		}
		if distCache != nil {
			source = distance.NewCachedSource(source, distCache, logger)
		}
	}

	ordering, err := services.ParseOrdering(cfg.Plan.Ordering)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("wire: %w", err)
	}

	builder := services.NewMatrixBuilder(source, services.MatrixOptions{
		MaxBatch:     cfg.Distance.MaxBatch,
		RateInterval: cfg.Distance.RateInterval,
		BatchTimeout: cfg.Distance.Timeout,
		Retries:      cfg.Distance.Retries,
		CrossTerms:   cfg.Distance.CrossTerms,
	}, logger)

	a.planner = services.NewPlanner(builder, geo.MercatorProjector{}, services.PlannerOptions{
		Partition: services.PartitionOptions{
			Restarts:      cfg.Plan.Restarts,
			MaxIterations: cfg.Plan.MaxIterations,
			Seed:          cfg.Plan.Seed,
			Tolerance:     cfg.Plan.Tolerance,
		},
		Ordering: ordering,
		Workers:  cfg.Plan.Workers,
	}, logger)

	logger.Info("planner wired",
		zap.String("provider", cfg.Distance.Provider),
		zap.String("cache", cfg.Cache.Driver),
		zap.Int("max_batch", cfg.Distance.MaxBatch),
		zap.Bool("cross_terms", cfg.Distance.CrossTerms),
		zap.Int("workers", cfg.Plan.Workers),
	)

	return a, nil
}

// buildSource returns nil for provider "none", which makes every bucket use
// great-circle distances.
func buildSource(cfg *config.Config) (ports.DistanceSource, error) {
	session := &http.Client{Timeout: cfg.Distance.Timeout}

	switch cfg.Distance.Provider {
	case "google":
		return distance.NewGoogleSource(cfg.Distance.GoogleAPIKey, cfg.Distance.BaseURL, session)
	case "ors":
		return distance.NewORSSource(cfg.Distance.ORSAPIKey, cfg.Distance.BaseURL, session)
	case "osrm":
		return distance.NewOSRMSource(cfg.Distance.BaseURL, session), nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("build source: unknown provider %q", cfg.Distance.Provider)
}

func buildCache(ctx context.Context, cfg *config.Config, a *app) (ports.DistanceCache, error) {
	switch cfg.Cache.Driver {
	case "", "none":
		return nil, nil

	case "sqlite":
		conn, err := db.OpenSQLite(cfg.Cache.DSN)
		if err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := initSchema(ctx, conn, cache.DialectSQLite); err != nil {
			return nil, err
		}
		return cache.NewSqliteDistanceCache(conn), nil

	case "postgres":
		conn, err := db.Open(cfg.Cache.DSN)
		if err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := initSchema(ctx, conn, cache.DialectPostgres); err != nil {
			return nil, err
		}
		return cache.NewSQLDistanceCache(conn), nil

	case "redis":
		opts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("build cache: parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("build cache: ping redis: %w", err)
		}
		return cache.NewRedisDistanceCache(client, "", cfg.Cache.TTL), nil
	}
	return nil, fmt.Errorf("build cache: unknown driver %q", cfg.Cache.Driver)
}

func initSchema(ctx context.Context, conn *sql.DB, dialect cache.Dialect) error {
	if err := cache.InitSchema(ctx, conn, dialect); err != nil {
		return fmt.Errorf("build cache: %w", err)
	}
	return nil
}
