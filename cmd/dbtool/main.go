// Command dbtool creates the distance cache schema and optionally seeds it
// from a JSON file of known distances.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"territory-route-service/internal/adapters/cache"
	"territory-route-service/internal/config"
	"territory-route-service/internal/platform/db"
	"territory-route-service/internal/platform/obs"
	"territory-route-service/internal/ports"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	logger, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), logger); err != nil {
		logger.Fatal("dbtool failed", zap.Error(err))
	}
}

// setup loads .env before anything reads the environment, then builds the
// logger from LOG_LEVEL and LOG_FORMAT.
func setup() (*zap.Logger, error) {
	envErr := godotenv.Load()

	logger, err := obs.NewLogger(config.Get("LOG_LEVEL", "info"), config.Get("LOG_FORMAT", "console"))
	if err != nil {
		return nil, err
	}
	if envErr != nil {
		logger.Info("no .env file found (using environment variables)")
	}
	return logger, nil
}

func run(ctx context.Context, logger *zap.Logger) error {
	dialect, err := cache.ParseDialect(config.Get("DB_DIALECT", string(cache.DialectPostgres)))
	if err != nil {
		return err
	}

	dsn := config.Get("DATABASE_URL", "")
	if dialect == cache.DialectSQLite {
		dsn = config.Get("DB_PATH", dsn)
	}
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("dbtool: DATABASE_URL (or DB_PATH for sqlite) is required")
	}

	conn, distCache, err := open(dialect, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("initializing database schema", zap.String("dialect", string(dialect)))
	if err := cache.InitSchema(ctx, conn, dialect); err != nil {
		return err
	}
	logger.Info("schema ready")

	seedPath := config.Get("SEED_PATH", "")
	if seedPath == "" {
		return nil
	}

	logger.Info("seeding distance cache", zap.String("path", seedPath))
	n, err := cache.SeedFromJSON(ctx, distCache, seedPath)
	if err != nil {
		return err
	}
	logger.Info("seeding complete", zap.Int("pairs", n))

	return nil
}

func open(dialect cache.Dialect, dsn string) (*sql.DB, ports.DistanceCache, error) {
	if dialect == cache.DialectSQLite {
		conn, err := db.OpenSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		return conn, cache.NewSqliteDistanceCache(conn), nil
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	return conn, cache.NewSQLDistanceCache(conn), nil
}
