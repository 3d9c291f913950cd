package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"territory-route-service/internal/adapters/export"
	"territory-route-service/internal/adapters/repositories"
	"territory-route-service/internal/config"
	"territory-route-service/internal/domain"
	"territory-route-service/internal/services"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func newPlanCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan [input]",
		Short: "Plan territories, days and routes for a CSV or XLSX file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && !cmd.Flags().Changed("input") {
				if err := cmd.Flags().Set("input", args[0]); err != nil {
					return err
				}
			}
			return runPlan(cmd, root)
		},
	}

	f := cmd.Flags()
	f.IntP("territories", "k", 0, "number of territories (employees); prompted when 0")
	f.IntP("days", "d", 0, "number of days per territory; prompted when 0")
	f.StringP("input", "i", "", "input .csv or .xlsx file")
	f.String("sheet", "", "worksheet to read (default: first sheet)")
	f.StringP("output", "o", "routes.xlsx", "output .csv or .xlsx file")
	f.String("provider", "google", "distance provider (google, osrm, ors, none)")
	f.Int("max-batch", 25, "max origins/destinations per distance query")
	f.Bool("cross-terms", true, "query distances between halves of split buckets")
	f.Int("retries", 1, "re-issues of a failed distance batch")
	f.Duration("rate-interval", 100*time.Millisecond, "minimum spacing between distance queries")
	f.String("cache", "none", "distance cache (none, sqlite, postgres, redis)")
	f.String("cache-dsn", "", "cache database DSN or file path")
	f.Int64("seed", 42, "k-means random seed")
	f.Int("restarts", 20, "k-means restarts")
	f.String("ordering", "latlon", "day slicing order (latlon, hilbert)")
	f.Int("workers", 1, "buckets planned concurrently")

	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions) error {
	if err := checkExplicitCounts(cmd.Flags()); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("plan: %w: an input file is required", domain.ErrConfiguration)
	}

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	if cfg.Territories == 0 {
		if cfg.Territories, err = promptCount(in, out, "Enter number of clusters (employees): ", "territories"); err != nil {
			return err
		}
	}
	if cfg.Days == 0 {
		if cfg.Days, err = promptCount(in, out, "Enter number of days: ", "days"); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	repo, err := repositories.NewPointRepository(cfg.Input, cfg.Sheet, logger)
	if err != nil {
		return err
	}
	writer, err := export.NewRouteWriter(cfg.Output)
	if err != nil {
		return err
	}

	plan, err := services.PlanRoutes(ctx, a.planner, repo, writer, cfg.Territories, cfg.Days)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("planning interrupted")
		}
		return err
	}

	logger.Info("routes written",
		zap.String("output", cfg.Output),
		zap.String("run_id", plan.RunID),
		zap.Int("points", len(plan.Dataset.Points)),
		zap.Int("routes", len(plan.Routes)),
		zap.Int("fallback_routes", plan.FallbackCount()),
	)
	fmt.Fprintf(out, "Wrote %d routes for %d points to %s\n", len(plan.Routes), len(plan.Dataset.Points), cfg.Output)
	return nil
}

// checkExplicitCounts rejects counts given on the command line that are not
// positive; only absent counts are prompted for.
func checkExplicitCounts(flags *pflag.FlagSet) error {
	for _, name := range []string{"territories", "days"} {
		if !flags.Changed(name) {
			continue
		}
		n, err := flags.GetInt(name)
		if err != nil {
			return fmt.Errorf("plan: %w: %s: %w", domain.ErrConfiguration, name, err)
		}
		if n < 1 {
			return fmt.Errorf("plan: %w: %s must be >= 1, got %d", domain.ErrConfiguration, name, n)
		}
	}
	return nil
}

// promptCount asks until a positive whole number is entered or input ends.
func promptCount(in *bufio.Reader, out io.Writer, prompt, name string) (int, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := in.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			n, perr := config.ParseCount(name, line)
			if perr == nil {
				return n, nil
			}
			fmt.Fprintln(out, perr)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("plan: %w: %s not provided", domain.ErrConfiguration, name)
			}
			return 0, fmt.Errorf("plan: read %s: %w", name, err)
		}
	}
}
