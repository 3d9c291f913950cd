package api

import (
	"net/http"
	"territory-route-service/internal/api/handlers"
	"territory-route-service/internal/platform/metrics"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	Version      string
	Provider     string
	NameColumn   string
	MaxBodyBytes int64
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(planner handlers.RoutePlanner, opts Options, logger *zap.Logger) http.Handler {
	metrics.RegisterDefault()

	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Version: opts.Version, Provider: opts.Provider, Started: time.Now()}
	planHandler := &handlers.PlanHandler{
		Planner:      planner,
		NameColumn:   opts.NameColumn,
		MaxBodyBytes: opts.MaxBodyBytes,
	}

	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/plans", planHandler.Plan)
	mux.HandleFunc("/partitions", planHandler.Partition)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return requestIDMiddleware(loggingMiddleware(logger, mux))
}
