package handlers

import (
	"net/http"
	"time"
)

// HealthHandler serves a liveness check with build and uptime details.
type HealthHandler struct {
	Version  string
	Provider string
	Started  time.Time
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res := map[string]any{
		"status":          "ok",
		"version":         h.Version,
		"distance_source": h.Provider,
		"uptime_seconds":  int(time.Since(h.Started).Seconds()),
	}
	writeJSON(w, r, http.StatusOK, res)
}
