package gateway

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthStatus is the body served at /health.
type HealthStatus struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

const healthTimeout = 5 * time.Second

func (h *Handler) checkHealth(ctx context.Context) HealthStatus {
	status := HealthStatus{Healthy: true, Checks: make(map[string]string, len(h.checks))}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			status.Healthy = false
			status.Checks[c.Name] = err.Error()
			continue
		}
		status.Checks[c.Name] = "ok"
	}
	return status
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := h.checkHealth(ctx)
	if !status.Healthy {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, status)
}
