package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Dias221467/habit_tracker/pkg/logger"
)

// Probe checks one dependency of the service.
type Probe func(ctx context.Context) error

// HealthHandler reports the status of the registered probes.
type HealthHandler struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewHealthHandler(probes map[string]Probe) *HealthHandler {
	return &HealthHandler{probes: probes, timeout: 3 * time.Second}
}

// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.probes))
	healthy := true
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			logger.Log.WithError(err).WithField("probe", name).Warn("Health probe failed")
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "Service unavailable", Data: status})
		return
	}
	respondOK(w, "OK", status)
}
