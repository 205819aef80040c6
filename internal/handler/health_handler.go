package handler

import (
	"context"
	"net/http"
	"time"

	"profile-portal/pkg/apierror"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	contract       string
	sessionBackend string
	checks         map[string]HealthCheck
}

func NewHealthHandler(contract string, sessionBackend string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{contract: contract, sessionBackend: sessionBackend, checks: checks}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = "degraded"
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	payload := map[string]any{
		"status":          status,
		"contract":        h.contract,
		"session_backend": h.sessionBackend,
		"checks":          results,
	}
	if status != "ok" {
		writeFailure(w, apierror.New("UNHEALTHY", "dependency check failed", "", http.StatusServiceUnavailable), payload)
		return
	}

	writeSuccess(w, http.StatusOK, payload)
}
