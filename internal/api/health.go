package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pregamehq/discovery-server/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// ResearchChecker reports whether the research provider is reachable.
type ResearchChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports readiness of the API and its dependencies.
type HealthHandler struct {
	repo     store.Repository
	research ResearchChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, research ResearchChecker) *HealthHandler {
	return &HealthHandler{repo: repo, research: research}
}

// RegisterHealth registers the health check routes. Both paths serve the same
// report; /api/health exists for dashboard clients that prefix everything.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/api/health", h.Health)
}

// Health returns the health status of the API and its dependencies. The
// research provider being down degrades the report but does not fail it;
// profile reads still work without it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.research != nil {
		if err := h.research.Health(ctx); err != nil {
			slog.Warn("Research provider unreachable", "error", err)
			status = "degraded"
			checks["research"] = "unreachable"
		} else {
			checks["research"] = "ok"
		}
	}

	JSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
