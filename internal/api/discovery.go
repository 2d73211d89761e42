package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pregamehq/discovery-server/internal/discovery"
	"github.com/pregamehq/discovery-server/internal/domain"
)

// DiscoveryService is the orchestrator surface the handler consumes.
type DiscoveryService interface {
	Start(req domain.DiscoveryRequest) (string, error)
	Status(sessionID string) (*discovery.Snapshot, error)
	Results(sessionID string) ([]string, error)
}

// DiscoveryHandler handles discovery session endpoints.
type DiscoveryHandler struct {
	svc DiscoveryService
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(svc DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{svc: svc}
}

// RegisterRoutes registers discovery routes.
func (h *DiscoveryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/discovery", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Get("/status/{sessionID}", h.Status)
		r.Get("/results/{sessionID}", h.Results)
	})
}

// Start begins a new discovery session and returns its id immediately.
func (h *DiscoveryHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req domain.DiscoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID, err := h.svc.Start(req)
	if err != nil {
		var validationErr *discovery.ValidationError
		if errors.As(err, &validationErr) {
			Error(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		slog.Error("Failed to start discovery session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to start discovery")
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "started",
		"message":    "Discovery session started",
	})
}

// Status returns a snapshot of the session, including the activity log.
func (h *DiscoveryHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snapshot, err := h.svc.Status(sessionID)
	if err != nil {
		if errors.Is(err, discovery.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "Session not found")
			return
		}
		slog.Error("Failed to read session status", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to read session status")
		return
	}

	activityLog := snapshot.ActivityLog
	if activityLog == nil {
		activityLog = []discovery.ActivityEntry{}
	}

	resp := map[string]interface{}{
		"session_id":      snapshot.SessionID,
		"status":          snapshot.Stage,
		"current_stage":   snapshot.Stage,
		"progress":        snapshot.Progress,
		"prospects_count": snapshot.ProspectsCount,
		"created_at":      snapshot.CreatedAt,
		"activity_log":    activityLog,
	}
	if snapshot.CompletedAt != nil {
		resp["completed_at"] = snapshot.CompletedAt
	}
	if snapshot.Error != "" {
		resp["error"] = snapshot.Error
	}
	JSON(w, http.StatusOK, resp)
}

// Results returns the persisted profile ids for a completed session.
func (h *DiscoveryHandler) Results(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	profileIDs, err := h.svc.Results(sessionID)
	if err != nil {
		switch {
		case errors.Is(err, discovery.ErrSessionNotFound):
			Error(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, discovery.ErrSessionNotReady):
			Error(w, http.StatusBadRequest, "Discovery not completed")
		default:
			slog.Error("Failed to read session results", "session_id", sessionID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to read session results")
		}
		return
	}

	if profileIDs == nil {
		profileIDs = []string{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"prospects":  profileIDs,
		"status":     discovery.StageCompleted,
	})
}
