package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pregamehq/discovery-server/internal/domain"
	"github.com/pregamehq/discovery-server/internal/shared"
	"github.com/pregamehq/discovery-server/internal/store"
)

// ProfileHandler handles prospect profile endpoints consumed by the dashboard.
type ProfileHandler struct {
	repo store.Repository
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(repo store.Repository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

// RegisterRoutes registers profile and analytics routes.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/profiles", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/export", h.Export)
		r.Get("/{profileID}", h.Get)
		r.Put("/{profileID}/status", h.UpdateStatus)
		r.Post("/{profileID}/notes", h.AddNote)
		r.Post("/{profileID}/tags", h.AddTag)
		r.Post("/{profileID}/interactions", h.AddInteraction)
		r.Delete("/{profileID}", h.Delete)
	})
	r.Get("/api/analytics/stats", h.Stats)
	r.Get("/api/analytics/charts", h.Charts)
}

// List returns profiles with pagination and optional filters.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := store.ListFilter{
		Company:   r.URL.Query().Get("company"),
		Goal:      r.URL.Query().Get("goal"),
		Status:    domain.ProspectStatus(r.URL.Query().Get("status")),
		Relevance: domain.RelevanceScore(r.URL.Query().Get("relevance")),
		Name:      r.URL.Query().Get("name"),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	profiles, err := h.repo.ListProfiles(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list profiles", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}

	total, err := h.repo.CountProfiles(r.Context())
	if err != nil {
		slog.Error("Failed to count profiles", "error", err)
		Error(w, http.StatusInternalServerError, "failed to count profiles")
		return
	}

	if profiles == nil {
		profiles = []*domain.ProspectProfile{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"pagination": map[string]interface{}{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// Get returns one profile in full.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	profile, err := h.repo.GetProfile(r.Context(), profileID)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		slog.Error("Failed to get profile", "profile_id", profileID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	JSON(w, http.StatusOK, profile)
}

// UpdateStatus advances a profile's engagement status.
func (h *ProfileHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		Error(w, http.StatusBadRequest, "Status is required")
		return
	}

	status := domain.ProspectStatus(body.Status)
	if !status.Valid() {
		Error(w, http.StatusBadRequest, "Invalid status")
		return
	}

	err := h.updateStatusWithRetry(r.Context(), profileID, status)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		slog.Error("Failed to update profile status", "profile_id", profileID, "error", err)
		Error(w, http.StatusConflict, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Status updated"})
}

// updateStatusWithRetry retries status updates with exponential backoff when
// SQLite reports the database busy or locked.
func (h *ProfileHandler) updateStatusWithRetry(ctx context.Context, profileID string, status domain.ProspectStatus) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = h.repo.UpdateProfileStatus(ctx, profileID, status)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Database locked during status update, retrying",
				"profile_id", profileID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
		}
	}
	return err
}

// AddNote appends a note to a profile.
func (h *ProfileHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var body struct {
		Note     string `json:"note"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Note == "" {
		Error(w, http.StatusBadRequest, "Note is required")
		return
	}
	if body.Category == "" {
		body.Category = "general"
	}

	note := domain.Note{Text: body.Note, Category: body.Category, CreatedAt: time.Now()}
	if err := h.repo.AddProfileNote(r.Context(), profileID, note); err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		slog.Error("Failed to add note", "profile_id", profileID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to add note")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Note added"})
}

// AddTag appends a tag to a profile.
func (h *ProfileHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var body struct {
		Tag string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Tag == "" {
		Error(w, http.StatusBadRequest, "Tag is required")
		return
	}

	if err := h.repo.AddProfileTag(r.Context(), profileID, body.Tag); err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		slog.Error("Failed to add tag", "profile_id", profileID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to add tag")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Tag added"})
}

// AddInteraction records a touchpoint with a prospect.
func (h *ProfileHandler) AddInteraction(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var body struct {
		Type    string `json:"type"`
		Content string `json:"content"`
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Type == "" || body.Content == "" {
		Error(w, http.StatusBadRequest, "Type and content are required")
		return
	}

	interaction := domain.Interaction{
		Type:      body.Type,
		Content:   body.Content,
		Outcome:   body.Outcome,
		User:      "system",
		Timestamp: time.Now(),
	}
	if err := h.repo.AddProfileInteraction(r.Context(), profileID, interaction); err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		slog.Error("Failed to add interaction", "profile_id", profileID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to add interaction")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Interaction added"})
}

// Delete removes a profile.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	if err := h.repo.DeleteProfile(r.Context(), profileID); err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			Error(w, http.StatusNotFound, "Profile not found")
			return
		}
		slog.Error("Failed to delete profile", "profile_id", profileID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Profile deleted"})
}

// Stats returns aggregate analytics for the dashboard.
func (h *ProfileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		slog.Error("Failed to get stats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	contacted := stats.ByStatus[domain.StatusContacted] +
		stats.ByStatus[domain.StatusEngaged] +
		stats.ByStatus[domain.StatusConverted]
	converted := stats.ByStatus[domain.StatusConverted]

	conversionRate := 0.0
	if contacted > 0 {
		conversionRate = float64(converted) / float64(contacted) * 100
	}

	recent, err := h.repo.ListProfiles(r.Context(), store.ListFilter{Limit: 10})
	if err != nil {
		slog.Error("Failed to list recent profiles", "error", err)
		Error(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	recentActivity := make([]map[string]interface{}, 0, len(recent))
	for _, p := range recent {
		recentActivity = append(recentActivity, map[string]interface{}{
			"profile_id":      p.ProfileID,
			"name":            p.Name,
			"created_at":      p.CreatedAt,
			"status":          p.Status,
			"relevance_score": p.GoalAlignment.RelevanceScore,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"total_profiles":         stats.TotalProfiles,
		"status_distribution":    stats.ByStatus,
		"relevance_distribution": stats.ByRelevance,
		"engagement_metrics": map[string]interface{}{
			"contacted_profiles":      contacted,
			"converted_profiles":      converted,
			"conversion_rate":         conversionRate,
			"high_relevance_profiles": stats.ByRelevance[domain.RelevanceHigh],
		},
		"recent_activity": recentActivity,
	})
}

// Charts returns aggregated series for the dashboard charts.
func (h *ProfileHandler) Charts(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.repo.ListProfiles(r.Context(), store.ListFilter{})
	if err != nil {
		slog.Error("Failed to list profiles for charts", "error", err)
		Error(w, http.StatusInternalServerError, "failed to get chart data")
		return
	}

	statusDist := make(map[domain.ProspectStatus]int)
	relevanceDist := make(map[domain.RelevanceScore]int)
	timeline := make(map[string]int)
	industryDist := make(map[string]int)

	for _, p := range profiles {
		statusDist[p.Status]++
		relevanceDist[p.GoalAlignment.RelevanceScore]++
		timeline[p.CreatedAt.Format("2006-01")]++
		industry := p.Industry
		if industry == "" {
			industry = "Unknown"
		}
		industryDist[industry]++
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status_distribution":    statusDist,
		"relevance_distribution": relevanceDist,
		"discovery_timeline":     timeline,
		"industry_distribution":  industryDist,
	})
}

// Export streams all profiles as a CSV attachment.
func (h *ProfileHandler) Export(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.repo.ListProfiles(r.Context(), store.ListFilter{})
	if err != nil {
		slog.Error("Failed to list profiles for export", "error", err)
		Error(w, http.StatusInternalServerError, "failed to export profiles")
		return
	}

	filename := fmt.Sprintf("profiles_export_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	header := []string{
		"profile_id", "name", "prospect_type", "business_description",
		"industry", "location", "status", "relevance_score",
		"email", "phone", "linkedin", "website",
		"company_goal", "discovering_company", "created_at", "updated_at",
	}
	if err := cw.Write(header); err != nil {
		slog.Error("Failed to write CSV header", "error", err)
		return
	}
	for _, p := range profiles {
		record := []string{
			p.ProfileID, p.Name, string(p.ProspectType), p.BusinessDescription,
			p.Industry, p.Location, string(p.Status), string(p.GoalAlignment.RelevanceScore),
			p.ContactInfo.Email, p.ContactInfo.Phone, p.ContactInfo.LinkedIn, p.ContactInfo.Website,
			p.DiscoveryMetadata.CompanyGoal, p.DiscoveryMetadata.DiscoveringCompany,
			p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			slog.Error("Failed to write CSV record", "profile_id", p.ProfileID, "error", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("Failed to flush CSV", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
