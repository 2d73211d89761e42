package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pregamehq/discovery-server/internal/domain"
	"github.com/pregamehq/discovery-server/internal/store"
)

// memRepo is a minimal in-memory store.Repository for handler tests.
type memRepo struct {
	profiles map[string]*domain.ProspectProfile
}

func newMemRepo(profiles ...*domain.ProspectProfile) *memRepo {
	m := &memRepo{profiles: make(map[string]*domain.ProspectProfile)}
	for _, p := range profiles {
		m.profiles[p.ProfileID] = p
	}
	return m
}

func (m *memRepo) CreateProfile(_ context.Context, p *domain.ProspectProfile) error {
	m.profiles[p.ProfileID] = p
	return nil
}

func (m *memRepo) GetProfile(_ context.Context, id string) (*domain.ProspectProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	return p, nil
}

func (m *memRepo) ListProfiles(_ context.Context, filter store.ListFilter) ([]*domain.ProspectProfile, error) {
	var out []*domain.ProspectProfile
	for _, p := range m.profiles {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memRepo) CountProfiles(_ context.Context) (int64, error) {
	return int64(len(m.profiles)), nil
}

func (m *memRepo) UpdateProfileStatus(_ context.Context, id string, status domain.ProspectStatus) error {
	p, ok := m.profiles[id]
	if !ok {
		return store.ErrProfileNotFound
	}
	if !p.Status.CanAdvanceTo(status) {
		return fmt.Errorf("cannot move profile from %s to %s", p.Status, status)
	}
	p.Status = status
	return nil
}

func (m *memRepo) AddProfileNote(_ context.Context, id string, note domain.Note) error {
	p, ok := m.profiles[id]
	if !ok {
		return store.ErrProfileNotFound
	}
	p.Notes = append(p.Notes, note)
	return nil
}

func (m *memRepo) AddProfileTag(_ context.Context, id, tag string) error {
	p, ok := m.profiles[id]
	if !ok {
		return store.ErrProfileNotFound
	}
	p.Tags = append(p.Tags, tag)
	return nil
}

func (m *memRepo) AddProfileInteraction(_ context.Context, id string, interaction domain.Interaction) error {
	p, ok := m.profiles[id]
	if !ok {
		return store.ErrProfileNotFound
	}
	p.Interactions = append(p.Interactions, interaction)
	return nil
}

func (m *memRepo) DeleteProfile(_ context.Context, id string) error {
	if _, ok := m.profiles[id]; !ok {
		return store.ErrProfileNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *memRepo) GetStats(_ context.Context) (*store.Stats, error) {
	stats := &store.Stats{
		TotalProfiles: int64(len(m.profiles)),
		ByStatus:      make(map[domain.ProspectStatus]int64),
		ByRelevance:   make(map[domain.RelevanceScore]int64),
	}
	for _, p := range m.profiles {
		stats.ByStatus[p.Status]++
		stats.ByRelevance[p.GoalAlignment.RelevanceScore]++
	}
	return stats, nil
}

func (m *memRepo) Ping(context.Context) error { return nil }
func (m *memRepo) Close() error               { return nil }

var _ store.Repository = (*memRepo)(nil)

func testProfile(id string) *domain.ProspectProfile {
	return &domain.ProspectProfile{
		ProfileID:    id,
		Name:         "Acme Robotics",
		ProspectType: domain.ProspectTypeCompany,
		Status:       domain.StatusDiscovered,
		GoalAlignment: domain.GoalAlignment{
			RelevanceScore: domain.RelevanceHigh,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func newProfileRouter(repo store.Repository) *chi.Mux {
	r := chi.NewRouter()
	NewProfileHandler(repo).RegisterRoutes(r)
	return r
}

func TestProfileList(t *testing.T) {
	repo := newMemRepo(testProfile("p1"), testProfile("p2"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles?page=1&limit=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var got struct {
		Profiles   []json.RawMessage `json:"profiles"`
		Pagination struct {
			Total int64 `json:"total"`
			Page  int   `json:"page"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got.Profiles) != 2 {
		t.Errorf("Expected 2 profiles, got %d", len(got.Profiles))
	}
	if got.Pagination.Total != 2 {
		t.Errorf("Expected total=2, got %d", got.Pagination.Total)
	}
}

func TestProfileListEmpty(t *testing.T) {
	r := newProfileRouter(newMemRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"profiles":[]`) {
		t.Errorf("Expected empty list, not null: %s", w.Body.String())
	}
}

func TestProfileGet(t *testing.T) {
	repo := newMemRepo(testProfile("p1"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/p1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var got domain.ProspectProfile
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Name != "Acme Robotics" {
		t.Errorf("Expected Acme Robotics, got %q", got.Name)
	}
}

func TestProfileGetNotFound(t *testing.T) {
	r := newProfileRouter(newMemRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestProfileUpdateStatus(t *testing.T) {
	repo := newMemRepo(testProfile("p1"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/p1/status", strings.NewReader(`{"status":"contacted"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if repo.profiles["p1"].Status != domain.StatusContacted {
		t.Errorf("Expected contacted, got %s", repo.profiles["p1"].Status)
	}
}

func TestProfileUpdateStatusInvalid(t *testing.T) {
	repo := newMemRepo(testProfile("p1"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/p1/status", strings.NewReader(`{"status":"bogus"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestProfileUpdateStatusBackwards(t *testing.T) {
	p := testProfile("p1")
	p.Status = domain.StatusConverted
	r := newProfileRouter(newMemRepo(p))

	req := httptest.NewRequest(http.MethodPut, "/api/profiles/p1/status", strings.NewReader(`{"status":"discovered"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for backwards transition, got %d", w.Code)
	}
}

func TestProfileAddNote(t *testing.T) {
	repo := newMemRepo(testProfile("p1"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/p1/notes", strings.NewReader(`{"note":"spoke at conference"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	notes := repo.profiles["p1"].Notes
	if len(notes) != 1 || notes[0].Text != "spoke at conference" {
		t.Errorf("Note not stored: %+v", notes)
	}
	if notes[0].Category != "general" {
		t.Errorf("Expected default category general, got %q", notes[0].Category)
	}
}

func TestProfileAddNoteMissingBody(t *testing.T) {
	r := newProfileRouter(newMemRepo(testProfile("p1")))

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/p1/notes", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestProfileAddTag(t *testing.T) {
	repo := newMemRepo(testProfile("p1"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/p1/tags", strings.NewReader(`{"tag":"priority"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if tags := repo.profiles["p1"].Tags; len(tags) != 1 || tags[0] != "priority" {
		t.Errorf("Tag not stored: %v", tags)
	}
}

func TestProfileAddInteraction(t *testing.T) {
	repo := newMemRepo(testProfile("p1"))
	r := newProfileRouter(repo)

	body := `{"type":"email","content":"intro sent","outcome":"awaiting reply"}`
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/p1/interactions", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	interactions := repo.profiles["p1"].Interactions
	if len(interactions) != 1 {
		t.Fatalf("Expected 1 interaction, got %d", len(interactions))
	}
	got := interactions[0]
	if got.Type != "email" || got.Content != "intro sent" || got.Outcome != "awaiting reply" {
		t.Errorf("Interaction not stored correctly: %+v", got)
	}
	if got.User != "system" {
		t.Errorf("Expected user system, got %q", got.User)
	}
	if got.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestProfileAddInteractionMissingFields(t *testing.T) {
	r := newProfileRouter(newMemRepo(testProfile("p1")))

	for _, body := range []string{`{}`, `{"type":"call"}`, `{"content":"no type"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/profiles/p1/interactions", strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for body %s, got %d", body, w.Code)
		}
	}
}

func TestProfileAddInteractionNotFound(t *testing.T) {
	r := newProfileRouter(newMemRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/nope/interactions", strings.NewReader(`{"type":"call","content":"hi"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestProfileDelete(t *testing.T) {
	repo := newMemRepo(testProfile("p1"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/profiles/p1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if len(repo.profiles) != 0 {
		t.Error("Profile not deleted")
	}
}

func TestStats(t *testing.T) {
	converted := testProfile("p2")
	converted.Status = domain.StatusConverted
	repo := newMemRepo(testProfile("p1"), converted)
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var got struct {
		TotalProfiles     int64 `json:"total_profiles"`
		EngagementMetrics struct {
			ContactedProfiles float64 `json:"contacted_profiles"`
			ConversionRate    float64 `json:"conversion_rate"`
		} `json:"engagement_metrics"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.TotalProfiles != 2 {
		t.Errorf("Expected total_profiles=2, got %d", got.TotalProfiles)
	}
	if got.EngagementMetrics.ConversionRate != 100 {
		t.Errorf("Expected conversion_rate=100, got %v", got.EngagementMetrics.ConversionRate)
	}
}

func TestStatsRecentActivity(t *testing.T) {
	repo := newMemRepo(testProfile("p1"), testProfile("p2"))
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var got struct {
		RecentActivity []struct {
			ProfileID      string `json:"profile_id"`
			Name           string `json:"name"`
			Status         string `json:"status"`
			RelevanceScore string `json:"relevance_score"`
		} `json:"recent_activity"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got.RecentActivity) != 2 {
		t.Fatalf("Expected 2 recent entries, got %d", len(got.RecentActivity))
	}
	entry := got.RecentActivity[0]
	if entry.ProfileID == "" || entry.Name == "" || entry.Status == "" || entry.RelevanceScore == "" {
		t.Errorf("Recent entry missing fields: %+v", entry)
	}
}

func TestCharts(t *testing.T) {
	p1 := testProfile("p1")
	p1.Industry = "Robotics"
	p2 := testProfile("p2")
	p2.Status = domain.StatusContacted
	p2.GoalAlignment.RelevanceScore = domain.RelevanceMedium
	repo := newMemRepo(p1, p2)
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/charts", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var got struct {
		StatusDistribution    map[string]int `json:"status_distribution"`
		RelevanceDistribution map[string]int `json:"relevance_distribution"`
		DiscoveryTimeline     map[string]int `json:"discovery_timeline"`
		IndustryDistribution  map[string]int `json:"industry_distribution"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.StatusDistribution["discovered"] != 1 || got.StatusDistribution["contacted"] != 1 {
		t.Errorf("Unexpected status distribution: %v", got.StatusDistribution)
	}
	if got.RelevanceDistribution["High"] != 1 || got.RelevanceDistribution["Medium"] != 1 {
		t.Errorf("Unexpected relevance distribution: %v", got.RelevanceDistribution)
	}
	month := time.Now().Format("2006-01")
	if got.DiscoveryTimeline[month] != 2 {
		t.Errorf("Expected 2 profiles in %s, got %v", month, got.DiscoveryTimeline)
	}
	// Profiles without an industry bucket under Unknown.
	if got.IndustryDistribution["Robotics"] != 1 || got.IndustryDistribution["Unknown"] != 1 {
		t.Errorf("Unexpected industry distribution: %v", got.IndustryDistribution)
	}
}

func TestExportCSV(t *testing.T) {
	p := testProfile("p1")
	p.Industry = "Robotics"
	p.ContactInfo.Email = "hello@acme.example"
	repo := newMemRepo(p)
	r := newProfileRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/export", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, "profiles_export_") {
		t.Errorf("Unexpected Content-Disposition: %q", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header + 1 record, got %d rows", len(records))
	}
	if records[0][0] != "profile_id" || records[0][1] != "name" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "p1" || row[1] != "Acme Robotics" || row[4] != "Robotics" {
		t.Errorf("Unexpected record: %v", row)
	}
	if row[8] != "hello@acme.example" {
		t.Errorf("Expected email in column 9, got %q", row[8])
	}
}
