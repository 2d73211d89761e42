package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pregamehq/discovery-server/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	profileMu sync.Mutex // serializes read-modify-write profile updates to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		profile_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		prospect_type TEXT NOT NULL,
		business_description TEXT,
		industry TEXT,
		location TEXT,
		contact_json TEXT NOT NULL,
		relevance_score TEXT NOT NULL,
		fit_reasons_json TEXT NOT NULL,
		potential_value TEXT,
		approach_priority TEXT,
		discovering_company TEXT NOT NULL,
		company_goal TEXT NOT NULL,
		session_id TEXT NOT NULL,
		source_query TEXT,
		discovered_at INTEGER NOT NULL,
		recent_activities_json TEXT NOT NULL,
		pain_points_json TEXT NOT NULL,
		buying_signals_json TEXT NOT NULL,
		status TEXT NOT NULL,
		notes_json TEXT NOT NULL,
		tags_json TEXT NOT NULL,
		interactions_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_status ON profiles(status);
	CREATE INDEX IF NOT EXISTS idx_profiles_relevance ON profiles(relevance_score);
	CREATE INDEX IF NOT EXISTS idx_profiles_session ON profiles(session_id);
	CREATE INDEX IF NOT EXISTS idx_profiles_created ON profiles(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateProfile persists a new profile keyed by its profile ID.
func (s *SQLiteStore) CreateProfile(ctx context.Context, profile *domain.ProspectProfile) error {
	contactJSON, err := json.Marshal(profile.ContactInfo)
	if err != nil {
		return fmt.Errorf("marshal contact info: %w", err)
	}
	fitReasonsJSON, err := marshalList(profile.GoalAlignment.FitReasons)
	if err != nil {
		return fmt.Errorf("marshal fit reasons: %w", err)
	}
	activitiesJSON, err := marshalList(profile.RecentActivities)
	if err != nil {
		return fmt.Errorf("marshal recent activities: %w", err)
	}
	painPointsJSON, err := marshalList(profile.PainPoints)
	if err != nil {
		return fmt.Errorf("marshal pain points: %w", err)
	}
	signalsJSON, err := marshalList(profile.BuyingSignals)
	if err != nil {
		return fmt.Errorf("marshal buying signals: %w", err)
	}
	notesJSON, err := json.Marshal(emptyIfNilNotes(profile.Notes))
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	tagsJSON, err := marshalList(profile.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	interactionsJSON, err := json.Marshal(emptyIfNilInteractions(profile.Interactions))
	if err != nil {
		return fmt.Errorf("marshal interactions: %w", err)
	}

	query := `
	INSERT INTO profiles (
		profile_id, name, prospect_type, business_description, industry, location,
		contact_json, relevance_score, fit_reasons_json, potential_value, approach_priority,
		discovering_company, company_goal, session_id, source_query, discovered_at,
		recent_activities_json, pain_points_json, buying_signals_json,
		status, notes_json, tags_json, interactions_json, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		profile.ProfileID, profile.Name, string(profile.ProspectType),
		profile.BusinessDescription, profile.Industry, profile.Location,
		string(contactJSON), string(profile.GoalAlignment.RelevanceScore),
		string(fitReasonsJSON), profile.GoalAlignment.PotentialValue, profile.GoalAlignment.ApproachPriority,
		profile.DiscoveryMetadata.DiscoveringCompany, profile.DiscoveryMetadata.CompanyGoal,
		profile.DiscoveryMetadata.SessionID, profile.DiscoveryMetadata.SourceQuery,
		profile.DiscoveryMetadata.DiscoveredAt.Unix(),
		string(activitiesJSON), string(painPointsJSON), string(signalsJSON),
		string(profile.Status), string(notesJSON), string(tagsJSON), string(interactionsJSON),
		profile.CreatedAt.Unix(), profile.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

const profileColumns = `
	profile_id, name, prospect_type, business_description, industry, location,
	contact_json, relevance_score, fit_reasons_json, potential_value, approach_priority,
	discovering_company, company_goal, session_id, source_query, discovered_at,
	recent_activities_json, pain_points_json, buying_signals_json,
	status, notes_json, tags_json, interactions_json, created_at, updated_at`

// GetProfile retrieves a profile by ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, profileID string) (*domain.ProspectProfile, error) {
	query := `SELECT` + profileColumns + ` FROM profiles WHERE profile_id = ?`

	row := s.db.QueryRowContext(ctx, query, profileID)
	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}
	return profile, nil
}

// ListProfiles retrieves profiles matching the filter, newest first.
func (s *SQLiteStore) ListProfiles(ctx context.Context, filter ListFilter) ([]*domain.ProspectProfile, error) {
	query := `SELECT` + profileColumns + ` FROM profiles`
	var conds []string
	var args []interface{}

	if filter.Company != "" {
		conds = append(conds, "discovering_company = ?")
		args = append(args, filter.Company)
	}
	if filter.Goal != "" {
		conds = append(conds, "company_goal = ?")
		args = append(args, filter.Goal)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Relevance != "" {
		conds = append(conds, "relevance_score = ?")
		args = append(args, string(filter.Relevance))
	}
	if filter.Name != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, profile_id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close profile rows", "error", closeErr)
		}
	}()

	var profiles []*domain.ProspectProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// CountProfiles returns the total number of stored profiles.
func (s *SQLiteStore) CountProfiles(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

// UpdateProfileStatus advances a profile's engagement status.
func (s *SQLiteStore) UpdateProfileStatus(ctx context.Context, profileID string, status domain.ProspectStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	current, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if !current.Status.CanAdvanceTo(status) {
		return fmt.Errorf("status cannot move from %q to %q", current.Status, status)
	}

	query := `UPDATE profiles SET status = ?, updated_at = ? WHERE profile_id = ?`
	result, err := s.db.ExecContext(ctx, query, string(status), time.Now().Unix(), profileID)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// AddProfileNote appends a note to a profile.
func (s *SQLiteStore) AddProfileNote(ctx context.Context, profileID string, note domain.Note) error {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	profile, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}

	notes := append(profile.Notes, note)
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	query := `UPDATE profiles SET notes_json = ?, updated_at = ? WHERE profile_id = ?`
	if _, err := s.db.ExecContext(ctx, query, string(notesJSON), time.Now().Unix(), profileID); err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	return nil
}

// AddProfileTag appends a tag to a profile if not already present.
func (s *SQLiteStore) AddProfileTag(ctx context.Context, profileID string, tag string) error {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	profile, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}

	for _, existing := range profile.Tags {
		if existing == tag {
			return nil
		}
	}

	tagsJSON, err := marshalList(append(profile.Tags, tag))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `UPDATE profiles SET tags_json = ?, updated_at = ? WHERE profile_id = ?`
	if _, err := s.db.ExecContext(ctx, query, string(tagsJSON), time.Now().Unix(), profileID); err != nil {
		return fmt.Errorf("update tags: %w", err)
	}
	return nil
}

// AddProfileInteraction appends an interaction record to a profile.
func (s *SQLiteStore) AddProfileInteraction(ctx context.Context, profileID string, interaction domain.Interaction) error {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	profile, err := s.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}

	interactionsJSON, err := json.Marshal(append(profile.Interactions, interaction))
	if err != nil {
		return fmt.Errorf("marshal interactions: %w", err)
	}

	query := `UPDATE profiles SET interactions_json = ?, updated_at = ? WHERE profile_id = ?`
	if _, err := s.db.ExecContext(ctx, query, string(interactionsJSON), time.Now().Unix(), profileID); err != nil {
		return fmt.Errorf("update interactions: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, profileID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE profile_id = ?`, profileID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// GetStats returns aggregate counts for analytics.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:    make(map[domain.ProspectStatus]int64),
		ByRelevance: make(map[domain.RelevanceScore]int64),
	}

	total, err := s.CountProfiles(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalProfiles = total

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM profiles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query status distribution: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close status rows", "error", closeErr)
		}
	}()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		stats.ByStatus[domain.ProspectStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rows: %w", err)
	}

	relRows, err := s.db.QueryContext(ctx, `SELECT relevance_score, COUNT(*) FROM profiles GROUP BY relevance_score`)
	if err != nil {
		return nil, fmt.Errorf("query relevance distribution: %w", err)
	}
	defer func() {
		if closeErr := relRows.Close(); closeErr != nil {
			slog.Warn("failed to close relevance rows", "error", closeErr)
		}
	}()
	for relRows.Next() {
		var relevance string
		var count int64
		if err := relRows.Scan(&relevance, &count); err != nil {
			return nil, fmt.Errorf("scan relevance row: %w", err)
		}
		stats.ByRelevance[domain.RelevanceScore(relevance)] = count
	}
	if err := relRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relevance rows: %w", err)
	}

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*domain.ProspectProfile, error) {
	var profile domain.ProspectProfile
	var prospectType, relevance, status string
	var businessDescription, industry, location, potentialValue, approachPriority, sourceQuery sql.NullString
	var contactJSON, fitReasonsJSON, activitiesJSON, painPointsJSON, signalsJSON, notesJSON, tagsJSON, interactionsJSON string
	var discoveredAt, createdAt, updatedAt int64

	err := row.Scan(
		&profile.ProfileID, &profile.Name, &prospectType,
		&businessDescription, &industry, &location,
		&contactJSON, &relevance, &fitReasonsJSON, &potentialValue, &approachPriority,
		&profile.DiscoveryMetadata.DiscoveringCompany, &profile.DiscoveryMetadata.CompanyGoal,
		&profile.DiscoveryMetadata.SessionID, &sourceQuery, &discoveredAt,
		&activitiesJSON, &painPointsJSON, &signalsJSON,
		&status, &notesJSON, &tagsJSON, &interactionsJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.ProspectType = domain.ProspectType(prospectType)
	profile.BusinessDescription = businessDescription.String
	profile.Industry = industry.String
	profile.Location = location.String
	profile.GoalAlignment.RelevanceScore = domain.RelevanceScore(relevance)
	profile.GoalAlignment.PotentialValue = potentialValue.String
	profile.GoalAlignment.ApproachPriority = approachPriority.String
	profile.DiscoveryMetadata.SourceQuery = sourceQuery.String
	profile.DiscoveryMetadata.DiscoveredAt = time.Unix(discoveredAt, 0)
	profile.Status = domain.ProspectStatus(status)
	profile.CreatedAt = time.Unix(createdAt, 0)
	profile.UpdatedAt = time.Unix(updatedAt, 0)

	if err := json.Unmarshal([]byte(contactJSON), &profile.ContactInfo); err != nil {
		return nil, fmt.Errorf("unmarshal contact info: %w", err)
	}
	if err := json.Unmarshal([]byte(fitReasonsJSON), &profile.GoalAlignment.FitReasons); err != nil {
		return nil, fmt.Errorf("unmarshal fit reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(activitiesJSON), &profile.RecentActivities); err != nil {
		return nil, fmt.Errorf("unmarshal recent activities: %w", err)
	}
	if err := json.Unmarshal([]byte(painPointsJSON), &profile.PainPoints); err != nil {
		return nil, fmt.Errorf("unmarshal pain points: %w", err)
	}
	if err := json.Unmarshal([]byte(signalsJSON), &profile.BuyingSignals); err != nil {
		return nil, fmt.Errorf("unmarshal buying signals: %w", err)
	}
	if err := json.Unmarshal([]byte(notesJSON), &profile.Notes); err != nil {
		return nil, fmt.Errorf("unmarshal notes: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &profile.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(interactionsJSON), &profile.Interactions); err != nil {
		return nil, fmt.Errorf("unmarshal interactions: %w", err)
	}

	return &profile, nil
}

func marshalList(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func emptyIfNilNotes(notes []domain.Note) []domain.Note {
	if notes == nil {
		return []domain.Note{}
	}
	return notes
}

func emptyIfNilInteractions(interactions []domain.Interaction) []domain.Interaction {
	if interactions == nil {
		return []domain.Interaction{}
	}
	return interactions
}
