// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/pregamehq/discovery-server/internal/domain"
)

// ErrProfileNotFound is returned when a profile id does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// ListFilter narrows and pages ListProfiles results. Zero values mean "no filter".
type ListFilter struct {
	Company   string
	Goal      string
	Status    domain.ProspectStatus
	Relevance domain.RelevanceScore
	Name      string
	Limit     int
	Offset    int
}

// Stats summarizes the profile corpus for the analytics endpoint.
type Stats struct {
	TotalProfiles int64                           `json:"total_profiles"`
	ByStatus      map[domain.ProspectStatus]int64 `json:"status_distribution"`
	ByRelevance   map[domain.RelevanceScore]int64 `json:"relevance_distribution"`
}

// Repository defines the interface for persisting prospect profiles.
type Repository interface {
	// CreateProfile persists a new profile keyed by its profile ID.
	CreateProfile(ctx context.Context, profile *domain.ProspectProfile) error

	// GetProfile retrieves a profile by ID. Returns ErrProfileNotFound if absent.
	GetProfile(ctx context.Context, profileID string) (*domain.ProspectProfile, error)

	// ListProfiles retrieves profiles matching the filter, newest first.
	ListProfiles(ctx context.Context, filter ListFilter) ([]*domain.ProspectProfile, error)

	// CountProfiles returns the total number of stored profiles.
	CountProfiles(ctx context.Context) (int64, error)

	// UpdateProfileStatus advances a profile's engagement status.
	// Statuses only move forward through the enumerated set.
	UpdateProfileStatus(ctx context.Context, profileID string, status domain.ProspectStatus) error

	// AddProfileNote appends a note to a profile.
	AddProfileNote(ctx context.Context, profileID string, note domain.Note) error

	// AddProfileTag appends a tag to a profile if not already present.
	AddProfileTag(ctx context.Context, profileID string, tag string) error

	// AddProfileInteraction appends an interaction record to a profile.
	AddProfileInteraction(ctx context.Context, profileID string, interaction domain.Interaction) error

	// DeleteProfile removes a profile.
	DeleteProfile(ctx context.Context, profileID string) error

	// GetStats returns aggregate counts for analytics.
	GetStats(ctx context.Context) (*Stats, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
