package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pregamehq/discovery-server/internal/store"
)

// Publisher converts finalized candidates into persisted profile records.
type Publisher struct {
	repo   store.Repository
	logger *slog.Logger
}

// NewPublisher creates a publisher backed by the given repository.
func NewPublisher(repo store.Repository, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{repo: repo, logger: logger}
}

// Publish persists each finalized profile in discovered status and returns the
// generated ids. Individual store rejections are logged and skipped; the
// publish fails only if nothing persists.
func (p *Publisher) Publish(ctx context.Context, sessionID string, result *FinalizedResult) ([]string, error) {
	if result == nil || len(result.Profiles) == 0 {
		return nil, &ExternalServiceError{Op: "profile publish", Err: fmt.Errorf("nothing to publish")}
	}

	now := time.Now()
	saved := make([]string, 0, len(result.Profiles))

	for _, profile := range result.Profiles {
		profile.ProfileID = uuid.NewString()
		profile.DiscoveryMetadata.SessionID = sessionID
		profile.DiscoveryMetadata.DiscoveredAt = now
		profile.CreatedAt = now
		profile.UpdatedAt = now

		if err := p.repo.CreateProfile(ctx, profile); err != nil {
			p.logger.Warn("failed to persist profile, skipping",
				"session_id", sessionID,
				"name", profile.Name,
				"error", err)
			continue
		}
		saved = append(saved, profile.ProfileID)
	}

	if len(saved) == 0 {
		return nil, &ExternalServiceError{Op: "profile publish", Err: fmt.Errorf("no profiles persisted out of %d", len(result.Profiles))}
	}
	return saved, nil
}
