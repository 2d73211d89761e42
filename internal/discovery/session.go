// Package discovery implements the prospect discovery pipeline: session state,
// the stage engine, and the orchestrator that drives sessions to completion.
package discovery

import (
	"sync"
	"time"

	"github.com/pregamehq/discovery-server/internal/domain"
)

// Stage identifies one phase of a discovery session.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageAnalyzing    Stage = "analyzing"
	StageResearching  Stage = "researching"
	StageQualifying   Stage = "qualifying"
	StageFinalizing   Stage = "finalizing"
	StageCompleted    Stage = "completed"
	StageError        Stage = "error"
)

// Terminal reports whether the stage ends the pipeline.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// ActivityEntry is one timestamped line of the session's audit trail.
type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Session holds the mutable state of one discovery run. The goroutine spawned
// by the orchestrator is the only writer; status readers take snapshots under
// the mutex.
type Session struct {
	mu sync.Mutex

	id          string
	request     domain.DiscoveryRequest
	stage       Stage
	progress    int
	activityLog []ActivityEntry
	profileIDs  []string
	errMsg      string
	createdAt   time.Time
	completedAt time.Time

	lastActivityAt time.Time // keeps log timestamps non-decreasing
}

func newSession(id string, req domain.DiscoveryRequest) *Session {
	return &Session{
		id:        id,
		request:   req,
		stage:     StageInitializing,
		createdAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Request returns the immutable input payload.
func (s *Session) Request() domain.DiscoveryRequest {
	return s.request
}

// AddActivity appends a timestamped message to the activity log.
// Timestamps are clamped so the log stays chronologically non-decreasing even
// if the wall clock steps backwards.
func (s *Session) AddActivity(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Before(s.lastActivityAt) {
		now = s.lastActivityAt
	}
	s.lastActivityAt = now
	s.activityLog = append(s.activityLog, ActivityEntry{Timestamp: now, Message: message})
}

// setStage advances the session to a new pipeline stage and progress value and
// logs the transition. Progress never decreases. Terminal transitions go
// through fail and complete instead.
func (s *Session) setStage(stage Stage, progress int, message string) {
	s.mu.Lock()
	if progress > s.progress {
		s.progress = progress
	}
	s.stage = stage
	s.mu.Unlock()

	if message != "" {
		s.AddActivity(message)
	}
}

func (s *Session) setProgress(progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if progress > s.progress {
		s.progress = progress
	}
}

// fail moves the session to the error state. No further mutations happen after.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.stage = StageError
	s.errMsg = err.Error()
	s.completedAt = time.Now()
	s.mu.Unlock()

	s.AddActivity("Discovery failed: " + err.Error())
}

// complete records the persisted profile ids and moves to completed at 100%.
func (s *Session) complete(profileIDs []string) {
	s.mu.Lock()
	s.profileIDs = append([]string(nil), profileIDs...)
	s.progress = 100
	s.stage = StageCompleted
	s.completedAt = time.Now()
	s.mu.Unlock()
}

// Snapshot is an immutable copy of session state safe for concurrent use.
type Snapshot struct {
	SessionID      string          `json:"session_id"`
	Stage          Stage           `json:"status"`
	Progress       int             `json:"progress"`
	ProspectsCount int             `json:"prospects_count"`
	ActivityLog    []ActivityEntry `json:"activity_log"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Snapshot returns a deep copy of the current session state. Concurrent
// appends continue against the session's own slices, never the copy.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		SessionID:      s.id,
		Stage:          s.stage,
		Progress:       s.progress,
		ProspectsCount: len(s.profileIDs),
		ActivityLog:    append([]ActivityEntry(nil), s.activityLog...),
		Error:          s.errMsg,
		CreatedAt:      s.createdAt,
	}
	if !s.completedAt.IsZero() {
		completed := s.completedAt
		snap.CompletedAt = &completed
	}
	return snap
}

// Results returns the persisted profile ids once the session has completed.
func (s *Session) Results() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageCompleted {
		return nil, ErrSessionNotReady
	}
	return append([]string(nil), s.profileIDs...), nil
}
