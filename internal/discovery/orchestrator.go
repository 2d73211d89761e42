package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pregamehq/discovery-server/internal/domain"
)

// Notifier receives session snapshots after state changes. Wired to the live
// update hub; a nil notifier disables push updates.
type Notifier interface {
	Notify(sessionID string, snapshot *Snapshot)
}

// Orchestrator owns the registry of discovery sessions and drives each one
// through the stage pipeline in a dedicated goroutine.
//
// Concurrency discipline: the goroutine spawned by Start is the only writer
// for its session; Status and Results readers get deep-copied snapshots under
// the session mutex. Sessions are never removed from the registry.
type Orchestrator struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	engine    *Engine
	publisher *Publisher
	notifier  Notifier
	sem       chan struct{} // bounds concurrently running pipelines
	baseCtx   context.Context
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator. baseCtx bounds the lifetime of all
// background pipelines; maxConcurrent bounds how many run at once.
func NewOrchestrator(baseCtx context.Context, engine *Engine, publisher *Publisher, notifier Notifier, maxConcurrent int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		sessions:  make(map[string]*Session),
		engine:    engine,
		publisher: publisher,
		notifier:  notifier,
		sem:       make(chan struct{}, maxConcurrent),
		baseCtx:   baseCtx,
		logger:    logger,
	}
}

// Start validates the request, registers a new session, and spawns the
// pipeline. It never waits for pipeline work.
func (o *Orchestrator) Start(req domain.DiscoveryRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	session := newSession(uuid.NewString(), req)

	o.mu.Lock()
	o.sessions[session.ID()] = session
	o.mu.Unlock()

	o.logger.Info("discovery session started",
		"session_id", session.ID(),
		"company", req.CompanyName,
		"goal", req.Goal)

	go o.run(session)

	return session.ID(), nil
}

// Status returns an immutable snapshot of the session's state.
func (o *Orchestrator) Status(sessionID string) (*Snapshot, error) {
	session, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// Results returns the persisted profile ids for a completed session.
func (o *Orchestrator) Results(sessionID string) ([]string, error) {
	session, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return session.Results()
}

func (o *Orchestrator) lookup(sessionID string) (*Session, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	session, ok := o.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func validateRequest(req domain.DiscoveryRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{"company_name", req.CompanyName},
		{"company_description", req.CompanyDescription},
		{"industry", req.Industry},
		{"goal", req.Goal},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}

// Stage progress schedule. Non-decreasing, ends at 100 on success only.
const (
	progressAnalyzing   = 10
	progressResearching = 40
	progressQualifying  = 70
	progressFinalizing  = 90
	progressPublishing  = 95
)

// run drives one session through the pipeline. It is the session's sole writer.
func (o *Orchestrator) run(session *Session) {
	// Respect the concurrency bound before doing any provider work. The
	// session stays visible in "initializing" while it waits for a slot.
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-o.baseCtx.Done():
		o.failSession(session, fmt.Errorf("server shutting down: %w", o.baseCtx.Err()))
		return
	}

	ctx := o.baseCtx
	req := session.Request()
	activity := func(message string) {
		session.AddActivity(message)
		o.notify(session)
	}

	o.transition(session, StageAnalyzing, progressAnalyzing, "Starting analysis")
	analysis, err := o.engine.Analyze(ctx, req)
	if err != nil {
		o.failSession(session, err)
		return
	}
	activity(fmt.Sprintf("Analysis complete: targeting %s in %s", analysis.ProspectType, analysis.TargetIndustry))

	o.transition(session, StageResearching, progressResearching, "Starting research")
	candidates, err := o.engine.Research(ctx, req, analysis, activity)
	if err != nil {
		o.failSession(session, err)
		return
	}
	activity(fmt.Sprintf("Research complete: %d unique candidates", len(candidates)))

	o.transition(session, StageQualifying, progressQualifying, "Starting qualification")
	qualified, err := o.engine.Qualify(ctx, req, candidates, activity)
	if err != nil {
		o.failSession(session, err)
		return
	}
	activity(fmt.Sprintf("Qualification complete: %d prospects qualified", len(qualified)))

	o.transition(session, StageFinalizing, progressFinalizing, "Starting finalization")
	finalized, err := o.engine.Finalize(req, qualified)
	if err != nil {
		o.failSession(session, err)
		return
	}

	session.setProgress(progressPublishing)
	activity(fmt.Sprintf("Publishing %d prospect profiles", len(finalized.Profiles)))
	profileIDs, err := o.publisher.Publish(ctx, session.ID(), finalized)
	if err != nil {
		o.failSession(session, err)
		return
	}

	session.complete(profileIDs)
	session.AddActivity(fmt.Sprintf("Discovery completed: %d profiles saved", len(profileIDs)))
	o.notify(session)

	o.logger.Info("discovery session completed",
		"session_id", session.ID(),
		"profiles", len(profileIDs))
}

func (o *Orchestrator) transition(session *Session, stage Stage, progress int, message string) {
	session.setStage(stage, progress, message)
	o.notify(session)
}

func (o *Orchestrator) failSession(session *Session, err error) {
	o.logger.Error("discovery session failed",
		"session_id", session.ID(),
		"error", err)
	session.fail(err)
	o.notify(session)
}

func (o *Orchestrator) notify(session *Session) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(session.ID(), session.Snapshot())
}
