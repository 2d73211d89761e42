package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pregamehq/discovery-server/internal/config"
	"github.com/pregamehq/discovery-server/internal/domain"
	"github.com/pregamehq/discovery-server/internal/research"
)

// ActivityFunc receives human-readable progress messages from stage execution.
// The orchestrator wires it to the session's activity log.
type ActivityFunc func(message string)

// Engine executes the pipeline stages. Each stage is pure with respect to
// session state: it takes inputs and returns data or an error, and never
// touches the session map.
type Engine struct {
	researcher research.Researcher
	cfg        config.DiscoveryConfig
	logger     *slog.Logger
}

// NewEngine creates a stage engine backed by the given researcher.
func NewEngine(researcher research.Researcher, cfg config.DiscoveryConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TargetProspectCount < 1 {
		cfg.TargetProspectCount = 15
	}
	if cfg.QualifyTimeout <= 0 {
		cfg.QualifyTimeout = 20 * time.Second
	}
	return &Engine{
		researcher: researcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Analyze derives the discovery strategy from the company profile and goal.
func (e *Engine) Analyze(ctx context.Context, req domain.DiscoveryRequest) (*Analysis, error) {
	result, err := e.researcher.Research(ctx, research.Request{
		Query:        fmt.Sprintf("Analyze %s goal: %s", req.CompanyName, req.Goal),
		Breadth:      1,
		Depth:        1,
		SystemPrompt: analysisSystemPrompt(req),
		ReportPrompt: analysisReportPrompt(req),
	})
	if err != nil {
		return nil, &ExternalServiceError{Op: "company analysis", Err: err}
	}

	analysis := parseAnalysisReport(result.Report)
	if analysis.isEmpty() {
		// Model answered but not in the expected shape; fall back to a broad
		// strategy derived from the request rather than failing the session.
		e.logger.Warn("analysis report missing structured fields, using fallback",
			"company", req.CompanyName)
		return fallbackAnalysis(req), nil
	}
	return analysis, nil
}

// Research gathers candidate prospects by running one research call per search
// query. Individual query failures are logged via activity and skipped; the
// stage fails only when no candidates are found at all.
func (e *Engine) Research(ctx context.Context, req domain.DiscoveryRequest, analysis *Analysis, activity ActivityFunc) ([]Candidate, error) {
	queries := searchQueries(req, analysis)

	var all []Candidate
	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, &ExternalServiceError{Op: "prospect research", Err: err}
		}

		activity(fmt.Sprintf("Searching (%d/%d): %s", i+1, len(queries), query))

		result, err := e.researcher.Research(ctx, research.Request{
			Query:        query,
			Breadth:      e.cfg.SearchBreadth,
			Depth:        e.cfg.SearchDepth,
			SystemPrompt: discoverySystemPrompt(req, analysis),
			ReportPrompt: discoveryReportPrompt(req),
		})
		if err != nil {
			e.logger.Warn("search query failed", "query", query, "error", err)
			activity(fmt.Sprintf("Search failed, skipping: %s", query))
			continue
		}

		found := extractCandidates(result.Report, query)
		activity(fmt.Sprintf("Found %d prospects for: %s", len(found), query))
		all = append(all, found...)
	}

	unique := dedupeCandidates(all)
	if len(unique) == 0 {
		return nil, &ExternalServiceError{Op: "prospect research", Err: fmt.Errorf("no candidates found across %d queries", len(queries))}
	}
	return unique, nil
}

// Qualify scores each candidate against the goal. Per-candidate failures are
// logged and the candidate dropped; they never fail the stage.
func (e *Engine) Qualify(ctx context.Context, req domain.DiscoveryRequest, candidates []Candidate, activity ActivityFunc) ([]QualifiedCandidate, error) {
	limit := e.cfg.TargetProspectCount
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	qualified := make([]QualifiedCandidate, 0, len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, &ExternalServiceError{Op: "prospect qualification", Err: err}
		}

		activity(fmt.Sprintf("Qualifying (%d/%d): %s", i+1, len(candidates), candidate.Name))

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.QualifyTimeout)
		result, err := e.researcher.Research(callCtx, research.Request{
			Query:        fmt.Sprintf("%s %s qualification research", candidate.Name, req.Goal),
			Breadth:      e.cfg.QualifyBreadth,
			Depth:        e.cfg.QualifyDepth,
			SystemPrompt: qualificationSystemPrompt(candidate.Name, req),
			ReportPrompt: qualificationReportPrompt(candidate.Name, req),
		})
		cancel()
		if err != nil {
			e.logger.Warn("qualification failed, dropping candidate",
				"candidate", candidate.Name, "error", err)
			activity(fmt.Sprintf("Qualification failed for %s, skipping", candidate.Name))
			continue
		}

		painPoints, insights := extractInsights(result.Report)
		score, reasons := assessGoalAlignment(candidate, req.Goal)

		qualified = append(qualified, QualifiedCandidate{
			Candidate:  candidate,
			Relevance:  score,
			FitReasons: reasons,
			Priority:   "Medium",
			PainPoints: painPoints,
			Insights:   insights,
		})
	}

	return qualified, nil
}

// assessGoalAlignment scores a candidate by matching goal keywords against the
// candidate's researched text.
func assessGoalAlignment(candidate Candidate, goal string) (domain.RelevanceScore, []string) {
	score := domain.RelevanceMedium
	var reasons []string

	goalLower := strings.ToLower(goal)
	text := strings.ToLower(candidate.Business + " " + candidate.Need + " " + candidate.Signals)

	switch {
	case strings.Contains(goalLower, "investor"):
		if strings.Contains(text, "fund") || strings.Contains(text, "invest") {
			score = domain.RelevanceHigh
			reasons = append(reasons, "Investment focus detected")
		}
	case strings.Contains(goalLower, "client"), strings.Contains(goalLower, "customer"):
		if strings.Contains(text, "need") || strings.Contains(text, "problem") {
			score = domain.RelevanceHigh
			reasons = append(reasons, "Clear need identified")
		}
	case strings.Contains(goalLower, "partner"):
		if strings.Contains(text, "partner") || strings.Contains(text, "collaboration") {
			score = domain.RelevanceHigh
			reasons = append(reasons, "Partnership potential")
		}
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Standard match")
	}
	return score, reasons
}

// Finalize deduplicates qualified candidates by name+type and assembles the
// profile payloads for publishing. Fails only on empty input.
func (e *Engine) Finalize(req domain.DiscoveryRequest, qualified []QualifiedCandidate) (*FinalizedResult, error) {
	if len(qualified) == 0 {
		return nil, fmt.Errorf("no qualified prospects to finalize")
	}

	seen := make(map[string]bool, len(qualified))
	result := &FinalizedResult{}

	for _, q := range qualified {
		prospectType := classifyProspect(q)
		key := strings.ToLower(strings.TrimSpace(q.Name)) + "|" + string(prospectType)
		if seen[key] {
			continue
		}
		seen[key] = true

		profile := &domain.ProspectProfile{
			Name:                q.Name,
			ProspectType:        prospectType,
			BusinessDescription: q.Business,
			Location:            q.Location,
			ContactInfo: domain.ContactInfo{
				Website: q.Website,
				Other:   q.Contacts,
			},
			GoalAlignment: domain.GoalAlignment{
				RelevanceScore:   q.Relevance,
				FitReasons:       q.FitReasons,
				PotentialValue:   "To be determined",
				ApproachPriority: q.Priority,
			},
			DiscoveryMetadata: domain.DiscoveryMetadata{
				DiscoveringCompany: req.CompanyName,
				CompanyGoal:        req.Goal,
				SourceQuery:        q.SourceQuery,
			},
			RecentActivities: splitSignals(q.Signals),
			PainPoints:       q.PainPoints,
			BuyingSignals:    q.Insights,
			Status:           domain.StatusDiscovered,
		}
		result.Profiles = append(result.Profiles, profile)
	}

	return result, nil
}

// classifyProspect infers a prospect type from the goal-alignment reasons and
// researched text. Everything defaults to company.
func classifyProspect(q QualifiedCandidate) domain.ProspectType {
	text := strings.ToLower(q.Business + " " + q.Need)
	switch {
	case strings.Contains(text, "investor") || strings.Contains(text, "venture capital"):
		return domain.ProspectTypeInvestor
	case strings.Contains(text, "founder") || strings.Contains(text, "entrepreneur"):
		return domain.ProspectTypeEntrepreneur
	case strings.Contains(text, "partner"):
		return domain.ProspectTypePartner
	default:
		return domain.ProspectTypeCompany
	}
}

func splitSignals(signals string) []string {
	if strings.TrimSpace(signals) == "" {
		return nil
	}
	parts := strings.Split(signals, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
