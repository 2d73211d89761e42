package discovery

import (
	"github.com/pregamehq/discovery-server/internal/domain"
)

// Analysis is the discovery strategy derived from the company profile and goal.
type Analysis struct {
	ProspectType   string
	TargetIndustry string
	SearchStrategy string
	KeyCriteria    string
}

// Candidate is an unqualified prospect surfaced during research.
type Candidate struct {
	Name        string
	Business    string
	Contacts    string
	Website     string
	Need        string
	Signals     string
	Location    string
	SourceQuery string
}

// QualifiedCandidate is a candidate that survived goal-aware qualification.
type QualifiedCandidate struct {
	Candidate
	Relevance  domain.RelevanceScore
	FitReasons []string
	Priority   string
	PainPoints []string
	Insights   []string
}

// FinalizedResult is the deduplicated set of profile payloads ready to publish.
type FinalizedResult struct {
	Profiles []*domain.ProspectProfile
}
