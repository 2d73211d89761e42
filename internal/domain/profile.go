// Package domain contains core domain types for the discovery server.
package domain

import (
	"time"
)

// ProspectType categorizes what kind of prospect a profile describes.
type ProspectType string

const (
	ProspectTypeCompany      ProspectType = "company"
	ProspectTypeIndividual   ProspectType = "individual"
	ProspectTypeEntrepreneur ProspectType = "entrepreneur"
	ProspectTypeInvestor     ProspectType = "investor"
	ProspectTypePartner      ProspectType = "partner"
	ProspectTypeClient       ProspectType = "client"
	ProspectTypeOther        ProspectType = "other"
)

// RelevanceScore grades prospect-goal alignment.
type RelevanceScore string

const (
	RelevanceHigh     RelevanceScore = "High"
	RelevanceMedium   RelevanceScore = "Medium"
	RelevanceLow      RelevanceScore = "Low"
	RelevanceUnscored RelevanceScore = "Unscored"
)

// ProspectStatus tracks engagement progress for a profile.
type ProspectStatus string

const (
	StatusDiscovered ProspectStatus = "discovered"
	StatusQualified  ProspectStatus = "qualified"
	StatusContacted  ProspectStatus = "contacted"
	StatusEngaged    ProspectStatus = "engaged"
	StatusConverted  ProspectStatus = "converted"
	StatusRejected   ProspectStatus = "rejected"
	StatusArchived   ProspectStatus = "archived"
)

// statusRank orders statuses so updates only ever move forward.
var statusRank = map[ProspectStatus]int{
	StatusDiscovered: 0,
	StatusQualified:  1,
	StatusContacted:  2,
	StatusEngaged:    3,
	StatusConverted:  4,
	StatusRejected:   5,
	StatusArchived:   6,
}

// Valid reports whether the status is one of the enumerated values.
func (s ProspectStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether a transition from s to next is a forward move.
// Profiles are created in StatusDiscovered and only advance through the set.
func (s ProspectStatus) CanAdvanceTo(next ProspectStatus) bool {
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	target, ok := statusRank[next]
	if !ok {
		return false
	}
	return target >= cur
}

// ContactInfo holds whatever contact channels research surfaced.
type ContactInfo struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
	Other    string `json:"other,omitempty"`
}

// GoalAlignment is the assessment of how well a prospect fits the discovery goal.
type GoalAlignment struct {
	RelevanceScore   RelevanceScore `json:"relevance_score"`
	FitReasons       []string       `json:"fit_reasons"`
	PotentialValue   string         `json:"potential_value,omitempty"`
	ApproachPriority string         `json:"approach_priority,omitempty"`
}

// DiscoveryMetadata records which session and goal produced a profile.
type DiscoveryMetadata struct {
	DiscoveringCompany string    `json:"discovering_company"`
	CompanyGoal        string    `json:"company_goal"`
	SessionID          string    `json:"session_id"`
	SourceQuery        string    `json:"source_query,omitempty"`
	DiscoveredAt       time.Time `json:"discovered_at"`
}

// Note is a timestamped annotation on a profile.
type Note struct {
	Text      string    `json:"text"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Interaction records one touchpoint with a prospect, such as an email or call.
type Interaction struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Outcome   string    `json:"outcome,omitempty"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// ProspectProfile is a persisted, qualified prospect record exposed to the dashboard.
type ProspectProfile struct {
	ProfileID           string            `json:"profile_id"`
	Name                string            `json:"name"`
	ProspectType        ProspectType      `json:"prospect_type"`
	BusinessDescription string            `json:"business_description,omitempty"`
	Industry            string            `json:"industry,omitempty"`
	Location            string            `json:"location,omitempty"`
	ContactInfo         ContactInfo       `json:"contact_info"`
	GoalAlignment       GoalAlignment     `json:"goal_alignment"`
	DiscoveryMetadata   DiscoveryMetadata `json:"discovery_metadata"`
	RecentActivities    []string          `json:"recent_activities,omitempty"`
	PainPoints          []string          `json:"pain_points,omitempty"`
	BuyingSignals       []string          `json:"buying_signals,omitempty"`
	Status              ProspectStatus    `json:"status"`
	Notes               []Note            `json:"notes,omitempty"`
	Interactions        []Interaction     `json:"interactions,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}
