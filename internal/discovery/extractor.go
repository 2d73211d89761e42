package discovery

import (
	"strings"
)

// Extraction of candidate prospects from markdown research reports. The report
// prompt asks for "**Name**" headers followed by "- Field: value" lines; real
// model output drifts, so matching is keyword-based and forgiving.

// candidateFieldKeywords maps candidate fields to the labels models use for them.
var candidateFieldKeywords = map[string][]string{
	"contacts": {"contacts", "contact", "email", "phone"},
	"website":  {"website", "site", "url"},
	"business": {"business", "company", "does", "description"},
	"need":     {"need", "pain", "problem", "challenge", "relevance"},
	"signals":  {"signals", "recent", "news", "funding"},
	"location": {"location", "based", "headquarters", "hq"},
}

// extractCandidates parses a research report into candidates.
func extractCandidates(report, sourceQuery string) []Candidate {
	var candidates []Candidate
	var current *Candidate

	flush := func() {
		if current != nil && current.Name != "" {
			candidates = append(candidates, *current)
		}
		current = nil
	}

	for _, raw := range strings.Split(report, "\n") {
		line := strings.TrimSpace(raw)

		if name, ok := parseCandidateHeader(line); ok {
			flush()
			current = &Candidate{Name: name, SourceQuery: sourceQuery}
			continue
		}

		if current != nil && strings.Contains(line, ":") {
			applyCandidateField(line, current)
		}
	}
	flush()

	return candidates
}

// parseCandidateHeader recognizes "**Acme Corp**" and "**1. Acme Corp**" lines.
// All-caps lines are section headers, not prospects.
func parseCandidateHeader(line string) (string, bool) {
	if !strings.HasPrefix(line, "**") || !strings.HasSuffix(line, "**") || len(line) <= 4 {
		return "", false
	}
	name := strings.TrimSpace(strings.Trim(line, "*"))

	// Strip a leading "1." style ordinal.
	if idx := strings.Index(name, ". "); idx > 0 && idx <= 3 {
		if isDigits(name[:idx]) {
			name = strings.TrimSpace(name[idx+2:])
		}
	}

	if name == "" || (name == strings.ToUpper(name) && name != strings.ToLower(name)) {
		return "", false
	}
	return name, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func applyCandidateField(line string, c *Candidate) {
	value := valueAfterColon(line)
	if value == "" {
		return
	}

	label := strings.ToLower(line[:strings.Index(line, ":")])
	for field, keywords := range candidateFieldKeywords {
		for _, keyword := range keywords {
			if !strings.Contains(label, keyword) {
				continue
			}
			switch field {
			case "contacts":
				if c.Contacts == "" {
					c.Contacts = value
				}
			case "website":
				if c.Website == "" {
					c.Website = value
				}
			case "business":
				if c.Business == "" {
					c.Business = value
				}
			case "need":
				if c.Need == "" {
					c.Need = value
				}
			case "signals":
				if c.Signals == "" {
					c.Signals = value
				}
			case "location":
				if c.Location == "" {
					c.Location = value
				}
			}
			return
		}
	}
}

func valueAfterColon(line string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(parts[1]), "- "))
}

// dedupeCandidates removes duplicates by normalized name, keeping first seen.
func dedupeCandidates(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}
	return unique
}

// extractInsights pulls labelled lines out of a qualification report.
func extractInsights(report string) (painPoints, insights []string) {
	for _, raw := range strings.Split(report, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.Contains(line, ":") {
			continue
		}
		label := strings.ToLower(line[:strings.Index(line, ":")])
		value := valueAfterColon(line)
		if value == "" {
			continue
		}
		switch {
		case strings.Contains(label, "pain"):
			painPoints = append(painPoints, value)
		case strings.Contains(label, "signal"), strings.Contains(label, "opportunity"), strings.Contains(label, "need"):
			insights = append(insights, value)
		}
	}
	return painPoints, insights
}
