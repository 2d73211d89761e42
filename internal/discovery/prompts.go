package discovery

import (
	"fmt"
	"strings"

	"github.com/pregamehq/discovery-server/internal/domain"
)

// Prompt construction for the three research-backed stages. The report prompts
// pin the output format the extractor parses, so changes here and in
// extractor.go move together.

func analysisSystemPrompt(req domain.DiscoveryRequest) string {
	return fmt.Sprintf(`You are a business intelligence analyst. Analyze this company's profile and goal to determine the best prospect discovery strategy.

COMPANY PROFILE:
- Company: %s
- Industry: %s
- What they do: %s

GOAL: %s

Determine what type of prospects they need, what industry to target, what characteristics to look for, and what search strategy would be most effective.`,
		req.CompanyName, req.Industry, req.CompanyDescription, req.Goal)
}

func analysisReportPrompt(req domain.DiscoveryRequest) string {
	return fmt.Sprintf(`Based on the company profile and goal, provide a strategic analysis in exactly this format:

## PROSPECT DISCOVERY ANALYSIS

**Prospect Type:** [companies, individuals, investors, partners, etc.]
**Target Industry:** [which industries/sectors to focus on]
**Key Criteria:** [what specific characteristics to look for]
**Search Strategy:** [how to approach the search]

COMPANY: %s
GOAL: %s`, req.CompanyName, req.Goal)
}

func discoverySystemPrompt(req domain.DiscoveryRequest, analysis *Analysis) string {
	return fmt.Sprintf(`You are a prospect researcher for %s. Find SPECIFIC %s that match their goal: %s

COMPANY CONTEXT:
- They do: %s
- Industry: %s

TARGET CRITERIA:
- Prospect type: %s
- Target industry: %s
- Key criteria: %s

Focus on business directories, industry listings, recent news, funding databases, and professional networks. Avoid generic results.`,
		req.CompanyName, strings.ToUpper(analysis.ProspectType), req.Goal,
		req.CompanyDescription, req.Industry,
		analysis.ProspectType, analysis.TargetIndustry, analysis.KeyCriteria)
}

func discoveryReportPrompt(req domain.DiscoveryRequest) string {
	return fmt.Sprintf(`You are extracting PROSPECTS for: %s

For each prospect found, format as structured data:

**1. [Prospect Name]**
- Contact: [Email/Phone/LinkedIn/Website]
- Business: [What they do in 1 sentence]
- Relevance: [Why they match the goal]
- Recent Signals: [Recent activities/news]
- Location: [City, State/Country]
- Pain Points: [Specific challenges mentioned]

Only include prospects that clearly match the goal. If no relevant prospects are found, state "No matching prospects found".`, req.Goal)
}

func qualificationSystemPrompt(name string, req domain.DiscoveryRequest) string {
	return fmt.Sprintf(`Research %s for %s's goal: %s

RESEARCH CONTEXT:
- Company offering: %s
- Industry: %s

Find current business situation, recent activities, budget indicators, decision makers, and pain points that align with the offering.`,
		name, req.CompanyName, req.Goal, req.CompanyDescription, req.Industry)
}

func qualificationReportPrompt(name string, req domain.DiscoveryRequest) string {
	return fmt.Sprintf(`Create a qualification report for %s covering goal alignment with "%s", qualification signals, contact intelligence, and opportunity assessment. Use labelled lines such as:

- Business: ...
- Need: ...
- Signals: ...
- Pain Points: ...
- Contact: ...`, name, req.Goal)
}

// searchQueries builds the query list for the research stage from the analysis
// plus goal-keyword variants.
func searchQueries(req domain.DiscoveryRequest, analysis *Analysis) []string {
	industry := analysis.TargetIndustry
	if industry == "" {
		industry = req.Industry
	}
	prospectType := analysis.ProspectType
	if prospectType == "" {
		prospectType = "companies"
	}

	queries := []string{
		fmt.Sprintf("site:crunchbase.com %s", industry),
		fmt.Sprintf("site:linkedin.com/company %s", industry),
		fmt.Sprintf("%s %s", industry, prospectType),
		fmt.Sprintf("recent funding %s", industry),
	}

	goal := strings.ToLower(req.Goal)
	switch {
	case strings.Contains(goal, "investor"):
		queries = append(queries,
			fmt.Sprintf("site:crunchbase.com investors %s", industry),
			fmt.Sprintf("venture capital %s", industry),
		)
	case strings.Contains(goal, "client"), strings.Contains(goal, "customer"):
		queries = append(queries,
			fmt.Sprintf("site:linkedin.com/company %s hiring", industry),
			fmt.Sprintf("%s challenges problems", industry),
		)
	case strings.Contains(goal, "partner"):
		queries = append(queries,
			fmt.Sprintf("strategic partnerships %s", industry),
		)
	}

	return queries
}

// parseAnalysisReport extracts the structured fields out of the analysis report.
func parseAnalysisReport(report string) *Analysis {
	analysis := &Analysis{}
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "**Prospect Type:**"):
			analysis.ProspectType = strings.TrimSpace(strings.TrimPrefix(line, "**Prospect Type:**"))
		case strings.HasPrefix(line, "**Target Industry:**"):
			analysis.TargetIndustry = strings.TrimSpace(strings.TrimPrefix(line, "**Target Industry:**"))
		case strings.HasPrefix(line, "**Search Strategy:**"):
			analysis.SearchStrategy = strings.TrimSpace(strings.TrimPrefix(line, "**Search Strategy:**"))
		case strings.HasPrefix(line, "**Key Criteria:**"):
			analysis.KeyCriteria = strings.TrimSpace(strings.TrimPrefix(line, "**Key Criteria:**"))
		}
	}
	return analysis
}

// isEmpty reports whether the model produced none of the expected fields.
func (a *Analysis) isEmpty() bool {
	return a.ProspectType == "" && a.TargetIndustry == "" && a.SearchStrategy == "" && a.KeyCriteria == ""
}

// fallbackAnalysis is used when the report parses but carries no fields.
func fallbackAnalysis(req domain.DiscoveryRequest) *Analysis {
	return &Analysis{
		ProspectType:   "companies",
		TargetIndustry: req.Industry,
		SearchStrategy: "broad search",
		KeyCriteria:    "relevant businesses",
	}
}
