// Package research provides the client for the external deep-research service.
//
// The service wraps the reasoning model and web search/scrape providers behind a
// single endpoint: the caller submits a query plus system prompts and receives a
// markdown report. All provider failures surface here as errors; retry policy is
// left to configuration (single attempt by default).
package research

import (
	"context"
)

// Request describes one research call.
type Request struct {
	Query        string `json:"query"`
	Breadth      int    `json:"breadth"`
	Depth        int    `json:"depth"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	ReportPrompt string `json:"report_prompt,omitempty"`
}

// Report is the structured text result of one research call.
type Report struct {
	Report string `json:"report"`
}

// Researcher is the interface the discovery engine consumes.
// Implemented by the HTTP client; tests substitute fakes.
type Researcher interface {
	Research(ctx context.Context, req Request) (*Report, error)
}
