package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	errEmptyReport    = errors.New("research service returned empty report")
	errServiceFailure = errors.New("research service request failed")
)

// Client is an HTTP client for the deep-research service.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	logger      *slog.Logger
}

// ClientConfig holds configuration for the research client.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	MaxAttempts    int
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "http://localhost:8090",
		RequestTimeout: 30 * time.Second,
		MaxAttempts:    1,
	}
}

// NewClient creates a new research service client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultClientConfig().BaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultClientConfig().RequestTimeout
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
}

// Research submits a research request and returns the report.
// Each attempt has a bounded wait; a timeout is reported the same way as a hard
// provider failure.
func (c *Client) Research(ctx context.Context, req Request) (*Report, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("research canceled: %w", err)
		}

		report, err := c.doRequest(ctx, req)
		if err == nil {
			return report, nil
		}
		lastErr = err

		if attempt < c.maxAttempts {
			c.logger.Warn("research attempt failed, retrying",
				"attempt", attempt,
				"query", req.Query,
				"error", err)
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, req Request) (*Report, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal research request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/research", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build research request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errServiceFailure, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close research response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded chunk of the error body for diagnostics.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", errServiceFailure, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode research response: %w", err)
	}
	if strings.TrimSpace(report.Report) == "" {
		return nil, errEmptyReport
	}
	return &report, nil
}

// Health checks whether the research service is reachable.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("research service unreachable: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close health response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("research service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Ensure Client implements Researcher.
var _ Researcher = (*Client)(nil)
