// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Research    ResearchConfig
	Discovery   DiscoveryConfig
}

// ResearchConfig controls the external deep-research provider client.
type ResearchConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	MaxAttempts    int
}

// DiscoveryConfig controls the discovery pipeline.
type DiscoveryConfig struct {
	TargetProspectCount   int
	MaxConcurrentSessions int
	SearchBreadth         int
	SearchDepth           int
	QualifyBreadth        int
	QualifyDepth          int

	// QualifyTimeout bounds each per-candidate qualification call so one slow
	// candidate cannot stall the whole stage.
	QualifyTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/pregame.db"),
		Research: ResearchConfig{
			BaseURL:        getEnv("RESEARCH_SERVICE_URL", "http://localhost:8090"),
			APIKey:         getEnv("RESEARCH_API_KEY", ""),
			RequestTimeout: getEnvDuration("RESEARCH_TIMEOUT", 30*time.Second),
			MaxAttempts:    getEnvInt("RESEARCH_MAX_ATTEMPTS", 1),
		},
		Discovery: DiscoveryConfig{
			TargetProspectCount:   getEnvInt("DISCOVERY_TARGET_COUNT", 15),
			MaxConcurrentSessions: getEnvInt("DISCOVERY_MAX_CONCURRENT", 4),
			SearchBreadth:         getEnvInt("DISCOVERY_SEARCH_BREADTH", 2),
			SearchDepth:           getEnvInt("DISCOVERY_SEARCH_DEPTH", 1),
			QualifyBreadth:        getEnvInt("DISCOVERY_QUALIFY_BREADTH", 3),
			QualifyDepth:          getEnvInt("DISCOVERY_QUALIFY_DEPTH", 2),
			QualifyTimeout:        getEnvDuration("DISCOVERY_QUALIFY_TIMEOUT", 20*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Research.BaseURL == "" {
		return fmt.Errorf("RESEARCH_SERVICE_URL cannot be empty")
	}
	if c.Research.MaxAttempts < 1 {
		return fmt.Errorf("RESEARCH_MAX_ATTEMPTS must be >= 1")
	}
	if c.Discovery.TargetProspectCount < 1 {
		return fmt.Errorf("DISCOVERY_TARGET_COUNT must be >= 1")
	}
	if c.Discovery.MaxConcurrentSessions < 1 {
		return fmt.Errorf("DISCOVERY_MAX_CONCURRENT must be >= 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
