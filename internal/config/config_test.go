package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DBPath != "./data/pregame.db" {
		t.Errorf("Expected default db path, got %s", cfg.DBPath)
	}
	if cfg.Research.BaseURL != "http://localhost:8090" {
		t.Errorf("Expected default research URL, got %s", cfg.Research.BaseURL)
	}
	if cfg.Research.RequestTimeout != 30*time.Second {
		t.Errorf("Expected 30s research timeout, got %s", cfg.Research.RequestTimeout)
	}
	if cfg.Discovery.TargetProspectCount != 15 {
		t.Errorf("Expected target count 15, got %d", cfg.Discovery.TargetProspectCount)
	}
	if cfg.Discovery.MaxConcurrentSessions != 4 {
		t.Errorf("Expected max concurrent 4, got %d", cfg.Discovery.MaxConcurrentSessions)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RESEARCH_SERVICE_URL", "http://research.internal:7000")
	t.Setenv("RESEARCH_TIMEOUT", "90s")
	t.Setenv("DISCOVERY_TARGET_COUNT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Port)
	}
	if cfg.Research.BaseURL != "http://research.internal:7000" {
		t.Errorf("Expected custom research URL, got %s", cfg.Research.BaseURL)
	}
	if cfg.Research.RequestTimeout != 90*time.Second {
		t.Errorf("Expected 90s timeout, got %s", cfg.Research.RequestTimeout)
	}
	if cfg.Discovery.TargetProspectCount != 5 {
		t.Errorf("Expected target count 5, got %d", cfg.Discovery.TargetProspectCount)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DISCOVERY_TARGET_COUNT", "not-a-number")
	t.Setenv("RESEARCH_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Discovery.TargetProspectCount != 15 {
		t.Errorf("Expected fallback 15, got %d", cfg.Discovery.TargetProspectCount)
	}
	if cfg.Research.RequestTimeout != 30*time.Second {
		t.Errorf("Expected fallback 30s, got %s", cfg.Research.RequestTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"empty research url", func(c *Config) { c.Research.BaseURL = "" }, true},
		{"zero attempts", func(c *Config) { c.Research.MaxAttempts = 0 }, true},
		{"zero target count", func(c *Config) { c.Discovery.TargetProspectCount = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Discovery.MaxConcurrentSessions = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:5173", true},
		{"https://app.pregame.example", false},
	}
	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.frontendURL}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontendURL, got, tt.want)
		}
	}
}
