package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if cfg.MaxSessions != 0 {
		t.Fatalf("MaxSessions = %d", cfg.MaxSessions)
	}
	if cfg.SessionIdleTime != 0 {
		t.Fatalf("SessionIdleTime = %v", cfg.SessionIdleTime)
	}
	if cfg.SearchTimeout != 15*time.Second {
		t.Fatalf("SearchTimeout = %v", cfg.SearchTimeout)
	}
	if cfg.SearchCacheTTL != 5*time.Minute {
		t.Fatalf("SearchCacheTTL = %v", cfg.SearchCacheTTL)
	}
	if cfg.AllowedOrigins != nil {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.RateLimitRPS != 100 || cfg.RateLimitBurst != 200 {
		t.Fatalf("rate limit = %d/%d, want 100/200", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MAX_SESSIONS", "8")
	t.Setenv("SESSION_IDLE_TIMEOUT", "30m")
	t.Setenv("DOWNLOAD_RATE_LIMIT_BYTES", "1048576")
	t.Setenv("DISABLE_SEEDING", "true")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "25")
	t.Setenv("HTTP_RATE_LIMIT_BURST", "50")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.MaxSessions != 8 {
		t.Fatalf("MaxSessions = %d", cfg.MaxSessions)
	}
	if cfg.SessionIdleTime != 30*time.Minute {
		t.Fatalf("SessionIdleTime = %v", cfg.SessionIdleTime)
	}
	if cfg.DownloadRateLimit != 1<<20 {
		t.Fatalf("DownloadRateLimit = %d", cfg.DownloadRateLimit)
	}
	if !cfg.DisableSeeding {
		t.Fatal("DisableSeeding = false")
	}
	if cfg.RateLimitRPS != 25 || cfg.RateLimitBurst != 50 {
		t.Fatalf("rate limit = %d/%d, want 25/50", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	want := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != want[0] || cfg.AllowedOrigins[1] != want[1] {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("MAX_SESSIONS", "not-a-number")
	t.Setenv("SESSION_IDLE_TIMEOUT", "-5m")
	t.Setenv("DISABLE_SEEDING", "maybe")

	cfg := LoadConfig()

	if cfg.MaxSessions != 0 {
		t.Fatalf("MaxSessions = %d, want fallback 0", cfg.MaxSessions)
	}
	if cfg.SessionIdleTime != 0 {
		t.Fatalf("SessionIdleTime = %v, want fallback 0", cfg.SessionIdleTime)
	}
	if cfg.DisableSeeding {
		t.Fatal("DisableSeeding = true, want fallback false")
	}
}
