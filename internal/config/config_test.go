package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("SYNC_CRON", "")

	cfg := Load()
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.ServerPort)
	}
	if cfg.Timezone != "Australia/Perth" {
		t.Fatalf("expected default timezone, got %s", cfg.Timezone)
	}
	if cfg.SyncCron != "" {
		t.Fatalf("expected sweep disabled by default, got %q", cfg.SyncCron)
	}
	if cfg.RosterCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m roster ttl, got %s", cfg.RosterCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_DB_CONNS", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", " https://a.test , ,https://b.test")

	cfg := Load()
	if cfg.MaxDBConns != 16 {
		t.Fatalf("expected fallback conns 16, got %d", cfg.MaxDBConns)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Invalid"}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback")
	}
}
