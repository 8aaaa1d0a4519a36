package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND", "")
	t.Setenv("REFRESH_TOKEN_EXPIRATION", "")
	cfg := Load()
	if cfg.Backend.Kind != BackendFirestore {
		t.Fatalf("unexpected backend %q", cfg.Backend.Kind)
	}
	if cfg.JWT.RefreshTokenExpiration != 7*24*time.Hour {
		t.Fatalf("day durations not parsed: %v", cfg.JWT.RefreshTokenExpiration)
	}
	if cfg.DueSoon.ThresholdDays != 7 {
		t.Fatalf("unexpected threshold %d", cfg.DueSoon.ThresholdDays)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BACKEND", "Remote")
	t.Setenv("SCRIPT_RPS", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("RATE_LIMIT_WINDOW", "90")
	cfg := Load()
	if cfg.Backend.Kind != BackendRemote || cfg.Remote.RequestsPerSecond != 2.5 {
		t.Fatalf("unexpected remote config: %+v %+v", cfg.Backend, cfg.Remote)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "http://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.RateLimit.Window != 90*time.Second {
		t.Fatalf("bare numbers are seconds, got %v", cfg.RateLimit.Window)
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Timezone: "Nowhere/City"}}
	if cfg.Location() != time.Local {
		t.Fatalf("expected local fallback")
	}
}

func TestZeroDueSoonThresholdIsKept(t *testing.T) {
	t.Setenv("DUE_SOON_DAYS", "0")
	if cfg := Load(); cfg.DueSoon.ThresholdDays != 0 {
		t.Fatalf("threshold 0 overridden to %d", cfg.DueSoon.ThresholdDays)
	}
}
