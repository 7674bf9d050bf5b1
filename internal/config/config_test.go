package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SLOT_DURATION", "")
	t.Setenv("MAX_ADVANCE_DAYS", "")
	t.Setenv("MIN_CANCEL_LEAD", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SlotDuration != 30*time.Minute {
		t.Fatalf("expected default slot duration, got %s", cfg.SlotDuration)
	}
	if cfg.MaxAdvanceDays != 30 {
		t.Fatalf("expected default advance horizon, got %d", cfg.MaxAdvanceDays)
	}
	if cfg.MinCancelLead != 2*time.Hour {
		t.Fatalf("expected default cancel lead, got %s", cfg.MinCancelLead)
	}
	if cfg.SlotCacheTTL != 60*time.Second {
		t.Fatalf("expected default slot cache ttl, got %s", cfg.SlotCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/hospital")
	t.Setenv("SLOT_DURATION", "15m")
	t.Setenv("MAX_ADVANCE_DAYS", "60")
	t.Setenv("MIN_CANCEL_LEAD", "4h")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/hospital" {
		t.Fatalf("expected database url override, got %s", cfg.DatabaseURL)
	}
	if cfg.SlotDuration != 15*time.Minute {
		t.Fatalf("expected slot duration override, got %s", cfg.SlotDuration)
	}
	if cfg.MaxAdvanceDays != 60 {
		t.Fatalf("expected advance horizon override, got %d", cfg.MaxAdvanceDays)
	}
	if cfg.MinCancelLead != 4*time.Hour {
		t.Fatalf("expected cancel lead override, got %s", cfg.MinCancelLead)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
}
