package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://mahimeta.com/api" {
		t.Fatalf("unexpected api_base_url %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.SlotWidth != 320 || cfg.SlotHeight != 50 {
		t.Fatalf("unexpected slot size %dx%d", cfg.SlotWidth, cfg.SlotHeight)
	}
	if cfg.ReloadInterval != 0 {
		t.Fatalf("expected reload disabled, got %v", cfg.ReloadInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PUBLISHER_ID", "pub-42")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("RELOAD_INTERVAL_SECONDS", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PublisherID != "pub-42" {
		t.Fatalf("expected publisher id from env, got %q", cfg.PublisherID)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.ReloadInterval != time.Minute {
		t.Fatalf("expected 1m reload interval, got %v", cfg.ReloadInterval)
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}
