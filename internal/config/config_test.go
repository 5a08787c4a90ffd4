package config

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestFromEnvironmentDefaults(t *testing.T) {
	cfg := FromEnvironment()
	if cfg.WindowWidth != 1280 || cfg.WindowHeight != 720 {
		t.Fatalf("expected default 1280x720, got %dx%d", cfg.WindowWidth, cfg.WindowHeight)
	}
	if cfg.EnableValidation {
		t.Fatalf("validation must default to off")
	}
	if cfg.LogLevel != zerolog.InfoLevel {
		t.Fatalf("expected default info log level, got %v", cfg.LogLevel)
	}
}

func TestFromEnvironmentOverrides(t *testing.T) {
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envValidation, "true")
	t.Setenv(envWidth, "640")
	t.Setenv(envHeight, "480")

	cfg := FromEnvironment()
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
	if !cfg.EnableValidation {
		t.Fatalf("expected validation enabled")
	}
	if cfg.WindowWidth != 640 || cfg.WindowHeight != 480 {
		t.Fatalf("expected 640x480, got %dx%d", cfg.WindowWidth, cfg.WindowHeight)
	}
}

func TestFromEnvironmentIgnoresInvalidOverrides(t *testing.T) {
	t.Setenv(envWidth, "not-a-number")
	t.Setenv(envHeight, "-5")

	cfg := FromEnvironment()
	if cfg.WindowWidth != 1280 || cfg.WindowHeight != 720 {
		t.Fatalf("invalid overrides must fall back to defaults, got %dx%d", cfg.WindowWidth, cfg.WindowHeight)
	}
}

func TestUsageChaining(t *testing.T) {
	u := NewUsage("base", 1)
	if u.HasNext() {
		t.Fatalf("freshly built usage must not have a linked usage")
	}
	if _, err := u.GetLinkedUsage(); err == nil {
		t.Fatalf("expected an error fetching a linked usage that does not exist")
	}
	u.LinkedUsage = NewUsage("override", 1)
	if !u.HasNext() {
		t.Fatalf("expected HasNext to report true once LinkedUsage is set")
	}
}
