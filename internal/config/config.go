package config

import (
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// Config is the concrete startup configuration the engine reads once at
// process start. It is read directly from environment variables, and AsUsage
// converts it into a Usage bag so the property-chaining shape stays
// available for any future layered config (e.g. a linked "debug" usage
// overriding a "release" one), but every field the engine actually consults
// is named and typed rather than map-indexed.
type Config struct {
	EnableValidation bool
	LogLevel         zerolog.Level
	WindowWidth      int
	WindowHeight     int
}

const (
	envLogLevel   = "NEA_LOG_LEVEL"
	envValidation = "NEA_VALIDATION"
	envWidth      = "NEA_WIDTH"
	envHeight     = "NEA_HEIGHT"
)

// FromEnvironment reads NEA_LOG_LEVEL, NEA_VALIDATION, NEA_WIDTH, and
// NEA_HEIGHT, falling back to defaults matching original_source's fixed
// 1280x720 non-resizable window.
func FromEnvironment() Config {
	cfg := Config{
		EnableValidation: false,
		LogLevel:         zerolog.InfoLevel,
		WindowWidth:      1280,
		WindowHeight:     720,
	}

	if v, ok := os.LookupEnv(envLogLevel); ok {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			cfg.LogLevel = lvl
		}
	}
	if v, ok := os.LookupEnv(envValidation); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableValidation = b
		}
	}
	if v, ok := os.LookupEnv(envWidth); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WindowWidth = n
		}
	}
	if v, ok := os.LookupEnv(envHeight); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WindowHeight = n
		}
	}

	return cfg
}

// AsUsage exposes the config through the Usage bag shape, for any caller
// that wants to Print() it or chain a linked override bag.
func (c Config) AsUsage() *Usage {
	u := NewUsage("engine", 4)
	u.BoolProps["validation"] = c.EnableValidation
	u.StringProps["log_level"] = c.LogLevel.String()
	u.IntProps["width"] = c.WindowWidth
	u.IntProps["height"] = c.WindowHeight
	return u
}
