// Package logging builds the zerolog loggers used by the RSCP commands.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "RSCP_LOG_LEVEL"
	EnvLogNoColor = "RSCP_LOG_NOCOLOR"
	EnvLogJSON    = "RSCP_LOG_JSON"
)

// Config selects level and output format
type Config struct {
	Level   string
	NoColor bool
	JSON    bool
}

// Configure applies environment overrides to cfg, sets the global level
// and returns a logger writing to stderr.
func Configure(cfg Config) zerolog.Logger {
	applyEnvOverrides(&cfg)
	lvl, ok := parseLevel(cfg.Level)
	if !ok {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return New(cfg, os.Stderr)
}

// New returns a logger writing to w. A console writer is used unless
// cfg.JSON is set.
func New(cfg Config, w io.Writer) zerolog.Logger {
	lvl, ok := parseLevel(cfg.Level)
	if !ok {
		lvl = zerolog.InfoLevel
	}

	out := w
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    cfg.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		if _, ok := parseLevel(raw); ok {
			cfg.Level = raw
		}
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

// parseLevel accepts zerolog's level names plus "off" and "none"
func parseLevel(raw string) (zerolog.Level, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "off", "none":
		return zerolog.Disabled, true
	}
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
