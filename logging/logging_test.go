package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"none", zerolog.Disabled, true},
		{"disabled", zerolog.Disabled, true},
		{"fatal", zerolog.FatalLevel, true},
		{"", zerolog.InfoLevel, false},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tc := range cases {
		got, ok := parseLevel(tc.raw)
		require.Equal(t, tc.ok, ok, tc.raw)
		require.Equal(t, tc.want, got, tc.raw)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogJSON, "maybe")

	cfg := Config{Level: "debug"}
	applyEnvOverrides(&cfg)

	require.Equal(t, "error", cfg.Level)
	require.True(t, cfg.NoColor)
	require.False(t, cfg.JSON, "unparsable bool is ignored")
}

func TestEnvOverrideIgnoresUnknownLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "verbose")

	cfg := Config{Level: "warn"}
	applyEnvOverrides(&cfg)
	require.Equal(t, "warn", cfg.Level)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", JSON: true}, &buf)

	log.Info().Msg("hidden")
	require.Zero(t, buf.Len())

	log.Warn().Str("cmd", "cpu_query").Msg("transaction failed")
	require.Contains(t, buf.String(), `"cmd":"cpu_query"`)
	require.Contains(t, buf.String(), `"level":"warn"`)
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", NoColor: true}, &buf)

	log.Info().Msg("link open")
	require.Contains(t, buf.String(), "link open")
	require.NotContains(t, buf.String(), "\x1b[")
}
