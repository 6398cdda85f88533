package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("default level = %s, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("default pretty = true, want false")
	}
}

func TestSetupWritesToOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Output: buf})

	logger.Info().Str("endpoint", "/subscriptions").Msg("fetch complete")

	out := buf.String()
	if !strings.Contains(out, "fetch complete") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "/subscriptions") {
		t.Errorf("output missing field: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"WARN", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLoggerTagsComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("cache")
	logger.Info().Msg("entry stored")

	out := buf.String()
	if !strings.Contains(out, `"component":"cache"`) {
		t.Errorf("output missing component tag: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("client")
	logger.Debug().Msg("page walk")
	logger.Info().Msg("fetch complete")
	logger.Warn().Msg("retrying")
	logger.Error().Msg("retries exhausted")

	out := buf.String()
	for _, hidden := range []string{"page walk", "fetch complete"} {
		if strings.Contains(out, hidden) {
			t.Errorf("message %q should be filtered at warn level", hidden)
		}
	}
	for _, shown := range []string{"retrying", "retries exhausted"} {
		if !strings.Contains(out, shown) {
			t.Errorf("message %q missing at warn level", shown)
		}
	}
}
