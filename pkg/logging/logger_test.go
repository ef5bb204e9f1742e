package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Level = %q, want %q", cfg.Level, LevelInfo)
	}
	if cfg.Pretty {
		t.Error("Pretty should default to false")
	}
	if cfg.Output == nil {
		t.Error("Output should default to stderr, not nil")
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  LevelInfo,
		Output: &buf,
	})

	logger.Info().Str("endpoint", "/v1/observations").Msg("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}

	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["endpoint"] != "/v1/observations" {
		t.Errorf("endpoint = %v", entry["endpoint"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entries should carry a timestamp")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  LevelWarn,
		Output: &buf,
	})

	logger.Debug().Msg("should be filtered")
	logger.Info().Msg("should be filtered")
	logger.Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("below-level messages leaked: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := Setup(Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: &buf,
	})

	logger.Info().Msg("console test")

	// Console output is not JSON.
	out := buf.String()
	if !strings.Contains(out, "console test") {
		t.Errorf("message missing from console output: %s", out)
	}
	var entry map[string]any
	if json.Unmarshal(buf.Bytes(), &entry) == nil {
		t.Error("pretty output should not be JSON")
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
		{LevelError, zerolog.ErrorLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: LevelInfo, Output: &buf})

	logger := NewLogger("collector")
	logger.Info().Msg("component test")

	if !strings.Contains(buf.String(), `"component":"collector"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}
