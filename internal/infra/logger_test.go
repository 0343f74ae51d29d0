package infra

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerJSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "")
	componentLogger := Component(logger, "gift")
	componentLogger.Info().Str("iffy_id", "abc").Msg("saved")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "gift" || entry["iffy_id"] != "abc" || entry["env"] != "production" {
		t.Fatalf("unexpected fields: %#v", entry)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zerolog.Level
	}{
		{env: "development", want: zerolog.DebugLevel},
		{env: "production", want: zerolog.InfoLevel},
		{env: "production", level: "WARN", want: zerolog.WarnLevel},
		{env: "production", level: "nonsense", want: zerolog.InfoLevel},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		if got := newLogger(&buf, tc.env, tc.level).GetLevel(); got != tc.want {
			t.Fatalf("env=%s level=%q: got %s want %s", tc.env, tc.level, got, tc.want)
		}
	}
}
