package infra

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerProductionEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "production")
	logger.Debug().Msg("hidden")
	logger.Info().Str("stage", "analyze").Msg("visible")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not a single JSON object: %v (%q)", err, buf.String())
	}
	if entry["service"] != "nexiro" || entry["stage"] != "analyze" || entry["message"] != "visible" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
}
