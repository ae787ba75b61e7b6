package telemetry

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteIncludesLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("compile.retry", map[string]any{"job_id": "j1", "level": "spoofed"})

	line := strings.TrimSpace(buf.String())
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected level=warn, got %v", payload["level"])
	}
	if payload["msg"] != "compile.retry" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["job_id"] != "j1" {
		t.Fatalf("unexpected job_id: %v", payload["job_id"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts")
	}
}
