package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteEmitsJSONLineWithFields(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })

	Warn("board.delete.objects_failed", map[string]any{
		"applicant_id": "a-1",
		"err":          errors.New("boom"),
		"level":        "ignored",
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected warn level, got %v", entry["level"])
	}
	if entry["msg"] != "board.delete.objects_failed" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["err"] != "boom" {
		t.Fatalf("expected error to be rendered as string, got %v", entry["err"])
	}
	if entry["applicant_id"] != "a-1" {
		t.Fatalf("missing applicant_id field")
	}
}
