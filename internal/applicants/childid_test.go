package applicants

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseChildIDClassifiesByPrefix(t *testing.T) {
	cases := []struct {
		raw       string
		persisted bool
	}{
		{raw: "note-1715000000000", persisted: false},
		{raw: "task-1715000000000", persisted: false},
		{raw: "attachment-1715000000000", persisted: false},
		{raw: "", persisted: false},
		{raw: "6f1d2c9e-1a8b-4a53-9a57-1d1c3e5b7f00", persisted: true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			id := ParseChildID(tc.raw)
			if id.IsPersisted() != tc.persisted {
				t.Fatalf("persisted = %v, want %v", id.IsPersisted(), tc.persisted)
			}
			if id.String() != tc.raw {
				t.Fatalf("String() = %q, want %q", id.String(), tc.raw)
			}
		})
	}
}

func TestNewUnsavedUsesPrefixAndMillis(t *testing.T) {
	now := time.UnixMilli(1715000000123)
	id := NewUnsaved(KindTask, now)
	if id.String() != "task-1715000000123" {
		t.Fatalf("unexpected temp id %q", id.String())
	}
	if id.IsPersisted() {
		t.Fatalf("temp id must not be persisted")
	}
}

func TestChildIDJSONRoundTripKeepsClassification(t *testing.T) {
	var note Note
	if err := json.Unmarshal([]byte(`{"id":"note-42","content":"hi"}`), &note); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if note.ID.IsPersisted() {
		t.Fatalf("expected unsaved id")
	}
	out, err := json.Marshal(note.ID)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"note-42"` {
		t.Fatalf("unexpected wire id %s", out)
	}

	var task Task
	if err := json.Unmarshal([]byte(`{"id":null,"description":"call"}`), &task); err != nil {
		t.Fatalf("unmarshal null id: %v", err)
	}
	if task.ID.IsPersisted() || task.ID.String() != "" {
		t.Fatalf("null id should be blank and unsaved, got %+v", task.ID)
	}
}

func TestPersistedIDsSkipsUnsaved(t *testing.T) {
	ids := []ChildID{Persisted("a"), Unsaved("note-1"), Persisted("b")}
	got := PersistedIDs(ids)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected ids %v", got)
	}
}
