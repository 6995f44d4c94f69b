package applicants

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ChildKind identifies one of the child collections of an applicant.
type ChildKind int

const (
	KindNote ChildKind = iota
	KindTask
	KindAttachment
)

// ChildKinds lists the collections in reconciliation order.
var ChildKinds = []ChildKind{KindNote, KindTask, KindAttachment}

// Table is the relational table backing the collection.
func (k ChildKind) Table() string {
	switch k {
	case KindNote:
		return "notes"
	case KindTask:
		return "tasks"
	case KindAttachment:
		return "attachments"
	}
	return ""
}

// TempPrefix marks client-generated ids that have not been stored yet.
func (k ChildKind) TempPrefix() string {
	switch k {
	case KindNote:
		return "note-"
	case KindTask:
		return "task-"
	case KindAttachment:
		return "attachment-"
	}
	return ""
}

func (k ChildKind) String() string {
	return k.Table()
}

// ChildID is either a store-assigned id or a temporary client id awaiting its first save.
type ChildID struct {
	value     string
	persisted bool
}

// Persisted wraps an id assigned by the store.
func Persisted(id string) ChildID {
	return ChildID{value: id, persisted: true}
}

// Unsaved wraps a temporary id. The store replaces it on first save.
func Unsaved(tempID string) ChildID {
	return ChildID{value: tempID}
}

// NewUnsaved builds a temporary id of the form <prefix><unix-millis>.
func NewUnsaved(kind ChildKind, now time.Time) ChildID {
	return Unsaved(kind.TempPrefix() + strconv.FormatInt(now.UnixMilli(), 10))
}

// ParseChildID classifies a wire id. Blank ids and ids carrying a temp prefix are unsaved.
func ParseChildID(raw string) ChildID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unsaved("")
	}
	for _, kind := range ChildKinds {
		if strings.HasPrefix(raw, kind.TempPrefix()) {
			return Unsaved(raw)
		}
	}
	return Persisted(raw)
}

// IsPersisted reports whether the id was assigned by the store.
func (id ChildID) IsPersisted() bool {
	return id.persisted
}

// String returns the wire form of the id.
func (id ChildID) String() string {
	return id.value
}

// Equal reports whether both ids have the same value and origin.
func (id ChildID) Equal(other ChildID) bool {
	return id == other
}

// MarshalJSON writes the id as a plain string.
func (id ChildID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts a string or null.
func (id *ChildID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = Unsaved("")
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*id = ParseChildID(raw)
	return nil
}

// PersistedIDs returns the store ids among ids, skipping unsaved ones.
func PersistedIDs(ids []ChildID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id.IsPersisted() {
			out = append(out, id.String())
		}
	}
	return out
}
