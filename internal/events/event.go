package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type names an applicant lifecycle event.
type Type string

const (
	ApplicantCreated      Type = "applicant.created"
	ApplicantUpdated      Type = "applicant.updated"
	ApplicantStageChanged Type = "applicant.stage_changed"
	ApplicantDeleted      Type = "applicant.deleted"
)

// Event is the payload fanned out to downstream consumers after a committed mutation.
type Event struct {
	Type        Type   `json:"type"`
	OwnerID     string `json:"ownerId"`
	ApplicantID string `json:"applicantId"`
	Stage       string `json:"stage,omitempty"`
	PrevStage   string `json:"prevStage,omitempty"`
	At          string `json:"at"`
	Version     int    `json:"version"`
}

// New stamps an event with the current time and schema version.
func New(typ Type, ownerID, applicantID string) Event {
	return Event{
		Type:        typ,
		OwnerID:     ownerID,
		ApplicantID: applicantID,
		At:          time.Now().UTC().Format(time.RFC3339),
		Version:     1,
	}
}

// Publisher delivers events. Callers treat delivery as best-effort.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Encode returns the JSON representation of an event.
func Encode(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}

// Decode parses a JSON payload into an Event.
func Decode(payload []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

var _ Publisher = Nop{}
