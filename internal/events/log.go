package events

import (
	"context"

	"applicant-tracker/internal/shared/telemetry"
)

// LogPublisher writes events to the structured log. It is the default for local runs.
type LogPublisher struct{}

// Publish implements Publisher.
func (LogPublisher) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields := map[string]any{
		"type":         string(evt.Type),
		"owner_id":     evt.OwnerID,
		"applicant_id": evt.ApplicantID,
		"at":           evt.At,
	}
	if evt.Stage != "" {
		fields["stage"] = evt.Stage
	}
	if evt.PrevStage != "" {
		fields["prev_stage"] = evt.PrevStage
	}
	telemetry.Info("event.published", fields)
	return nil
}

var _ Publisher = LogPublisher{}
