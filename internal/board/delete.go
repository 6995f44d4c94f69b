package board

import (
	"context"
	"fmt"
	"time"

	"applicant-tracker/internal/events"
	"applicant-tracker/internal/shared/metrics"
)

// Delete removes an applicant locally at once, then its stored files and its row.
// File deletion failures are logged and do not block the row deletion.
func (b *Board) Delete(ctx context.Context, applicantID string) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveBoardOp("delete", err, time.Since(start)) }()

	done := b.begin(applicantID)
	defer done()

	snap, ok := b.snapshot(applicantID)
	if !ok {
		return fmt.Errorf("delete %s: %w", applicantID, ErrNotFound)
	}
	b.remove(applicantID)

	b.deleteObjects(ctx, "delete", applicantID, snap.applicant.Attachments)

	if err := b.remote.Delete(ctx, b.ownerID, applicantID); err != nil {
		return b.rollback("delete", snap, fmt.Errorf("delete applicant: %w", err))
	}
	b.publish(ctx, events.New(events.ApplicantDeleted, b.ownerID, applicantID))
	return nil
}
