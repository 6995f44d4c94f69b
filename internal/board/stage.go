package board

import (
	"context"
	"fmt"
	"time"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/events"
	"applicant-tracker/internal/shared/metrics"
)

// ChangeStage moves an applicant to stage. It is a no-op when the stage is unchanged.
func (b *Board) ChangeStage(ctx context.Context, applicantID string, stage applicants.Stage) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveBoardOp("change_stage", err, time.Since(start)) }()

	done := b.begin(applicantID)
	defer done()

	snap, ok := b.snapshot(applicantID)
	if !ok {
		return fmt.Errorf("change stage %s: %w", applicantID, ErrNotFound)
	}
	if !stage.Valid() {
		return fmt.Errorf("change stage to %q: %w", stage, ErrInvalidStage)
	}
	if snap.applicant.Stage == stage {
		return nil
	}

	b.mutate(applicantID, func(a *applicants.Applicant) { a.Stage = stage })
	fresh, err := b.writeStage(ctx, applicantID, stage)
	if err != nil {
		return b.rollback("change_stage", snap, err)
	}
	b.replace(fresh)

	evt := events.New(events.ApplicantStageChanged, b.ownerID, applicantID)
	evt.Stage = string(stage)
	evt.PrevStage = string(snap.applicant.Stage)
	b.publish(ctx, evt)
	return nil
}

// writeStage is the remote half of a stage change: update the stage column, then re-read the aggregate.
func (b *Board) writeStage(ctx context.Context, applicantID string, stage applicants.Stage) (applicants.Applicant, error) {
	if err := b.remote.UpdateStage(ctx, b.ownerID, applicantID, stage); err != nil {
		return applicants.Applicant{}, fmt.Errorf("update stage: %w", err)
	}
	fresh, err := b.remote.GetByID(ctx, b.ownerID, applicantID)
	if err != nil {
		return applicants.Applicant{}, fmt.Errorf("refetch applicant: %w", err)
	}
	return fresh, nil
}
