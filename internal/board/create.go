package board

import (
	"context"
	"fmt"
	"strings"
	"time"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/events"
	"applicant-tracker/internal/shared/metrics"
	"applicant-tracker/internal/shared/storage/object"
	"applicant-tracker/internal/shared/telemetry"
)

// CreateInput carries the new-applicant form.
type CreateInput struct {
	Name       string
	Role       string
	Notes      string
	Email      string
	Phone      string
	Attachment *Upload
	Avatar     *Upload
}

// Create adds an applicant at the first stage with an optional initial note, resume and avatar.
// The board only shows the applicant once every remote step has succeeded.
func (b *Board) Create(ctx context.Context, in CreateInput) (out applicants.Applicant, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBoardOp("create", err, time.Since(start)) }()

	b.fetchMu.RLock()
	defer b.fetchMu.RUnlock()

	fields := applicants.Fields{
		Name:      strings.TrimSpace(in.Name),
		Role:      strings.TrimSpace(in.Role),
		AvatarURL: b.defaultAvatar,
		Stage:     applicants.StageApplied,
		Email:     applicants.StringPtr(in.Email),
		Phone:     applicants.StringPtr(in.Phone),
	}
	if err := fields.Validate(); err != nil {
		return applicants.Applicant{}, err
	}

	if in.Avatar != nil {
		url, err := b.UploadAvatar(ctx, *in.Avatar)
		if err != nil {
			telemetry.Warn("board.create.avatar_fallback", map[string]any{
				"owner_id": b.ownerID,
				"error":    err,
			})
		} else {
			fields.AvatarURL = url
		}
	}

	created, err := b.remote.Insert(ctx, b.ownerID, fields)
	if err != nil {
		return applicants.Applicant{}, b.fail("create", "", fmt.Errorf("insert applicant: %w", err))
	}

	if notes := strings.TrimSpace(in.Notes); notes != "" {
		note, err := b.remote.InsertNote(ctx, applicants.Note{
			ApplicantID: created.ID,
			Content:     notes,
			CreatedBy:   b.ownerID,
			CreatedAt:   b.now(),
		})
		if err != nil {
			b.compensateCreate(ctx, created.ID, nil)
			return applicants.Applicant{}, b.fail("create", created.ID, fmt.Errorf("insert note: %w", err))
		}
		created.Notes = append(created.Notes, note)
	}

	if in.Attachment != nil {
		stored, err := b.UploadFile(ctx, created.ID, *in.Attachment)
		if err != nil {
			b.compensateCreate(ctx, created.ID, nil)
			return applicants.Applicant{}, b.fail("create", created.ID, err)
		}
		att, err := b.remote.InsertAttachment(ctx, applicants.Attachment{
			ApplicantID: created.ID,
			FileName:    stored.FileName,
			URL:         stored.URL,
			MimeType:    stored.MimeType,
			Bucket:      stored.Bucket,
			ObjectPath:  stored.ObjectPath,
			CreatedBy:   b.ownerID,
			CreatedAt:   b.now(),
		})
		if err != nil {
			b.compensateCreate(ctx, created.ID, []string{stored.ObjectPath})
			return applicants.Applicant{}, b.fail("create", created.ID, fmt.Errorf("insert attachment: %w", err))
		}
		created.Attachments = append(created.Attachments, att)
	}

	b.prepend(created)
	evt := events.New(events.ApplicantCreated, b.ownerID, created.ID)
	evt.Stage = string(created.Stage)
	b.publish(ctx, evt)
	return created.Clone(), nil
}

// compensateCreate removes the half-created parent row (children cascade) and any uploaded
// resume. Failures are logged; the original error is what the caller sees.
func (b *Board) compensateCreate(ctx context.Context, applicantID string, objectPaths []string) {
	if len(objectPaths) > 0 && b.objects != nil {
		if err := b.objects.Delete(ctx, object.BucketAttachments, objectPaths); err != nil {
			telemetry.Warn("board.create.compensate_objects_failed", map[string]any{
				"owner_id":     b.ownerID,
				"applicant_id": applicantID,
				"error":        err,
			})
		}
	}
	if err := b.remote.Delete(ctx, b.ownerID, applicantID); err != nil {
		telemetry.Warn("board.create.compensate_row_failed", map[string]any{
			"owner_id":     b.ownerID,
			"applicant_id": applicantID,
			"error":        err,
		})
	}
}
