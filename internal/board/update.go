package board

import (
	"context"
	"fmt"
	"time"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/events"
	"applicant-tracker/internal/shared/metrics"
)

// Update writes an edited aggregate: allow-listed scalar fields, then notes, tasks and
// attachments reconciled against the last server copy, then the stage protocol if the
// stage moved. The returned aggregate is the re-fetched server copy.
func (b *Board) Update(ctx context.Context, record applicants.Applicant) (out applicants.Applicant, err error) {
	start := time.Now()
	defer func() { metrics.ObserveBoardOp("update", err, time.Since(start)) }()

	done := b.begin(record.ID)
	defer done()

	snap, ok := b.snapshot(record.ID)
	if !ok {
		return applicants.Applicant{}, fmt.Errorf("update %s: %w", record.ID, ErrNotFound)
	}
	fields := applicants.FieldsOf(record)
	if !fields.Stage.Valid() {
		return applicants.Applicant{}, fmt.Errorf("update to stage %q: %w", fields.Stage, ErrInvalidStage)
	}
	if err := fields.Validate(); err != nil {
		return applicants.Applicant{}, err
	}
	tasks := make([]applicants.Task, len(record.Tasks))
	for i, t := range record.Tasks {
		if t.Status == "" {
			t.Status = applicants.TaskToDo
		}
		if !t.Status.Valid() {
			return applicants.Applicant{}, fmt.Errorf("%w: task status %q", applicants.ErrInvalidInput, t.Status)
		}
		tasks[i] = t
	}
	prior := snap.applicant
	atts, err := b.pinStorage(prior.Attachments, record.Attachments)
	if err != nil {
		return applicants.Applicant{}, err
	}

	local := prior.Clone()
	fields.Apply(&local)
	local.Notes = append([]applicants.Note{}, record.Notes...)
	local.Tasks = tasks
	local.Attachments = atts
	b.replace(local)

	if err := b.remote.UpdateFields(ctx, b.ownerID, prior.ID, fields); err != nil {
		return applicants.Applicant{}, b.rollback("update", snap, fmt.Errorf("update fields: %w", err))
	}
	if err := b.reconcile(ctx, prior, local); err != nil {
		return applicants.Applicant{}, b.rollback("update", snap, err)
	}
	stageMoved := prior.Stage != fields.Stage
	if stageMoved {
		if _, err := b.writeStage(ctx, prior.ID, fields.Stage); err != nil {
			return applicants.Applicant{}, b.rollback("update", snap, err)
		}
	}
	fresh, err := b.remote.GetByID(ctx, b.ownerID, prior.ID)
	if err != nil {
		return applicants.Applicant{}, b.rollback("update", snap, fmt.Errorf("refetch applicant: %w", err))
	}
	b.replace(fresh)

	b.publish(ctx, events.New(events.ApplicantUpdated, b.ownerID, prior.ID))
	if stageMoved {
		evt := events.New(events.ApplicantStageChanged, b.ownerID, prior.ID)
		evt.Stage = string(fields.Stage)
		evt.PrevStage = string(prior.Stage)
		b.publish(ctx, evt)
	}
	b.deleteDroppedObjects(ctx, prior, fresh)
	return fresh.Clone(), nil
}

// reconcile makes each remote child collection match current, in notes, tasks, attachments order.
func (b *Board) reconcile(ctx context.Context, prior, current applicants.Applicant) error {
	id := current.ID
	if err := reconcilePass(applicants.KindNote, prior.Notes, current.Notes,
		func(n applicants.Note) applicants.ChildID { return n.ID },
		func(n applicants.Note) applicants.Note {
			n.ID = stripUnsaved(n.ID)
			n.ApplicantID, n.CreatedBy = id, b.ownerID
			return n
		},
		func(ids []string) error { return b.remote.DeleteChildren(ctx, b.ownerID, applicants.KindNote, ids) },
		func(rows []applicants.Note) error { return b.remote.UpsertNotes(ctx, rows) },
	); err != nil {
		return err
	}
	if err := reconcilePass(applicants.KindTask, prior.Tasks, current.Tasks,
		func(t applicants.Task) applicants.ChildID { return t.ID },
		func(t applicants.Task) applicants.Task {
			t.ID = stripUnsaved(t.ID)
			t.ApplicantID, t.CreatedBy = id, b.ownerID
			return t
		},
		func(ids []string) error { return b.remote.DeleteChildren(ctx, b.ownerID, applicants.KindTask, ids) },
		func(rows []applicants.Task) error { return b.remote.UpsertTasks(ctx, rows) },
	); err != nil {
		return err
	}
	return reconcilePass(applicants.KindAttachment, prior.Attachments, current.Attachments,
		func(a applicants.Attachment) applicants.ChildID { return a.ID },
		func(a applicants.Attachment) applicants.Attachment {
			a.ID = stripUnsaved(a.ID)
			a.ApplicantID, a.CreatedBy = id, b.ownerID
			return a
		},
		func(ids []string) error { return b.remote.DeleteChildren(ctx, b.ownerID, applicants.KindAttachment, ids) },
		func(rows []applicants.Attachment) error { return b.remote.UpsertAttachments(ctx, rows) },
	)
}

// reconcilePass deletes ids present in prior but absent from current, then upserts every
// current item. The upsert never runs if the delete failed.
func reconcilePass[T any](
	kind applicants.ChildKind,
	prior, current []T,
	idOf func(T) applicants.ChildID,
	stamp func(T) T,
	deleteIDs func(ids []string) error,
	upsert func(rows []T) error,
) error {
	kept := make(map[applicants.ChildID]struct{}, len(current))
	for _, item := range current {
		kept[idOf(item)] = struct{}{}
	}
	var removed []string
	for _, item := range prior {
		id := idOf(item)
		if !id.IsPersisted() {
			continue
		}
		if _, ok := kept[id]; !ok {
			removed = append(removed, id.String())
		}
	}
	if len(removed) > 0 {
		if err := deleteIDs(removed); err != nil {
			return fmt.Errorf("delete %s: %w", kind, err)
		}
	}
	if len(current) == 0 {
		return nil
	}
	rows := make([]T, len(current))
	for i, item := range current {
		rows[i] = stamp(item)
	}
	if err := upsert(rows); err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}
	return nil
}

// stripUnsaved drops a temporary id so the store assigns one.
func stripUnsaved(id applicants.ChildID) applicants.ChildID {
	if id.IsPersisted() {
		return id
	}
	return applicants.Unsaved("")
}

// deleteDroppedObjects removes stored files of attachments the update removed. Failures are logged only.
func (b *Board) deleteDroppedObjects(ctx context.Context, prior, fresh applicants.Applicant) {
	still := make(map[string]struct{}, len(fresh.Attachments))
	for _, att := range fresh.Attachments {
		still[att.ObjectPath] = struct{}{}
	}
	var dropped []applicants.Attachment
	for _, att := range prior.Attachments {
		if _, ok := still[att.ObjectPath]; !ok {
			dropped = append(dropped, att)
		}
	}
	b.deleteObjects(ctx, "update", prior.ID, dropped)
}
