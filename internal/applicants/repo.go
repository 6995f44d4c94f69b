package applicants

import "context"

// Store is the remote persistence contract for applicant aggregates.
// Every call is scoped to the owning user. Batched calls are atomic per call.
type Store interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Applicant, error)
	GetByID(ctx context.Context, ownerID, id string) (Applicant, error)
	Insert(ctx context.Context, ownerID string, fields Fields) (Applicant, error)
	UpdateFields(ctx context.Context, ownerID, id string, fields Fields) error
	UpdateStage(ctx context.Context, ownerID, id string, stage Stage) error
	Delete(ctx context.Context, ownerID, id string) error

	InsertNote(ctx context.Context, note Note) (Note, error)
	InsertAttachment(ctx context.Context, att Attachment) (Attachment, error)

	// Upsert* insert rows with unsaved ids under a fresh store id and update persisted ones in place.
	UpsertNotes(ctx context.Context, notes []Note) error
	UpsertTasks(ctx context.Context, tasks []Task) error
	UpsertAttachments(ctx context.Context, atts []Attachment) error

	DeleteChildren(ctx context.Context, ownerID string, kind ChildKind, ids []string) error
}
