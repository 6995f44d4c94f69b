package applicants

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory implementation of Store used in dev and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	rows []Applicant // insertion order, oldest first
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{now: func() time.Time { return time.Now().UTC() }}
}

// ListByOwner returns the owner's applicants, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Applicant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Applicant{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].CreatedBy == ownerID {
			out = append(out, r.rows[i].Clone())
		}
	}
	return out, nil
}

// GetByID returns one joined applicant.
func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, id string) (Applicant, error) {
	if err := ctx.Err(); err != nil {
		return Applicant{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexOf(ownerID, id)
	if idx < 0 {
		return Applicant{}, ErrNotFound
	}
	return r.rows[idx].Clone(), nil
}

// Insert creates an applicant row and returns it with empty child collections.
func (r *MemoryRepo) Insert(ctx context.Context, ownerID string, fields Fields) (Applicant, error) {
	if err := ctx.Err(); err != nil {
		return Applicant{}, err
	}
	if err := fields.Validate(); err != nil {
		return Applicant{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a := Applicant{
		ID:          uuid.NewString(),
		CreatedBy:   ownerID,
		CreatedAt:   r.now(),
		Notes:       []Note{},
		Tasks:       []Task{},
		Attachments: []Attachment{},
	}
	fields.Apply(&a)
	r.rows = append(r.rows, a)
	return a.Clone(), nil
}

// UpdateFields overwrites the allow-listed scalar fields.
func (r *MemoryRepo) UpdateFields(ctx context.Context, ownerID, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(ownerID, id)
	if idx < 0 {
		return ErrNotFound
	}
	fields.Apply(&r.rows[idx])
	return nil
}

// UpdateStage writes only the stage column.
func (r *MemoryRepo) UpdateStage(ctx context.Context, ownerID, id string, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !stage.Valid() {
		return invalid("stage is invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(ownerID, id)
	if idx < 0 {
		return ErrNotFound
	}
	r.rows[idx].Stage = stage
	return nil
}

// Delete removes the applicant together with its children.
func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(ownerID, id)
	if idx < 0 {
		return ErrNotFound
	}
	r.rows = append(r.rows[:idx], r.rows[idx+1:]...)
	return nil
}

// InsertNote appends a note under a fresh id.
func (r *MemoryRepo) InsertNote(ctx context.Context, note Note) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(note.CreatedBy, note.ApplicantID)
	if idx < 0 {
		return Note{}, ErrNotFound
	}
	note.ID = Persisted(uuid.NewString())
	if note.CreatedAt.IsZero() {
		note.CreatedAt = r.now()
	}
	r.rows[idx].Notes = append(r.rows[idx].Notes, note)
	return note, nil
}

// InsertAttachment appends an attachment under a fresh id.
func (r *MemoryRepo) InsertAttachment(ctx context.Context, att Attachment) (Attachment, error) {
	if err := ctx.Err(); err != nil {
		return Attachment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(att.CreatedBy, att.ApplicantID)
	if idx < 0 {
		return Attachment{}, ErrNotFound
	}
	att.ID = Persisted(uuid.NewString())
	if att.CreatedAt.IsZero() {
		att.CreatedAt = r.now()
	}
	r.rows[idx].Attachments = append(r.rows[idx].Attachments, att)
	return att, nil
}

// UpsertNotes inserts unsaved notes and updates persisted ones.
func (r *MemoryRepo) UpsertNotes(ctx context.Context, notes []Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkParents(len(notes), func(i int) (string, string) { return notes[i].CreatedBy, notes[i].ApplicantID }); err != nil {
		return err
	}
	for _, n := range notes {
		parent := &r.rows[r.indexOf(n.CreatedBy, n.ApplicantID)]
		n = r.stampNote(n)
		if pos := findChild(len(parent.Notes), func(i int) ChildID { return parent.Notes[i].ID }, n.ID); pos >= 0 {
			parent.Notes[pos] = n
			continue
		}
		parent.Notes = append(parent.Notes, n)
	}
	return nil
}

// UpsertTasks inserts unsaved tasks and updates persisted ones.
func (r *MemoryRepo) UpsertTasks(ctx context.Context, tasks []Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkParents(len(tasks), func(i int) (string, string) { return tasks[i].CreatedBy, tasks[i].ApplicantID }); err != nil {
		return err
	}
	for _, t := range tasks {
		if !t.Status.Valid() {
			return invalid(fmt.Sprintf("task status %q is invalid", t.Status))
		}
	}
	for _, t := range tasks {
		parent := &r.rows[r.indexOf(t.CreatedBy, t.ApplicantID)]
		if !t.ID.IsPersisted() {
			t.ID = Persisted(uuid.NewString())
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = r.now()
		}
		if pos := findChild(len(parent.Tasks), func(i int) ChildID { return parent.Tasks[i].ID }, t.ID); pos >= 0 {
			parent.Tasks[pos] = t
			continue
		}
		parent.Tasks = append(parent.Tasks, t)
	}
	return nil
}

// UpsertAttachments inserts unsaved attachments and updates persisted ones.
func (r *MemoryRepo) UpsertAttachments(ctx context.Context, atts []Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkParents(len(atts), func(i int) (string, string) { return atts[i].CreatedBy, atts[i].ApplicantID }); err != nil {
		return err
	}
	for _, a := range atts {
		parent := &r.rows[r.indexOf(a.CreatedBy, a.ApplicantID)]
		if !a.ID.IsPersisted() {
			a.ID = Persisted(uuid.NewString())
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = r.now()
		}
		if pos := findChild(len(parent.Attachments), func(i int) ChildID { return parent.Attachments[i].ID }, a.ID); pos >= 0 {
			// the stored object of an existing row never moves
			a.Bucket, a.ObjectPath = parent.Attachments[pos].Bucket, parent.Attachments[pos].ObjectPath
			parent.Attachments[pos] = a
			continue
		}
		parent.Attachments = append(parent.Attachments, a)
	}
	return nil
}

// DeleteChildren removes the owner's rows of kind whose ids are listed.
func (r *MemoryRepo) DeleteChildren(ctx context.Context, ownerID string, kind ChildKind, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if kind.Table() == "" {
		return invalid("unknown child kind")
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		row := &r.rows[i]
		if row.CreatedBy != ownerID {
			continue
		}
		switch kind {
		case KindNote:
			row.Notes = filterChildren(row.Notes, func(n Note) bool { _, ok := drop[n.ID.String()]; return !ok })
		case KindTask:
			row.Tasks = filterChildren(row.Tasks, func(t Task) bool { _, ok := drop[t.ID.String()]; return !ok })
		case KindAttachment:
			row.Attachments = filterChildren(row.Attachments, func(a Attachment) bool { _, ok := drop[a.ID.String()]; return !ok })
		}
	}
	return nil
}

func (r *MemoryRepo) indexOf(ownerID, id string) int {
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].CreatedBy == ownerID {
			return i
		}
	}
	return -1
}

// checkParents validates every row before any write so a batch applies all or nothing.
func (r *MemoryRepo) checkParents(n int, key func(i int) (string, string)) error {
	for i := 0; i < n; i++ {
		owner, applicantID := key(i)
		if r.indexOf(owner, applicantID) < 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (r *MemoryRepo) stampNote(n Note) Note {
	if !n.ID.IsPersisted() {
		n.ID = Persisted(uuid.NewString())
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	return n
}

func findChild(n int, idAt func(i int) ChildID, id ChildID) int {
	for i := 0; i < n; i++ {
		if idAt(i) == id {
			return i
		}
	}
	return -1
}

func filterChildren[T any](items []T, keep func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
