package applicants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"applicant-tracker/internal/shared/storage/db"
)

// PGRepo implements Store using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const applicantColumns = `id, name, role, avatar_url, stage, assigned_to_id, interview_date, email, phone, created_by, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// ListByOwner returns every applicant of the owner, newest first, with children joined in Go.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Applicant, error) {
	query := `
SELECT ` + applicantColumns + `
FROM applicants
WHERE created_by = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Applicant{}
	index := map[string]int{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		index[a.ID] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := r.loadChildren(ctx, "created_by", ownerID, func(applicantID string) *Applicant {
		if i, ok := index[applicantID]; ok {
			return &out[i]
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns one joined applicant.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, id string) (Applicant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Applicant{}, ErrNotFound
	}
	query := `
SELECT ` + applicantColumns + `
FROM applicants
WHERE id = $1 AND created_by = $2`
	a, err := scanApplicant(r.DB.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Applicant{}, ErrNotFound
		}
		return Applicant{}, err
	}
	if err := r.loadChildren(ctx, "applicant_id", id, func(applicantID string) *Applicant {
		if applicantID == a.ID {
			return &a
		}
		return nil
	}); err != nil {
		return Applicant{}, err
	}
	return a, nil
}

// Insert creates the applicant row and returns it as stored.
func (r *PGRepo) Insert(ctx context.Context, ownerID string, fields Fields) (Applicant, error) {
	if err := fields.Validate(); err != nil {
		return Applicant{}, err
	}
	query := `
INSERT INTO applicants (name, role, avatar_url, stage, assigned_to_id, interview_date, email, phone, created_by)
VALUES ($1, $2, $3, $4, $5, $6::timestamptz, $7, $8, $9)
RETURNING ` + applicantColumns
	a, err := scanApplicant(r.DB.QueryRowContext(
		ctx,
		query,
		fields.Name,
		fields.Role,
		fields.AvatarURL,
		string(fields.Stage),
		nullableString(fields.AssignedToID),
		nullableString(fields.InterviewDate),
		nullableString(fields.Email),
		nullableString(fields.Phone),
		ownerID,
	))
	if err != nil {
		return Applicant{}, err
	}
	return a, nil
}

// UpdateFields overwrites the allow-listed scalar columns.
func (r *PGRepo) UpdateFields(ctx context.Context, ownerID, id string, fields Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	const query = `
UPDATE applicants
SET name = $1,
    role = $2,
    avatar_url = $3,
    stage = $4,
    assigned_to_id = $5,
    interview_date = $6::timestamptz,
    email = $7,
    phone = $8
WHERE id = $9 AND created_by = $10`
	res, err := r.DB.ExecContext(
		ctx,
		query,
		fields.Name,
		fields.Role,
		fields.AvatarURL,
		string(fields.Stage),
		nullableString(fields.AssignedToID),
		nullableString(fields.InterviewDate),
		nullableString(fields.Email),
		nullableString(fields.Phone),
		id,
		ownerID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// UpdateStage writes only the stage column.
func (r *PGRepo) UpdateStage(ctx context.Context, ownerID, id string, stage Stage) error {
	if !stage.Valid() {
		return invalid("stage is invalid")
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	const query = `UPDATE applicants SET stage = $1 WHERE id = $2 AND created_by = $3`
	res, err := r.DB.ExecContext(ctx, query, string(stage), id, ownerID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes the applicant; child rows go with it via ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	const query = `DELETE FROM applicants WHERE id = $1 AND created_by = $2`
	res, err := r.DB.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// InsertNote stores a single note under a store-assigned id.
func (r *PGRepo) InsertNote(ctx context.Context, note Note) (Note, error) {
	const query = `
INSERT INTO notes (applicant_id, content, created_by, created_at)
VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))
RETURNING id, created_at`
	var id string
	err := r.DB.QueryRowContext(ctx, query, note.ApplicantID, note.Content, note.CreatedBy, nullableTime(note.CreatedAt)).
		Scan(&id, &note.CreatedAt)
	if err != nil {
		return Note{}, err
	}
	note.ID = Persisted(id)
	return note, nil
}

// InsertAttachment stores a single attachment under a store-assigned id.
func (r *PGRepo) InsertAttachment(ctx context.Context, att Attachment) (Attachment, error) {
	const query = `
INSERT INTO attachments (applicant_id, file_name, url, mime_type, bucket, object_path, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::timestamptz, now()))
RETURNING id, created_at`
	var id string
	err := r.DB.QueryRowContext(
		ctx,
		query,
		att.ApplicantID,
		att.FileName,
		att.URL,
		att.MimeType,
		nullableText(att.Bucket),
		nullableText(att.ObjectPath),
		att.CreatedBy,
		nullableTime(att.CreatedAt),
	).Scan(&id, &att.CreatedAt)
	if err != nil {
		return Attachment{}, err
	}
	att.ID = Persisted(id)
	return att, nil
}

// UpsertNotes writes the batch in one transaction.
func (r *PGRepo) UpsertNotes(ctx context.Context, notes []Note) error {
	const insert = `
INSERT INTO notes (applicant_id, content, created_by, created_at)
VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))`
	const upsert = `
INSERT INTO notes (id, applicant_id, content, created_by, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()))
ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content
WHERE notes.created_by = EXCLUDED.created_by`
	return db.InTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, n := range notes {
			var err error
			if n.ID.IsPersisted() {
				if err := checkUUID(n.ID.String()); err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx, upsert, n.ID.String(), n.ApplicantID, n.Content, n.CreatedBy, nullableTime(n.CreatedAt))
			} else {
				_, err = tx.ExecContext(ctx, insert, n.ApplicantID, n.Content, n.CreatedBy, nullableTime(n.CreatedAt))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertTasks writes the batch in one transaction.
func (r *PGRepo) UpsertTasks(ctx context.Context, tasks []Task) error {
	const insert = `
INSERT INTO tasks (applicant_id, description, status, created_by, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()))`
	const upsert = `
INSERT INTO tasks (id, applicant_id, description, status, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, now()))
ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description, status = EXCLUDED.status
WHERE tasks.created_by = EXCLUDED.created_by`
	for _, t := range tasks {
		if !t.Status.Valid() {
			return invalid(fmt.Sprintf("task status %q is invalid", t.Status))
		}
	}
	return db.InTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, t := range tasks {
			var err error
			if t.ID.IsPersisted() {
				if err := checkUUID(t.ID.String()); err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx, upsert, t.ID.String(), t.ApplicantID, t.Description, string(t.Status), t.CreatedBy, nullableTime(t.CreatedAt))
			} else {
				_, err = tx.ExecContext(ctx, insert, t.ApplicantID, t.Description, string(t.Status), t.CreatedBy, nullableTime(t.CreatedAt))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertAttachments writes the batch in one transaction.
func (r *PGRepo) UpsertAttachments(ctx context.Context, atts []Attachment) error {
	const insert = `
INSERT INTO attachments (applicant_id, file_name, url, mime_type, bucket, object_path, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::timestamptz, now()))`
	const upsert = `
INSERT INTO attachments (id, applicant_id, file_name, url, mime_type, bucket, object_path, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::timestamptz, now()))
ON CONFLICT (id) DO UPDATE SET file_name = EXCLUDED.file_name, url = EXCLUDED.url, mime_type = EXCLUDED.mime_type
WHERE attachments.created_by = EXCLUDED.created_by`
	return db.InTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, a := range atts {
			var err error
			if a.ID.IsPersisted() {
				if err := checkUUID(a.ID.String()); err != nil {
					return err
				}
				_, err = tx.ExecContext(ctx, upsert, a.ID.String(), a.ApplicantID, a.FileName, a.URL, a.MimeType,
					nullableText(a.Bucket), nullableText(a.ObjectPath), a.CreatedBy, nullableTime(a.CreatedAt))
			} else {
				_, err = tx.ExecContext(ctx, insert, a.ApplicantID, a.FileName, a.URL, a.MimeType,
					nullableText(a.Bucket), nullableText(a.ObjectPath), a.CreatedBy, nullableTime(a.CreatedAt))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteChildren removes the listed rows of kind in a single statement.
func (r *PGRepo) DeleteChildren(ctx context.Context, ownerID string, kind ChildKind, ids []string) error {
	table := kind.Table()
	if table == "" {
		return invalid("unknown child kind")
	}
	args := []any{ownerID}
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		args = append(args, id)
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}
	if len(placeholders) == 0 {
		return nil
	}
	query := "DELETE FROM " + table + " WHERE created_by = $1 AND id IN (" + strings.Join(placeholders, ", ") + ")"
	_, err := r.DB.ExecContext(ctx, query, args...)
	return err
}

// loadChildren reads notes, tasks and attachments matching column = value and hands each row to its parent.
func (r *PGRepo) loadChildren(ctx context.Context, column, value string, parent func(applicantID string) *Applicant) error {
	noteQuery := `SELECT id, applicant_id, content, created_by, created_at FROM notes WHERE ` + column + ` = $1 ORDER BY created_at ASC`
	if err := r.each(ctx, noteQuery, value, func(rows *sql.Rows) error {
		var n Note
		var id string
		if err := rows.Scan(&id, &n.ApplicantID, &n.Content, &n.CreatedBy, &n.CreatedAt); err != nil {
			return err
		}
		n.ID = Persisted(id)
		if a := parent(n.ApplicantID); a != nil {
			a.Notes = append(a.Notes, n)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("load notes: %w", err)
	}

	taskQuery := `SELECT id, applicant_id, description, status, created_by, created_at FROM tasks WHERE ` + column + ` = $1 ORDER BY created_at ASC`
	if err := r.each(ctx, taskQuery, value, func(rows *sql.Rows) error {
		var t Task
		var id, status string
		if err := rows.Scan(&id, &t.ApplicantID, &t.Description, &status, &t.CreatedBy, &t.CreatedAt); err != nil {
			return err
		}
		t.ID = Persisted(id)
		t.Status = TaskStatus(status)
		if a := parent(t.ApplicantID); a != nil {
			a.Tasks = append(a.Tasks, t)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	attQuery := `SELECT id, applicant_id, file_name, url, mime_type, bucket, object_path, created_by, created_at FROM attachments WHERE ` + column + ` = $1 ORDER BY created_at ASC`
	if err := r.each(ctx, attQuery, value, func(rows *sql.Rows) error {
		var att Attachment
		var id string
		var bucket, objectPath sql.NullString
		if err := rows.Scan(&id, &att.ApplicantID, &att.FileName, &att.URL, &att.MimeType, &bucket, &objectPath, &att.CreatedBy, &att.CreatedAt); err != nil {
			return err
		}
		att.ID = Persisted(id)
		if bucket.Valid {
			att.Bucket = bucket.String
		}
		if objectPath.Valid {
			att.ObjectPath = objectPath.String
		}
		if a := parent(att.ApplicantID); a != nil {
			a.Attachments = append(a.Attachments, att)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	return nil
}

func (r *PGRepo) each(ctx context.Context, query, arg string, fn func(rows *sql.Rows) error) error {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanApplicant(row rowScanner) (Applicant, error) {
	var a Applicant
	var stage string
	var assignedTo, email, phone sql.NullString
	var interview sql.NullTime
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Role,
		&a.AvatarURL,
		&stage,
		&assignedTo,
		&interview,
		&email,
		&phone,
		&a.CreatedBy,
		&a.CreatedAt,
	); err != nil {
		return Applicant{}, err
	}
	a.Stage = Stage(stage)
	a.AssignedToID = fromNullString(assignedTo)
	a.Email = fromNullString(email)
	a.Phone = fromNullString(phone)
	if interview.Valid {
		formatted := interview.Time.UTC().Format(time.RFC3339)
		a.InterviewDate = &formatted
	}
	a.Notes = []Note{}
	a.Tasks = []Task{}
	a.Attachments = []Attachment{}
	return a, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid(fmt.Sprintf("id %q is not a store id", id))
	}
	return nil
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableText(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
