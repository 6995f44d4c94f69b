package applicants

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const (
	testOwner     = "owner-1"
	testApplicant = "11111111-1111-4111-8111-111111111111"
	testNote      = "22222222-2222-4222-8222-222222222222"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func applicantRow(created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "role", "avatar_url", "stage", "assigned_to_id", "interview_date", "email", "phone", "created_by", "created_at"}).
		AddRow(testApplicant, "Ada", "Engineer", "https://cdn/avatar.png", "Interview", nil, created, "ada@example.com", nil, testOwner, created)
}

func TestPGRepoGetByIDJoinsChildren(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM applicants").
		WithArgs(testApplicant, testOwner).
		WillReturnRows(applicantRow(created))
	mock.ExpectQuery("FROM notes WHERE applicant_id").
		WithArgs(testApplicant).
		WillReturnRows(sqlmock.NewRows([]string{"id", "applicant_id", "content", "created_by", "created_at"}).
			AddRow(testNote, testApplicant, "great call", testOwner, created))
	mock.ExpectQuery("FROM tasks WHERE applicant_id").
		WithArgs(testApplicant).
		WillReturnRows(sqlmock.NewRows([]string{"id", "applicant_id", "description", "status", "created_by", "created_at"}))
	mock.ExpectQuery("FROM attachments WHERE applicant_id").
		WithArgs(testApplicant).
		WillReturnRows(sqlmock.NewRows([]string{"id", "applicant_id", "file_name", "url", "mime_type", "bucket", "object_path", "created_by", "created_at"}).
			AddRow("33333333-3333-4333-8333-333333333333", testApplicant, "cv.pdf", "https://x/attachments/a/b.pdf?sig=1", "application/pdf", "attachments", "a/b.pdf", testOwner, created))

	a, err := repo.GetByID(context.Background(), testOwner, testApplicant)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if a.Stage != StageInterview {
		t.Fatalf("stage = %q", a.Stage)
	}
	if a.InterviewDate == nil || *a.InterviewDate != "2024-05-01T10:00:00Z" {
		t.Fatalf("interview date = %v", a.InterviewDate)
	}
	if a.Phone != nil {
		t.Fatalf("expected NULL phone")
	}
	if len(a.Notes) != 1 || !a.Notes[0].ID.IsPersisted() || a.Notes[0].ID.String() != testNote {
		t.Fatalf("unexpected notes %+v", a.Notes)
	}
	if len(a.Tasks) != 0 {
		t.Fatalf("unexpected tasks %+v", a.Tasks)
	}
	if len(a.Attachments) != 1 || a.Attachments[0].ObjectPath != "a/b.pdf" {
		t.Fatalf("unexpected attachments %+v", a.Attachments)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDRejectsNonUUIDWithoutQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	if _, err := repo.GetByID(context.Background(), testOwner, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateFieldsWritesAllowListOnly(t *testing.T) {
	repo, mock := newMockRepo(t)
	email := "ada@example.com"
	fields := Fields{Name: "Ada", Role: "Engineer", AvatarURL: "u", Stage: StageOffer, Email: &email}

	mock.ExpectExec("UPDATE applicants").
		WithArgs("Ada", "Engineer", "u", "Offer", nil, nil, email, nil, testApplicant, testOwner).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateFields(context.Background(), testOwner, testApplicant, fields); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStageMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applicants SET stage = $1 WHERE id = $2 AND created_by = $3")).
		WithArgs("Hired", testApplicant, testOwner).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateStage(context.Background(), testOwner, testApplicant, StageHired); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpsertNotesSplitsInsertAndUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	notes := []Note{
		{ID: Unsaved("note-1715000000000"), ApplicantID: testApplicant, Content: "new", CreatedBy: testOwner},
		{ID: Persisted(testNote), ApplicantID: testApplicant, Content: "edited", CreatedBy: testOwner},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notes (applicant_id, content, created_by, created_at)")).
		WithArgs(testApplicant, "new", testOwner, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(testNote, testApplicant, "edited", testOwner, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpsertNotes(context.Background(), notes); err != nil {
		t.Fatalf("UpsertNotes: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpsertAttachmentsKeepsStoredObject(t *testing.T) {
	repo, mock := newMockRepo(t)
	atts := []Attachment{{
		ID: Persisted(testNote), ApplicantID: testApplicant, FileName: "cv-renamed.pdf", URL: "https://x/attachments/a/b.pdf",
		MimeType: "application/pdf", Bucket: "attachments", ObjectPath: "a/b.pdf", CreatedBy: testOwner,
	}}

	mock.ExpectBegin()
	mock.ExpectExec(`DO UPDATE SET file_name = EXCLUDED\.file_name, url = EXCLUDED\.url, mime_type = EXCLUDED\.mime_type\s+WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpsertAttachments(context.Background(), atts); err != nil {
		t.Fatalf("UpsertAttachments: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpsertTasksRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	tasks := []Task{{ID: Unsaved("task-1"), ApplicantID: testApplicant, Description: "call", Status: TaskToDo, CreatedBy: testOwner}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	if err := repo.UpsertTasks(context.Background(), tasks); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteChildrenBatchesIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	other := "44444444-4444-4444-8444-444444444444"

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE created_by = $1 AND id IN ($2, $3)")).
		WithArgs(testOwner, testNote, other).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.DeleteChildren(context.Background(), testOwner, KindNote, []string{testNote, "note-123", other})
	if err != nil {
		t.Fatalf("DeleteChildren: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteChildrenEmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	if err := repo.DeleteChildren(context.Background(), testOwner, KindTask, nil); err != nil {
		t.Fatalf("DeleteChildren: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
