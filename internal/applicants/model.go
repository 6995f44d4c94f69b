package applicants

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Stage is a position in the hiring pipeline.
type Stage string

const (
	StageApplied   Stage = "Applied"
	StageScreening Stage = "Screening"
	StageInterview Stage = "Interview"
	StageOffer     Stage = "Offer"
	StageHired     Stage = "Hired"
	StageRejected  Stage = "Rejected"
)

// Stages lists the pipeline in board order.
var Stages = []Stage{
	StageApplied,
	StageScreening,
	StageInterview,
	StageOffer,
	StageHired,
	StageRejected,
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStage matches raw against the known stages, ignoring case and surrounding space.
func ParseStage(raw string) (Stage, error) {
	trimmed := strings.TrimSpace(raw)
	for _, known := range Stages {
		if strings.EqualFold(trimmed, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, raw)
}

// TaskStatus is the tri-state progress of a task.
type TaskStatus string

const (
	TaskToDo       TaskStatus = "To Do"
	TaskInProgress TaskStatus = "In Progress"
	TaskDone       TaskStatus = "Done"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskToDo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Applicant is the aggregate root: scalar fields plus owned notes, tasks and attachments.
type Applicant struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Role          string       `json:"role"`
	AvatarURL     string       `json:"avatar_url"`
	Stage         Stage        `json:"stage"`
	AssignedToID  *string      `json:"assigned_to_id"`
	InterviewDate *string      `json:"interview_date"`
	Email         *string      `json:"email"`
	Phone         *string      `json:"phone"`
	CreatedBy     string       `json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
	Notes         []Note       `json:"notes"`
	Tasks         []Task       `json:"tasks"`
	Attachments   []Attachment `json:"attachments"`
}

// Note is a free-text comment on an applicant.
type Note struct {
	ID          ChildID   `json:"id"`
	ApplicantID string    `json:"applicant_id"`
	Content     string    `json:"content"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is a to-do item tracked against an applicant.
type Task struct {
	ID          ChildID    `json:"id"`
	ApplicantID string     `json:"applicant_id"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Attachment references an uploaded file. ObjectPath addresses the stored object inside Bucket.
type Attachment struct {
	ID          ChildID   `json:"id"`
	ApplicantID string    `json:"applicant_id"`
	FileName    string    `json:"file_name"`
	URL         string    `json:"url"`
	MimeType    string    `json:"mime_type"`
	Bucket      string    `json:"bucket,omitempty"`
	ObjectPath  string    `json:"object_path,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a deep copy so cached aggregates never share slices or pointers with callers.
func (a Applicant) Clone() Applicant {
	out := a
	out.AssignedToID = cloneString(a.AssignedToID)
	out.InterviewDate = cloneString(a.InterviewDate)
	out.Email = cloneString(a.Email)
	out.Phone = cloneString(a.Phone)
	out.Notes = slices.Clone(a.Notes)
	out.Tasks = slices.Clone(a.Tasks)
	out.Attachments = slices.Clone(a.Attachments)
	return out
}

// ObjectPaths returns the stored-object paths of every attachment that has one.
func (a Applicant) ObjectPaths() []string {
	var paths []string
	for _, att := range a.Attachments {
		if att.ObjectPath != "" {
			paths = append(paths, att.ObjectPath)
		}
	}
	return paths
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// StringPtr returns nil for blank input, otherwise a pointer to the trimmed value.
func StringPtr(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Deref returns the pointed-to string or "".
func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
