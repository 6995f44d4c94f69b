package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"applicant-tracker/internal/applicants"
)

var (
	// ErrNotConfigured is returned when no provider key is set.
	ErrNotConfigured = errors.New("assistant not configured")
	// ErrAssistantUnavailable wraps provider failures. Callers may retry.
	ErrAssistantUnavailable = errors.New("assistant unavailable")
	// ErrInvalidDocument is returned for resumes the provider cannot read.
	ErrInvalidDocument = errors.New("unsupported resume document")
)

// Document is an uploaded resume.
type Document struct {
	Data     []byte
	MimeType string
	FileName string
}

// ParsedResume is what ParseResume extracts from a resume.
type ParsedResume struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Summary string `json:"summary"`
}

// EmailDraft is a generated email.
type EmailDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Assistant is the AI helper used by the detail view. Each call is a single
// request/response with no retries.
type Assistant interface {
	ParseResume(ctx context.Context, doc Document) (ParsedResume, error)
	SummarizeNotes(ctx context.Context, a applicants.Applicant) (string, error)
	InterviewQuestions(ctx context.Context, a applicants.Applicant, n int, focus string) (string, error)
	// DraftEmail writes a professional follow-up when prompt is blank, otherwise an email for the request.
	DraftEmail(ctx context.Context, a applicants.Applicant, prompt string) (EmailDraft, error)
}

// Unavailable wraps a provider error so handlers can render it as retryable.
func Unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrAssistantUnavailable, provider, err)
}

// DecodeJSON parses a model reply into out, tolerating markdown code fences around it.
func DecodeJSON(raw string, out any) error {
	clean := CleanJSON(raw)
	if clean == "" {
		return errors.New("empty response")
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CleanJSON strips a surrounding ``` or ```json fence.
func CleanJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}

// Disabled answers every call with ErrNotConfigured.
type Disabled struct{}

func (Disabled) ParseResume(context.Context, Document) (ParsedResume, error) {
	return ParsedResume{}, ErrNotConfigured
}

func (Disabled) SummarizeNotes(context.Context, applicants.Applicant) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) InterviewQuestions(context.Context, applicants.Applicant, int, string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) DraftEmail(context.Context, applicants.Applicant, string) (EmailDraft, error) {
	return EmailDraft{}, ErrNotConfigured
}

var _ Assistant = Disabled{}
