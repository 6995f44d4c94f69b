package assistant

import (
	"fmt"
	"strings"
	"time"

	"applicant-tracker/internal/applicants"
)

// NoNotesSummary is returned without calling a provider when there is nothing to summarise.
const NoNotesSummary = "No notes to summarize."

// Question count bounds.
const (
	DefaultQuestions = 5
	MaxQuestions     = 20
)

// ClampQuestions keeps n within 1..MaxQuestions, defaulting non-positive values.
func ClampQuestions(n int) int {
	switch {
	case n <= 0:
		return DefaultQuestions
	case n > MaxQuestions:
		return MaxQuestions
	default:
		return n
	}
}

const resumeInstruction = "Read this resume and extract the applicant's full name, the job role they are " +
	"best suited for, their email address, their phone number and a short summary of their skills and experience."

// ResumePrompt asks for the resume fields. Providers that cannot read files pass the extracted text.
func ResumePrompt(resumeText string) string {
	if strings.TrimSpace(resumeText) == "" {
		return resumeInstruction
	}
	return resumeInstruction +
		` Answer with a JSON object with the string keys "name", "role", "email", "phone" and "summary".` +
		"\n\nResume:\n" + resumeText
}

// SummaryPrompt lists timestamped notes for summarisation.
func SummaryPrompt(a applicants.Applicant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize these notes about %s (role: %s). ", a.Name, a.Role)
	b.WriteString("Cover strengths, weaknesses and action items. Keep it short and professional.\n\n")
	for _, n := range a.Notes {
		fmt.Fprintf(&b, "[%s]: %s\n", n.CreatedAt.UTC().Format(time.RFC3339), n.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// QuestionsPrompt asks for n interview questions with an optional focus.
func QuestionsPrompt(a applicants.Applicant, n int, focus string) string {
	prompt := fmt.Sprintf("Write %d interview questions for %s, who is applying for %s. ", ClampQuestions(n), a.Name, a.Role)
	if focus = strings.TrimSpace(focus); focus != "" {
		prompt += "Focus on: " + focus + ". "
	}
	return prompt + "Make them specific and practical."
}

// EmailPrompt builds the follow-up prompt when request is blank, otherwise a custom one.
func EmailPrompt(a applicants.Applicant, request string) string {
	var b strings.Builder
	if strings.TrimSpace(request) == "" {
		b.WriteString("Write a short, polite follow-up email to a job applicant that acknowledges their " +
			"application and says it is being reviewed.\n\n")
	} else {
		b.WriteString("A hiring manager wants to email a job applicant.\n\n")
	}
	fmt.Fprintf(&b, "Applicant name: %s\nRole applied for: %s\n", a.Name, a.Role)
	if r := strings.TrimSpace(request); r != "" {
		fmt.Fprintf(&b, "Manager's request: %q\n", r)
	}
	b.WriteString("\nReturn a JSON object with \"subject\" and \"body\" keys. The body is plain text with " +
		"blank lines between paragraphs and ends with \"Best regards,\". Do not add a sender name placeholder.")
	return b.String()
}
