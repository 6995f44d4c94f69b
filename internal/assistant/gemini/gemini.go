package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/assistant"
)

const (
	provider     = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

// generator is the slice of genai.Models the assistant uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements assistant.Assistant on the Gemini API. Resumes are sent inline
// so the model reads PDFs and images directly.
type Client struct {
	models generator
	model  string
}

// New creates a Gemini client for apiKey.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, assistant.ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWithGenerator(client.Models, model), nil
}

func newWithGenerator(models generator, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model}
}

var resumeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":    {Type: genai.TypeString, Description: "Applicant's full name"},
		"role":    {Type: genai.TypeString, Description: "Most relevant job role"},
		"email":   {Type: genai.TypeString, Description: "Applicant's email address"},
		"phone":   {Type: genai.TypeString, Description: "Applicant's phone number"},
		"summary": {Type: genai.TypeString, Description: "Short summary of the resume"},
	},
	Required: []string{"name", "role", "email", "phone", "summary"},
}

var emailSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"subject": {Type: genai.TypeString},
		"body":    {Type: genai.TypeString},
	},
	Required: []string{"subject", "body"},
}

func jsonConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

// ParseResume sends the file inline with the extraction prompt.
func (c *Client) ParseResume(ctx context.Context, doc assistant.Document) (assistant.ParsedResume, error) {
	if len(doc.Data) == 0 {
		return assistant.ParsedResume{}, fmt.Errorf("%w: empty file", assistant.ErrInvalidDocument)
	}
	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(doc.Data, mimeType),
			genai.NewPartFromText(assistant.ResumePrompt("")),
		}, genai.RoleUser),
	}
	text, err := c.generate(ctx, contents, jsonConfig(resumeSchema))
	if err != nil {
		return assistant.ParsedResume{}, err
	}
	var out assistant.ParsedResume
	if err := assistant.DecodeJSON(text, &out); err != nil {
		return assistant.ParsedResume{}, assistant.Unavailable(provider, err)
	}
	return out, nil
}

// SummarizeNotes summarises the applicant's notes.
func (c *Client) SummarizeNotes(ctx context.Context, a applicants.Applicant) (string, error) {
	if len(a.Notes) == 0 {
		return assistant.NoNotesSummary, nil
	}
	return c.generate(ctx, genai.Text(assistant.SummaryPrompt(a)), nil)
}

// InterviewQuestions generates n questions with an optional focus.
func (c *Client) InterviewQuestions(ctx context.Context, a applicants.Applicant, n int, focus string) (string, error) {
	return c.generate(ctx, genai.Text(assistant.QuestionsPrompt(a, n, focus)), nil)
}

// DraftEmail returns a structured subject and body.
func (c *Client) DraftEmail(ctx context.Context, a applicants.Applicant, prompt string) (assistant.EmailDraft, error) {
	text, err := c.generate(ctx, genai.Text(assistant.EmailPrompt(a, prompt)), jsonConfig(emailSchema))
	if err != nil {
		return assistant.EmailDraft{}, err
	}
	var out assistant.EmailDraft
	if err := assistant.DecodeJSON(text, &out); err != nil {
		return assistant.EmailDraft{}, assistant.Unavailable(provider, err)
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", assistant.Unavailable(provider, err)
	}
	if resp == nil {
		return "", assistant.Unavailable(provider, errors.New("empty response"))
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", assistant.Unavailable(provider, errors.New("empty response"))
	}
	return text, nil
}

var _ assistant.Assistant = (*Client)(nil)
