package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/assistant"
	"applicant-tracker/internal/extract"
	"applicant-tracker/internal/shared/telemetry"
)

const (
	provider       = "openai"
	DefaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Client implements assistant.Assistant with Chat Completions. Resumes are converted
// to text first since the endpoint takes no file parts.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an OpenAI client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, assistant.ErrNotConfigured
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithBaseURL points the client at another endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ParseResume extracts the document text and asks for the resume fields as JSON.
func (c *Client) ParseResume(ctx context.Context, doc assistant.Document) (assistant.ParsedResume, error) {
	text, err := extract.Text(ctx, doc.Data, doc.MimeType, doc.FileName)
	if err != nil {
		return assistant.ParsedResume{}, fmt.Errorf("%w: %v", assistant.ErrInvalidDocument, err)
	}
	raw, err := c.complete(ctx, "parse_resume", assistant.ResumePrompt(text), true)
	if err != nil {
		return assistant.ParsedResume{}, err
	}
	var out assistant.ParsedResume
	if err := assistant.DecodeJSON(raw, &out); err != nil {
		return assistant.ParsedResume{}, assistant.Unavailable(provider, err)
	}
	return out, nil
}

// SummarizeNotes summarises the applicant's notes.
func (c *Client) SummarizeNotes(ctx context.Context, a applicants.Applicant) (string, error) {
	if len(a.Notes) == 0 {
		return assistant.NoNotesSummary, nil
	}
	return c.complete(ctx, "summarize_notes", assistant.SummaryPrompt(a), false)
}

// InterviewQuestions generates n questions with an optional focus.
func (c *Client) InterviewQuestions(ctx context.Context, a applicants.Applicant, n int, focus string) (string, error) {
	return c.complete(ctx, "interview_questions", assistant.QuestionsPrompt(a, n, focus), false)
}

// DraftEmail asks for a JSON subject and body.
func (c *Client) DraftEmail(ctx context.Context, a applicants.Applicant, prompt string) (assistant.EmailDraft, error) {
	raw, err := c.complete(ctx, "draft_email", assistant.EmailPrompt(a, prompt), true)
	if err != nil {
		return assistant.EmailDraft{}, err
	}
	var out assistant.EmailDraft
	if err := assistant.DecodeJSON(raw, &out); err != nil {
		return assistant.EmailDraft{}, assistant.Unavailable(provider, err)
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, task, prompt string, jsonOut bool) (string, error) {
	temp := float32(0.2)
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}
	if jsonOut {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", assistant.Unavailable(provider, fmt.Errorf("request timeout: %w", err))
		}
		return "", assistant.Unavailable(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", assistant.Unavailable(provider, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", assistant.Unavailable(provider, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		return "", assistant.Unavailable(provider, fmt.Errorf("response parse: %w", err))
	}
	if parsed.Error != nil {
		return "", assistant.Unavailable(provider, fmt.Errorf("http status %d: %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Type))
	}
	if resp.StatusCode >= 400 {
		return "", assistant.Unavailable(provider, fmt.Errorf("http status %d", resp.StatusCode))
	}
	if len(parsed.Choices) == 0 {
		return "", assistant.Unavailable(provider, errors.New("response missing choices"))
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", assistant.Unavailable(provider, errors.New("response empty content"))
	}
	if parsed.Usage != nil {
		telemetry.Info("assistant.usage", map[string]any{
			"provider":          provider,
			"model":             c.model,
			"task":              task,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}
	return content, nil
}

var _ assistant.Assistant = (*Client)(nil)
