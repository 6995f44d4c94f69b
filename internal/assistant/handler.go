package assistant

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/board"
	"applicant-tracker/internal/shared/metrics"
	"applicant-tracker/internal/shared/server/middleware"
	"applicant-tracker/internal/shared/server/respond"
)

const maxResumeSize = 10 << 20 // 10MB

// Handler exposes the assistant over HTTP. Applicant-scoped calls read the caller's board.
type Handler struct {
	Assistant Assistant
	Boards    *board.Registry
}

// NewHandler constructs a Handler.
func NewHandler(a Assistant, boards *board.Registry) *Handler {
	return &Handler{Assistant: a, Boards: boards}
}

// RegisterRoutes attaches assistant routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/assistant/parse-resume", h.parseResume)
	rg.POST("/applicants/:id/assistant/summary", h.summary)
	rg.POST("/applicants/:id/assistant/interview-questions", h.questions)
	rg.POST("/applicants/:id/assistant/email-draft", h.emailDraft)
}

func (h *Handler) parseResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxResumeSize)
	fh, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}

	parsed, err := h.Assistant.ParseResume(c.Request.Context(), Document{
		Data:     data,
		MimeType: fh.Header.Get("Content-Type"),
		FileName: fh.Filename,
	})
	metrics.IncAssistant("parse_resume", err)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, parsed)
}

func (h *Handler) summary(c *gin.Context) {
	a, ok := h.applicant(c)
	if !ok {
		return
	}
	text, err := h.Assistant.SummarizeNotes(c.Request.Context(), a)
	metrics.IncAssistant("summarize_notes", err)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"summary": text})
}

type questionsRequest struct {
	Count int    `json:"count"`
	Focus string `json:"focus"`
}

func (h *Handler) questions(c *gin.Context) {
	var req questionsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
			return
		}
	}
	a, ok := h.applicant(c)
	if !ok {
		return
	}
	text, err := h.Assistant.InterviewQuestions(c.Request.Context(), a, ClampQuestions(req.Count), req.Focus)
	metrics.IncAssistant("interview_questions", err)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"questions": text})
}

type emailDraftRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) emailDraft(c *gin.Context) {
	var req emailDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
			return
		}
	}
	a, ok := h.applicant(c)
	if !ok {
		return
	}
	draft, err := h.Assistant.DraftEmail(c.Request.Context(), a, req.Prompt)
	metrics.IncAssistant("draft_email", err)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, draft)
}

// applicant loads the path applicant from the caller's board, writing the error response on failure.
func (h *Handler) applicant(c *gin.Context) (applicants.Applicant, bool) {
	id := c.Param("id")
	c.Set("applicantId", id)
	a, err := h.lookup(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, board.ErrNoOwner):
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
		case errors.Is(err, board.ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "applicant not found", nil)
		default:
			respond.Error(c, http.StatusBadGateway, respond.CodeRemote, "The applicant could not be loaded. Please try again.", nil)
		}
		return applicants.Applicant{}, false
	}
	return a, true
}

func (h *Handler) lookup(ctx context.Context, ownerID, id string) (applicants.Applicant, error) {
	if ownerID == "" {
		return applicants.Applicant{}, board.ErrNoOwner
	}
	b, err := h.Boards.For(ctx, ownerID)
	if err != nil {
		return applicants.Applicant{}, err
	}
	return b.Get(id)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeAssistantDisabled, "The AI assistant is not configured.", nil)
	case errors.Is(err, ErrInvalidDocument):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Error(c, http.StatusBadGateway, respond.CodeAssistant, "The AI assistant could not complete the request. Please try again.", gin.H{"retryable": true})
	}
}
