package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/shared/metrics"
	"applicant-tracker/internal/shared/server/respond"
)

// Sender is implemented by Relay.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) (Result, error)
	SendSMS(ctx context.Context, to, body string) (Result, error)
}

// Handler relays outbound messages for signed-in users.
type Handler struct {
	Sender Sender
}

// NewHandler constructs a Handler.
func NewHandler(s Sender) *Handler {
	return &Handler{Sender: s}
}

// RegisterRoutes attaches notify routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notify", h.send)
	rg.POST("/notify/email", h.sendEmail)
}

type sendRequest struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *Handler) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	var (
		res Result
		err error
	)
	switch strings.ToLower(req.Channel) {
	case "email":
		res, err = h.Sender.SendEmail(c.Request.Context(), req.To, req.Subject, req.Body)
	case "sms":
		res, err = h.Sender.SendSMS(c.Request.Context(), req.To, req.Body)
	default:
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid channel specified", nil)
		return
	}
	metrics.IncNotify(strings.ToLower(req.Channel), err)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, res)
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (h *Handler) sendEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	if req.To == "" || req.Subject == "" || req.Text == "" {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Missing required fields: to, subject, text", nil)
		return
	}
	res, err := h.Sender.SendEmail(c.Request.Context(), req.To, req.Subject, req.Text)
	metrics.IncNotify("email", err)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, res)
}

func writeError(c *gin.Context, err error) {
	var perr *ProviderError
	switch {
	case errors.Is(err, ErrMissingRecipient):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Cannot send email: Applicant's email address is missing.", nil)
	case errors.Is(err, ErrMissingPhone):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Cannot send SMS: Applicant's phone number is missing.", nil)
	case errors.Is(err, ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeNotifyDisabled, "Notification provider is not configured", nil)
	case errors.As(err, &perr):
		respond.Error(c, http.StatusBadGateway, respond.CodeNotify, perr.Message, gin.H{"provider": perr.Provider})
	default:
		respond.Error(c, http.StatusBadGateway, respond.CodeNotify, "Failed to send notification", nil)
	}
}
