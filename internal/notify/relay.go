package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"applicant-tracker/internal/shared/telemetry"
)

const (
	defaultSendGridURL = "https://api.sendgrid.com"
	defaultTwilioURL   = "https://api.twilio.com"
)

var (
	// ErrMissingRecipient is returned when an email has no recipient address.
	ErrMissingRecipient = errors.New("notify: email recipient missing")
	// ErrMissingPhone is returned when an SMS has no recipient number.
	ErrMissingPhone = errors.New("notify: sms recipient missing")
	// ErrNotConfigured is returned when the provider credentials are not set.
	ErrNotConfigured = errors.New("notification provider not configured")
)

// Config holds provider credentials.
type Config struct {
	SendGridAPIKey    string
	SendGridFromEmail string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromPhone   string
}

// Result is the relay outcome returned to callers.
type Result struct {
	Success bool   `json:"success"`
	SID     string `json:"sid,omitempty"`
}

// ProviderError carries a user-facing message for a rejected send.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Relay sends email through SendGrid and SMS through Twilio.
type Relay struct {
	cfg         Config
	sendGridURL string
	twilioURL   string
	httpClient  *http.Client
}

// NewRelay constructs a relay. Missing credentials only fail at send time.
func NewRelay(cfg Config) *Relay {
	return &Relay{
		cfg:         cfg,
		sendGridURL: defaultSendGridURL,
		twilioURL:   defaultTwilioURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURLs points the relay at other provider endpoints. Empty values keep the defaults.
func (r *Relay) WithBaseURLs(sendGrid, twilio string) *Relay {
	if sendGrid != "" {
		r.sendGridURL = strings.TrimRight(sendGrid, "/")
	}
	if twilio != "" {
		r.twilioURL = strings.TrimRight(twilio, "/")
	}
	return r
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SendEmail sends a plain-text email.
func (r *Relay) SendEmail(ctx context.Context, to, subject, body string) (Result, error) {
	if strings.TrimSpace(to) == "" {
		return Result{}, ErrMissingRecipient
	}
	if r.cfg.SendGridAPIKey == "" || r.cfg.SendGridFromEmail == "" {
		return Result{}, fmt.Errorf("%w: SENDGRID_API_KEY or SENDGRID_FROM_EMAIL is not set", ErrNotConfigured)
	}

	payload, err := json.Marshal(sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: to}}}},
		From:             sgAddress{Email: r.cfg.SendGridFromEmail},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal sendgrid request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.sendGridURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.SendGridAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, raw, err := r.do(req)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body sgErrorBody
		msg := ""
		if json.Unmarshal(raw, &body) == nil && len(body.Errors) > 0 {
			msg = body.Errors[0].Message
		}
		if msg == "" {
			msg = fmt.Sprintf("SendGrid API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return Result{}, providerError("SendGrid", resp.StatusCode, msg)
	}
	telemetry.Info("notify.sent", map[string]any{"channel": "email", "status": resp.StatusCode})
	return Result{Success: true}, nil
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

// SendSMS sends a text message and returns the provider message sid.
func (r *Relay) SendSMS(ctx context.Context, to, body string) (Result, error) {
	if strings.TrimSpace(to) == "" {
		return Result{}, ErrMissingPhone
	}
	sid, token, from := r.cfg.TwilioAccountSID, r.cfg.TwilioAuthToken, r.cfg.TwilioFromPhone
	if sid == "" || token == "" || from == "" {
		return Result{}, fmt.Errorf("%w: one or more Twilio variables are not set", ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", body)
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", r.twilioURL, url.PathEscape(sid))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(sid, token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, raw, err := r.do(req)
	if err != nil {
		return Result{}, err
	}
	var out twilioResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("Twilio API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return Result{}, providerError("Twilio", resp.StatusCode, msg)
	}
	telemetry.Info("notify.sent", map[string]any{"channel": "sms", "sid": out.SID})
	return Result{Success: true, SID: out.SID}, nil
}

func (r *Relay) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s request: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, raw, nil
}

// providerError rewrites well-known provider rejections into actionable messages.
func providerError(provider string, status int, msg string) error {
	telemetry.Warn("notify.rejected", map[string]any{"provider": provider, "status": status, "error": msg})
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "balance"), strings.Contains(lower, "funds"), strings.Contains(lower, "credit"):
		msg = fmt.Sprintf("Failed to send: Insufficient balance in your %s account. Please add funds.", provider)
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "authenticate"):
		msg = fmt.Sprintf("Failed to send: %s authentication error. Please check the server configuration.", provider)
	}
	return &ProviderError{Provider: provider, Status: status, Message: msg}
}
