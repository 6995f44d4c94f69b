package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeSender struct {
	err   error
	calls []string
}

func (f *fakeSender) SendEmail(_ context.Context, to, subject, body string) (Result, error) {
	f.calls = append(f.calls, "email:"+to+":"+subject+":"+body)
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Success: true}, nil
}

func (f *fakeSender) SendSMS(_ context.Context, to, body string) (Result, error) {
	f.calls = append(f.calls, "sms:"+to+":"+body)
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Success: true, SID: "SM1"}, nil
}

func newRouter(s Sender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(s).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestNotifyChannels(t *testing.T) {
	sender := &fakeSender{}
	r := newRouter(sender)

	resp := post(r, "/api/v1/notify", `{"channel":"sms","to":"+1555","body":"hello"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.SID != "SM1" {
		t.Fatalf("unexpected result %+v", res)
	}

	resp = post(r, "/api/v1/notify", `{"channel":"email","to":"ada@example.com","subject":"Hi","body":"Welcome"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	resp = post(r, "/api/v1/notify", `{"channel":"pigeon","to":"x"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown channel, got %d", resp.Code)
	}
	if len(sender.calls) != 2 || sender.calls[1] != "email:ada@example.com:Hi:Welcome" {
		t.Fatalf("unexpected calls %v", sender.calls)
	}
}

func TestNotifyEmailRequiresFields(t *testing.T) {
	sender := &fakeSender{}
	r := newRouter(sender)

	resp := post(r, "/api/v1/notify/email", `{"to":"ada@example.com","subject":"Hi"}`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "Missing required fields: to, subject, text") {
		t.Fatalf("expected 400 missing fields, got %d: %s", resp.Code, resp.Body.String())
	}
	resp = post(r, "/api/v1/notify/email", `{"to":"ada@example.com",`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "invalid request body") {
		t.Fatalf("expected 400 invalid body, got %d: %s", resp.Code, resp.Body.String())
	}
	resp = post(r, "/api/v1/notify/email", `{"to":"ada@example.com","subject":"Hi","text":"Body"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestNotifyProviderFailure(t *testing.T) {
	r := newRouter(&fakeSender{err: &ProviderError{Provider: "SendGrid", Status: 403, Message: "Failed to send: Insufficient balance in your SendGrid account. Please add funds."}})
	resp := post(r, "/api/v1/notify", `{"channel":"email","to":"ada@example.com","subject":"Hi","body":"b"}`)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "notify_error" || !strings.Contains(body.Error.Message, "Insufficient balance") {
		t.Fatalf("unexpected error %+v", body.Error)
	}

	r = newRouter(&fakeSender{err: ErrMissingRecipient})
	resp = post(r, "/api/v1/notify", `{"channel":"email","subject":"Hi","body":"b"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing recipient, got %d", resp.Code)
	}
}

func TestNotifyErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		request    string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "email without recipient",
			err:        ErrMissingRecipient,
			request:    `{"channel":"email","subject":"Hi","body":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
			wantMsg:    "Cannot send email: Applicant's email address is missing.",
		},
		{
			name:       "sms without phone",
			err:        ErrMissingPhone,
			request:    `{"channel":"sms","body":"b"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
			wantMsg:    "Cannot send SMS: Applicant's phone number is missing.",
		},
		{
			name:       "twilio not configured",
			err:        fmt.Errorf("%w: one or more Twilio variables are not set", ErrNotConfigured),
			request:    `{"channel":"sms","to":"+1555","body":"b"}`,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "notify_not_configured",
			wantMsg:    "Notification provider is not configured",
		},
		{
			name:       "transport failure",
			err:        errors.New("api.sendgrid.com request: connection reset"),
			request:    `{"channel":"email","to":"ada@example.com","subject":"Hi","body":"b"}`,
			wantStatus: http.StatusBadGateway,
			wantCode:   "notify_error",
			wantMsg:    "Failed to send notification",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(newRouter(&fakeSender{err: tt.err}), "/api/v1/notify", tt.request)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.Code, resp.Body.String())
			}
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.wantCode || body.Error.Message != tt.wantMsg {
				t.Fatalf("unexpected error %+v", body.Error)
			}
		})
	}
}
