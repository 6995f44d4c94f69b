package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"applicant-tracker/internal/applicants"
	"applicant-tracker/internal/assistant"
	"applicant-tracker/internal/board"
	"applicant-tracker/internal/services/health"
	"applicant-tracker/internal/shared/auth"
	"applicant-tracker/internal/shared/config"
	"applicant-tracker/internal/shared/server/middleware"
	"applicant-tracker/internal/shared/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	t.Setenv("JWT_SECRET", "router-test")
	token, err := auth.SignJWT(auth.Claims{Sub: "google:1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	boards := board.NewRegistry(applicants.NewMemoryRepo(), board.Options{})
	r := NewRouter(RouterDeps{
		Config:    config.Config{CORSAllowOrigin: []string{"http://localhost:5173"}},
		Health:    health.NewService(nil, "local", "log"),
		Board:     board.NewHandler(boards),
		Assistant: assistant.NewHandler(assistant.Disabled{}, boards),
		RateLimits: map[string]middleware.RateLimitRule{
			GroupAssistant: {Rate: 0.001, Burst: 1},
		},
	})
	return r, token
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req.WithContext(context.Background()))
	return resp
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	r, token := newTestRouter(t)

	if resp := do(r, http.MethodGet, "/api/v1/health", ""); resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"database":"memory"`) {
		t.Fatalf("health: %d %s", resp.Code, resp.Body.String())
	}
	if resp := do(r, http.MethodGet, "/api/v1/metrics", ""); resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.Code)
	}
	if resp := do(r, http.MethodGet, "/api/v1/applicants", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("applicants without token: expected 401, got %d", resp.Code)
	}
	resp := do(r, http.MethodGet, "/api/v1/applicants", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("applicants with token: expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestAssistantRoutesAreRateLimited(t *testing.T) {
	r, token := newTestRouter(t)

	first := do(r, http.MethodPost, "/api/v1/applicants/missing/assistant/summary", token)
	if first.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown applicant, got %d", first.Code)
	}
	second := do(r, http.MethodPost, "/api/v1/applicants/missing/assistant/summary", token)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if resp := do(r, http.MethodGet, "/api/v1/dashboard", token); resp.Code != http.StatusOK {
		t.Fatalf("board routes must not share the assistant bucket, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	for in, want := range map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
