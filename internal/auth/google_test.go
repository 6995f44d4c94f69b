package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/shared/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestStateStoreConsumesOnce(t *testing.T) {
	s := newStateStore()
	now := time.Now()
	s.put("fresh", now.Add(time.Minute))
	s.put("stale", now.Add(-time.Second))

	if s.consume("stale", now) {
		t.Fatal("expired state must be rejected")
	}
	if !s.consume("fresh", now) {
		t.Fatal("fresh state should be accepted")
	}
	if s.consume("fresh", now) {
		t.Fatal("state must be single use")
	}
	if s.consume("unknown", now) {
		t.Fatal("unknown state must be rejected")
	}
}

func TestStateStorePrunesExpired(t *testing.T) {
	s := newStateStore()
	s.put("a", time.Now().Add(-time.Minute))
	s.put("b", time.Now().Add(-time.Minute))
	s.put("c", time.Now().Add(time.Minute))
	if got := s.len(); got != 2 {
		t.Fatalf("expected expired states pruned on put, have %d", got)
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("https://ui.example.com/callback?tab=board", "abc.def.ghi")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	u, _ := url.Parse(got)
	if u.Query().Get("token") != "abc.def.ghi" || u.Query().Get("tab") != "board" {
		t.Fatalf("unexpected redirect %s", got)
	}
	if _, err := appendToken("", "x"); err == nil {
		t.Fatal("expected error for empty redirect")
	}
}

func TestStartRedirectsWhenConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService("client", "secret", "http://localhost:8080/api/v1/auth/google/callback", "http://localhost:5173", nil)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, _ := url.Parse(resp.Header().Get("Location"))
	state := loc.Query().Get("state")
	if loc.Host != "accounts.google.com" || state == "" {
		t.Fatalf("unexpected redirect %s", loc)
	}
	if !svc.states.consume(state, time.Now()) {
		t.Fatal("issued state should be stored")
	}
}

func TestUnconfiguredAndBadCallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewGoogleService("", "", "", "", nil)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=x", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown state, got %d", resp.Code)
	}
}

func TestFetchUserInfoFallsBackToID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1234","email":"ada@example.com","name":"Ada"}`))
	}))
	defer srv.Close()

	svc := NewGoogleService("c", "s", "r", "u", nil)
	svc.userInfoURL = srv.URL
	info, err := svc.fetchUserInfo(context.Background(), srv.Client())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.Sub != "1234" || info.Email != "ada@example.com" {
		t.Fatalf("unexpected info %+v", info)
	}
}
