package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(now *time.Time) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(func() time.Time { return *now })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/notify" {
				return "NOTIFY"
			}
			return "ASSISTANT"
		},
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			"ASSISTANT": {Rate: 1, Burst: 2},
			"NOTIFY":    {Rate: 5, Burst: 10},
		},
	}))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.POST("/api/v1/notify", ok)
	r.POST("/api/v1/assistant/parse-resume", ok)
	return r
}

func TestRateLimitGroupsAreIndependent(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := newLimitedRouter(&now)

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/notify", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("notify request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/assistant/parse-resume", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("assistant request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/assistant/parse-resume", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("assistant request 3 expected 429, got %d", resp.Code)
	}

	now = now.Add(time.Second)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/assistant/parse-resume", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected refill after one second, got %d", resp.Code)
	}
}

func TestRateLimit429UsesErrorBody(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := newLimitedRouter(&now)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/api/v1/assistant/parse-resume", nil))
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(last.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected code rate_limited, got %q", payload.Error.Code)
	}
	if _, ok := payload.Error.Details["retryAfterMs"]; !ok {
		t.Fatalf("expected retryAfterMs in details")
	}
}

func TestRateLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 0.5, Burst: 1}

	l.Allow("owner-a|ASSISTANT", rule)
	l.Allow("owner-b|NOTIFY", rule)
	if ok, wait := l.Allow("owner-a|ASSISTANT", rule); ok || wait != 2*time.Second {
		t.Fatalf("expected empty bucket with 2s wait, got ok=%v wait=%v", ok, wait)
	}

	now = now.Add(bucketIdleTTL)
	if ok, _ := l.Allow("owner-c|ASSISTANT", rule); !ok {
		t.Fatal("expected fresh bucket to allow")
	}
	if got := l.size(); got != 1 {
		t.Fatalf("expected idle buckets swept, %d left", got)
	}
}

func TestRateLimitSkipsUngroupedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		Rules:    map[string]RateLimitRule{"ASSISTANT": {Rate: 0.001, Burst: 1}},
		GroupFor: func(*gin.Context) string { return "" },
	}))
	r.GET("/api/v1/applicants", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/applicants", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, resp.Code)
		}
	}
}
