package recruiters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/shared/auth"
	"applicant-tracker/internal/shared/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestMemoryRecordLoginKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	first := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return first }
	svc := NewService(repo)

	if err := svc.RecordLogin(ctx, auth.Claims{Sub: "google:1", Email: "ada@example.com", Name: "Ada"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	later := first.Add(48 * time.Hour)
	repo.now = func() time.Time { return later }
	if err := svc.RecordLogin(ctx, auth.Claims{Sub: "google:1", Email: "ada@example.com", Name: "Ada L."}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p, err := repo.Get(ctx, "google:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.CreatedAt.Equal(first) || !p.LastLoginAt.Equal(later) || p.Name != "Ada L." {
		t.Fatalf("unexpected profile %+v", p)
	}
	if err := svc.RecordLogin(ctx, auth.Claims{}); err == nil {
		t.Fatal("expected error for empty subject")
	}
}

func TestPGRepoRecordLoginAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "email", "name", "picture_url", "created_at", "last_login_at"}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO recruiters")).
		WithArgs("google:1", "ada@example.com", "Ada", nil).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("google:1", "ada@example.com", "Ada", nil, now, now))
	p, err := repo.RecordLogin(context.Background(), Profile{ID: "google:1", Email: "ada@example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.PictureURL != "" || !p.LastLoginAt.Equal(now) {
		t.Fatalf("unexpected profile %+v", p)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM recruiters WHERE id = $1")).
		WithArgs("google:2").
		WillReturnRows(sqlmock.NewRows(cols))
	if _, err := repo.Get(context.Background(), "google:2"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMeFallsBackToTokenIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := NewMemoryRepo()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set("userId", id)
			c.Set("userEmail", "dev@example.com")
		}
		c.Next()
	})
	NewHandler(NewService(repo)).RegisterRoutes(r.Group("/api/v1"))

	get := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp
	}

	if resp := get(""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	resp := get("dev:1")
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != http.StatusOK || p.ID != "dev:1" || p.Email != "dev@example.com" {
		t.Fatalf("unexpected response %d %+v", resp.Code, p)
	}

	repo.RecordLogin(context.Background(), Profile{ID: "google:1", Email: "ada@example.com", Name: "Ada"})
	resp = get("google:1")
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "Ada" || p.Email != "ada@example.com" {
		t.Fatalf("expected stored profile, got %+v", p)
	}
}
