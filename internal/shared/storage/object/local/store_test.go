package local

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"applicant-tracker/internal/shared/storage/object"
)

func TestPutOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir(), "http://localhost:8080/api/v1/files", []byte("secret"), object.BucketAvatars)

	obj, err := store.Put(ctx, object.BucketAttachments, "owner-1/app-1/1-cv.txt", strings.NewReader("hello"), "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if obj.Size != 5 || !strings.HasPrefix(obj.ContentType, "text/plain") {
		t.Fatalf("unexpected object %+v", obj)
	}

	rc, err := store.Open(ctx, object.BucketAttachments, obj.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, object.BucketAttachments, []string{obj.Key, "owner-1/missing.txt"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, object.BucketAttachments, obj.Key); err == nil {
		t.Fatalf("expected object to be gone")
	}
}

func TestPutRejectsTraversal(t *testing.T) {
	store := New(t.TempDir(), "http://x", nil)
	_, err := store.Put(context.Background(), object.BucketAttachments, "../../etc/passwd", strings.NewReader("x"), "text/plain")
	if !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSignedURLRoundTrip(t *testing.T) {
	store := New(t.TempDir(), "http://localhost:8080/api/v1/files/", []byte("secret"))
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	signed, err := store.SignedURL(context.Background(), object.BucketAttachments, "o/a/1-cv.pdf", time.Hour)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if !strings.HasPrefix(signed, "http://localhost:8080/api/v1/files/attachments/o/a/1-cv.pdf?") {
		t.Fatalf("unexpected url %s", signed)
	}
	if got := object.ObjectPathFromURL(signed, object.BucketAttachments); got != "o/a/1-cv.pdf" {
		t.Fatalf("object path = %q", got)
	}

	u, _ := url.Parse(signed)
	q := u.Query()
	if err := store.VerifySignature(object.BucketAttachments, "o/a/1-cv.pdf", q.Get("expires"), q.Get("sig")); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if err := store.VerifySignature(object.BucketAttachments, "o/a/other.pdf", q.Get("expires"), q.Get("sig")); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for other key, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := store.VerifySignature(object.BucketAttachments, "o/a/1-cv.pdf", q.Get("expires"), q.Get("sig")); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestSignedURLEscapesKey(t *testing.T) {
	store := New(t.TempDir(), "http://localhost:8080/api/v1/files", []byte("secret"))
	key := "o/a/1700-My CV (final).pdf"
	signed, err := store.SignedURL(context.Background(), object.BucketAttachments, key, time.Hour)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if strings.Contains(signed, " ") {
		t.Fatalf("expected escaped url, got %s", signed)
	}
	if got := object.ObjectPathFromURL(signed, object.BucketAttachments); got != key {
		t.Fatalf("object path = %q, want %q", got, key)
	}
}

func TestPublicBuckets(t *testing.T) {
	store := New(t.TempDir(), "http://x/files", nil, object.BucketAvatars)
	if !store.IsPublic(object.BucketAvatars) || store.IsPublic(object.BucketAttachments) {
		t.Fatalf("unexpected public bucket set")
	}
	if got := store.PublicURL(object.BucketAvatars, "o/avatars/1-a.png"); got != "http://x/files/avatars/o/avatars/1-a.png" {
		t.Fatalf("PublicURL = %s", got)
	}
}
