package object

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestObjectPathFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "signed url",
			url:  "https://files.example.com/api/v1/files/attachments/owner-1/app-1/1715000000000-cv.pdf?expires=1&sig=abc",
			want: "owner-1/app-1/1715000000000-cv.pdf",
		},
		{
			name: "no query",
			url:  "https://bucket.s3.amazonaws.com/prefix/attachments/o/a/f.txt",
			want: "o/a/f.txt",
		},
		{
			name: "first occurrence wins",
			url:  "https://x/attachments/o/attachments/f.txt",
			want: "o/attachments/f.txt",
		},
		{
			name: "escaped key",
			url:  "https://bkt.s3.amazonaws.com/tracker/attachments/o/a/1700-My%20CV%20%28final%29.pdf?X-Amz-Signature=abc",
			want: "o/a/1700-My CV (final).pdf",
		},
		{
			name: "malformed escape",
			url:  "https://x/attachments/o/a/%zz.pdf",
			want: "",
		},
		{
			name: "other bucket",
			url:  "https://x/avatars/o/avatars/1-a.png",
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ObjectPathFromURL(tc.url, BucketAttachments); got != tc.want {
				t.Fatalf("ObjectPathFromURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCleanKey(t *testing.T) {
	if got, err := CleanKey("/owner//app/file.pdf"); err != nil || got != "owner/app/file.pdf" {
		t.Fatalf("CleanKey = %q, %v", got, err)
	}
	for _, bad := range []string{"", "  ", "../etc/passwd", "a/../../b", `a\b`} {
		if _, err := CleanKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("CleanKey(%q) expected ErrInvalidKey, got %v", bad, err)
		}
	}
}

func TestSniffReplaysHead(t *testing.T) {
	body := "%PDF-1.4\n" + strings.Repeat("x", 5000)
	ct, r, err := Sniff(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	got, _ := io.ReadAll(r)
	if string(got) != body {
		t.Fatalf("body not replayed intact")
	}
}

func TestEscapeKeyKeepsSlashes(t *testing.T) {
	if got := EscapeKey("o/a/1-My CV (final).pdf"); got != "o/a/1-My%20CV%20%28final%29.pdf" {
		t.Fatalf("EscapeKey() = %q", got)
	}
}
