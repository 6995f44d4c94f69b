package object

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Buckets used by the applicant pipeline. Attachments are private and served through
// signed URLs; avatars are public.
const (
	BucketAttachments = "attachments"
	BucketAvatars     = "avatars"
)

// ErrInvalidKey is returned for empty keys or keys that escape their bucket.
var ErrInvalidKey = errors.New("invalid object key")

// Object describes a stored blob.
type Object struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
}

// Store saves, serves and removes objects grouped by bucket.
type Store interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, contentType string) (Object, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// Delete removes every listed key in one call. Missing keys are not an error.
	Delete(ctx context.Context, bucket string, keys []string) error
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PublicURL(bucket, key string) string
}

// CleanKey normalises a slash-separated key and rejects traversal.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.Contains(trimmed, "..") || strings.Contains(trimmed, "\\") {
		return "", ErrInvalidKey
	}
	clean := strings.TrimLeft(path.Clean("/"+trimmed), "/")
	if clean == "" {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// ValidBucket reports whether bucket is a plain single-segment name.
func ValidBucket(bucket string) bool {
	if bucket == "" || strings.ContainsAny(bucket, "/\\") || strings.Contains(bucket, "..") {
		return false
	}
	return true
}

// Sniff detects the content type from the head of r. The returned reader replays the head.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// ObjectPathFromURL derives the object key from a URL issued for bucket:
// the query string is dropped, the key is what follows the first "/<bucket>/" and is
// path-unescaped. It returns "" when the URL does not reference the bucket.
func ObjectPathFromURL(rawURL, bucket string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		rawURL = rawURL[:i]
	}
	marker := "/" + bucket + "/"
	i := strings.Index(rawURL, marker)
	if i < 0 {
		return ""
	}
	key, err := url.PathUnescape(rawURL[i+len(marker):])
	if err != nil {
		return ""
	}
	return key
}

// EscapeKey path-escapes each segment of key so it can be placed in a URL.
func EscapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return strings.Join(segments, "/")
}
