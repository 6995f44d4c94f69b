package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"applicant-tracker/internal/shared/storage/object"
)

// ErrBadSignature is returned when a signed link is forged or expired.
var ErrBadSignature = errors.New("invalid or expired signature")

// Store implements object.Store on the local filesystem. Objects live at
// <baseDir>/<bucket>/<key> and are served by the files handler under baseURL.
type Store struct {
	baseDir       string
	baseURL       string
	secret        []byte
	publicBuckets map[string]bool
	now           func() time.Time
}

// New creates a local store. baseURL is the externally visible prefix of the files route,
// e.g. http://localhost:8080/api/v1/files.
func New(baseDir, baseURL string, secret []byte, publicBuckets ...string) *Store {
	public := make(map[string]bool, len(publicBuckets))
	for _, b := range publicBuckets {
		public[b] = true
	}
	if len(secret) == 0 {
		secret = []byte("dev-signing-secret")
	}
	return &Store{
		baseDir:       baseDir,
		baseURL:       strings.TrimRight(baseURL, "/"),
		secret:        secret,
		publicBuckets: public,
		now:           time.Now,
	}
}

// Put writes r to disk, sniffing the content type when none is given.
func (s *Store) Put(ctx context.Context, bucket, key string, r io.Reader, contentType string) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, err
	}
	fullPath, clean, err := s.resolve(bucket, key)
	if err != nil {
		return object.Object{}, err
	}
	if contentType == "" {
		sniffed, replay, err := object.Sniff(r)
		if err != nil {
			return object.Object{}, fmt.Errorf("read sniff: %w", err)
		}
		contentType, r = sniffed, replay
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return object.Object{}, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return object.Object{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return object.Object{}, fmt.Errorf("write body: %w", err)
	}
	return object.Object{Bucket: bucket, Key: clean, ContentType: contentType, Size: written}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, _, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Delete removes the listed keys. Already-missing files are ignored.
func (s *Store) Delete(ctx context.Context, bucket string, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, key := range keys {
		fullPath, _, err := s.resolve(bucket, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SignedURL returns a link valid for ttl, verified by VerifySignature.
func (s *Store) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, clean, err := s.resolve(bucket, key)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(bucket, clean, expires))
	return s.PublicURL(bucket, clean) + "?" + q.Encode(), nil
}

// PublicURL returns the unsigned link of an object.
func (s *Store) PublicURL(bucket, key string) string {
	return s.baseURL + "/" + bucket + "/" + object.EscapeKey(strings.TrimLeft(key, "/"))
}

// IsPublic reports whether bucket is readable without a signature.
func (s *Store) IsPublic(bucket string) bool {
	return s.publicBuckets[bucket]
}

// VerifySignature checks the expires/sig pair issued by SignedURL.
func (s *Store) VerifySignature(bucket, key, expiresRaw, sig string) error {
	expires, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if s.now().Unix() > expires {
		return ErrBadSignature
	}
	clean, err := object.CleanKey(key)
	if err != nil {
		return ErrBadSignature
	}
	expected := s.sign(bucket, clean, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	return nil
}

func (s *Store) sign(bucket, key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(bucket + "/" + key + ":" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Store) resolve(bucket, key string) (string, string, error) {
	if !object.ValidBucket(bucket) {
		return "", "", object.ErrInvalidKey
	}
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(clean)), clean, nil
}

var _ object.Store = (*Store)(nil)
