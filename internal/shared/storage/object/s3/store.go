package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"applicant-tracker/internal/shared/storage/object"
)

type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Options configures the S3-backed store.
type Options struct {
	Region   string
	Bucket   string
	Prefix   string
	KMSKeyID string
	// Endpoint, AccessKeyID and SecretAccessKey target S3-compatible servers such as MinIO.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Store implements object.Store on a single S3 bucket. Logical buckets become key prefixes:
// <prefix>/<bucket>/<key>.
type Store struct {
	client    api
	presign   presigner
	bucket    string
	prefix    string
	kmsKeyID  string
	publicURL string
}

// New creates a new S3-backed object store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, cfg.Region)
	if endpoint != "" {
		publicURL = endpoint + "/" + opts.Bucket
	}

	return &Store{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    opts.Bucket,
		prefix:    normalizePrefix(opts.Prefix),
		kmsKeyID:  strings.TrimSpace(opts.KMSKeyID),
		publicURL: publicURL,
	}, nil
}

// Put uploads r under <prefix>/<bucket>/<key>.
func (s *Store) Put(ctx context.Context, bucket, key string, r io.Reader, contentType string) (object.Object, error) {
	objectKey, clean, err := s.objectKey(bucket, key)
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
	counter := &countingReader{r: r}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        counter,
		ContentType: aws.String(contentType),
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Object{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return object.Object{Bucket: bucket, Key: clean, ContentType: contentType, Size: counter.n}, nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	objectKey, _, err := s.objectKey(bucket, key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return out.Body, nil
}

// Delete removes the keys with one DeleteObjects request per 1000 keys.
func (s *Store) Delete(ctx context.Context, bucket string, keys []string) error {
	ids := make([]s3types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objectKey, _, err := s.objectKey(bucket, key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(objectKey)})
	}
	for start := 0; start < len(ids); start += 1000 {
		end := min(start+1000, len(ids))
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: ids[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("s3 delete objects bucket=%s: %w", s.bucket, err)
		}
		if len(out.Errors) > 0 {
			var errs []error
			for _, e := range out.Errors {
				errs = append(errs, fmt.Errorf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
			}
			return fmt.Errorf("s3 delete objects bucket=%s: %w", s.bucket, errors.Join(errs...))
		}
	}
	return nil
}

// SignedURL presigns a GET valid for ttl.
func (s *Store) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	objectKey, _, err := s.objectKey(bucket, key)
	if err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return req.URL, nil
}

// PublicURL returns the unsigned object URL. The bucket policy must allow reads on
// the public logical buckets.
func (s *Store) PublicURL(bucket, key string) string {
	objectKey := applyPrefix(s.prefix, bucket+"/"+strings.TrimLeft(key, "/"))
	return s.publicURL + "/" + object.EscapeKey(objectKey)
}

func (s *Store) objectKey(bucket, key string) (string, string, error) {
	if !object.ValidBucket(bucket) {
		return "", "", object.ErrInvalidKey
	}
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return applyPrefix(s.prefix, bucket+"/"+clean), clean, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.Store = (*Store)(nil)
