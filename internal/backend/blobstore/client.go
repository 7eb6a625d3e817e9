// Package blobstore is the S3 adapter for saving generated reports
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

// ContentType is set on every uploaded object
const ContentType = "text/markdown; charset=utf-8"

// DefaultKeyPrefix roots generated keys
const DefaultKeyPrefix = "reports"

// objectAPI is the part of *s3.Client this adapter uses
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Options configures a Client
type Options struct {
	DefaultBucket string
	KeyPrefix     string
	Logger        *slog.Logger
	Now           func() time.Time
}

// AWSOptions selects region, credentials and endpoint for the S3 client
type AWSOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// Client uploads text objects. It is safe for concurrent use.
type Client struct {
	api           objectAPI
	defaultBucket string
	keyPrefix     string
	logger        *slog.Logger
	now           func() time.Time
}

// UploadRequest describes one object. Empty Bucket falls back to the default
// bucket; empty Key is generated from the current date.
type UploadRequest struct {
	Content  string
	Bucket   string
	Key      string
	Metadata map[string]string
}

// UploadResult locates a stored object
type UploadResult struct {
	URI       string  `json:"s3_uri"`
	Key       string  `json:"key"`
	VersionID *string `json:"version_id"`
}

// NewS3 builds an S3-backed client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, conn AWSOptions, opts Options) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(conn.Region),
	}
	if conn.AccessKeyID != "" && conn.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conn.AccessKeyID, conn.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conn.Endpoint != "" {
			o.BaseEndpoint = aws.String(conn.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, opts), nil
}

// New wraps an S3 API implementation
func New(api objectAPI, opts Options) *Client {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		api:           api,
		defaultBucket: opts.DefaultBucket,
		keyPrefix:     strings.Trim(opts.KeyPrefix, "/"),
		logger:        opts.Logger,
		now:           opts.Now,
	}
}

// GenerateKey returns prefix/YYYY/MM/DD/report-<unix>.md for t in UTC
func GenerateKey(prefix string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/report-%d.md", prefix, t.Year(), int(t.Month()), t.Day(), t.Unix())
}

// Upload stores req.Content as markdown
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	const op = "upload report"
	bucket := req.Bucket
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return nil, backend.Errorf(backend.KindInvalidInput, op, "no bucket given and no default bucket configured")
	}
	key := req.Key
	if key == "" {
		key = GenerateKey(c.keyPrefix, c.now())
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(req.Content),
		ContentType: aws.String(ContentType),
	}
	if len(req.Metadata) > 0 {
		in.Metadata = req.Metadata
	}

	out, err := c.api.PutObject(ctx, in)
	if err != nil {
		return nil, Classify(op, err)
	}

	res := &UploadResult{URI: fmt.Sprintf("s3://%s/%s", bucket, key), Key: key}
	if out != nil && out.VersionId != nil {
		v := *out.VersionId
		res.VersionID = &v
	}
	c.logger.Debug("report uploaded", "bucket", bucket, "key", key, "bytes", len(req.Content))
	return res, nil
}

// BucketExists reports whether bucket is reachable. Every failure, access
// denied and not found alike, reads as false.
func (c *Client) BucketExists(ctx context.Context, bucket string) bool {
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return false
	}
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		c.logger.Debug("bucket probe failed", "bucket", bucket, "error", err)
		return false
	}
	return true
}

// DefaultBucket returns the configured fallback bucket
func (c *Client) DefaultBucket() string {
	return c.defaultBucket
}

var errorCodeKinds = map[string]backend.Kind{
	"NoSuchBucket":          backend.KindNotFound,
	"NoSuchKey":             backend.KindNotFound,
	"NotFound":              backend.KindNotFound,
	"InvalidBucketName":     backend.KindInvalidInput,
	"InvalidArgument":       backend.KindInvalidInput,
	"EntityTooLarge":        backend.KindInvalidInput,
	"KeyTooLongError":       backend.KindInvalidInput,
	"AccessDenied":          backend.KindBackendUnavailable,
	"InvalidAccessKeyId":    backend.KindBackendUnavailable,
	"SignatureDoesNotMatch": backend.KindBackendUnavailable,
	"ExpiredToken":          backend.KindBackendUnavailable,
	"SlowDown":              backend.KindBackendUnavailable,
	"ServiceUnavailable":    backend.KindBackendUnavailable,
	"InternalError":         backend.KindBackendUnavailable,
	"RequestTimeout":        backend.KindTimeout,
}

// Classify maps an S3 error onto the backend taxonomy by error code, then
// by HTTP status, then by transport condition
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := errorCodeKinds[apiErr.ErrorCode()]; ok {
			return backend.E(kind, op, err)
		}
	}
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		if kind := backend.KindForStatus(status.HTTPStatusCode()); kind != backend.KindUnknown {
			return backend.E(kind, op, err)
		}
	}
	if apiErr != nil {
		return backend.E(backend.KindUnknown, op, err)
	}
	return backend.FromContext(op, err)
}
