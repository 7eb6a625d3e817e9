package blobstore

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/legalhub-mcp/internal/backend"
)

type fakeS3 struct {
	puts      []*s3.PutObjectInput
	bodies    []string
	putErr    error
	versionID *string
	headErr   error
	headed    []string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{VersionId: f.versionID}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.headed = append(f.headed, aws.ToString(in.Bucket))
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

var keyPattern = regexp.MustCompile(`^reports/\d{4}/\d{2}/\d{2}/report-\d+\.md$`)

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"first of month", time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), "reports/2025/03/01/report-1740816000.md"},
		{"december", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), "reports/2024/12/31/report-1735689599.md"},
		{"january first", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "reports/2026/01/01/report-1767225600.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateKey("reports", tt.at)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, keyPattern, got)
		})
	}
}

func TestGenerateKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	local := time.Date(2025, 7, 1, 5, 0, 0, 0, loc) // 2025-06-30 19:00 UTC
	assert.Equal(t, "reports/2025/06/30/report-1751310000.md", GenerateKey("reports", local))
}

func TestGenerateKeyEveryDayOfYear(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for d := 0; d < 366; d++ {
		assert.Regexp(t, keyPattern, GenerateKey("reports", start.AddDate(0, 0, d)))
	}
}

func TestUploadGeneratesKey(t *testing.T) {
	fake := &fakeS3{}
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	c := New(fake, Options{DefaultBucket: "legal-research-reports", Now: func() time.Time { return now }})

	res, err := c.Upload(context.Background(), UploadRequest{Content: "# Report"})
	require.NoError(t, err)

	wantKey := GenerateKey("reports", now)
	assert.Equal(t, wantKey, res.Key)
	assert.Equal(t, "s3://legal-research-reports/"+wantKey, res.URI)
	assert.Nil(t, res.VersionID)

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "legal-research-reports", aws.ToString(put.Bucket))
	assert.Equal(t, ContentType, aws.ToString(put.ContentType))
	assert.Nil(t, put.Metadata)
	assert.Equal(t, "# Report", fake.bodies[0])
}

func TestUploadWithExplicitKeyAndMetadata(t *testing.T) {
	fake := &fakeS3{versionID: aws.String("v-7")}
	c := New(fake, Options{DefaultBucket: "default"})

	res, err := c.Upload(context.Background(), UploadRequest{
		Content:  "body",
		Bucket:   "other",
		Key:      "custom/path.md",
		Metadata: map[string]string{"research-query": "tort reform"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://other/custom/path.md", res.URI)
	assert.Equal(t, "custom/path.md", res.Key)
	require.NotNil(t, res.VersionID)
	assert.Equal(t, "v-7", *res.VersionID)
	assert.Equal(t, map[string]string{"research-query": "tort reform"}, fake.puts[0].Metadata)
}

func TestUploadWithoutBucket(t *testing.T) {
	fake := &fakeS3{}
	_, err := New(fake, Options{}).Upload(context.Background(), UploadRequest{Content: "x"})
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))
	assert.Empty(t, fake.puts)
}

func TestUploadErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want backend.Kind
	}{
		{"missing bucket", &smithy.GenericAPIError{Code: "NoSuchBucket"}, backend.KindNotFound},
		{"denied", &smithy.GenericAPIError{Code: "AccessDenied"}, backend.KindBackendUnavailable},
		{"bad name", &smithy.GenericAPIError{Code: "InvalidBucketName"}, backend.KindInvalidInput},
		{"request timeout", &smithy.GenericAPIError{Code: "RequestTimeout"}, backend.KindTimeout},
		{"unmapped code", &smithy.GenericAPIError{Code: "Weird"}, backend.KindUnknown},
		{"deadline", context.DeadlineExceeded, backend.KindTimeout},
		{"network", errors.New("dial tcp: no route"), backend.KindBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeS3{putErr: tt.err}, Options{DefaultBucket: "b"})
			_, err := c.Upload(context.Background(), UploadRequest{Content: "x"})
			assert.Equal(t, tt.want, backend.KindOf(err))
		})
	}
}

type statusErr struct{ code int }

func (e statusErr) Error() string       { return "http error" }
func (e statusErr) HTTPStatusCode() int { return e.code }

func TestClassifyByStatus(t *testing.T) {
	assert.Equal(t, backend.KindNotFound, backend.KindOf(Classify("op", statusErr{404})))
	assert.Equal(t, backend.KindBackendUnavailable, backend.KindOf(Classify("op", statusErr{503})))
	assert.NoError(t, Classify("op", nil))
}

func TestBucketExists(t *testing.T) {
	ok := New(&fakeS3{}, Options{DefaultBucket: "reports"})
	assert.True(t, ok.BucketExists(context.Background(), ""))

	for _, err := range []error{
		&smithy.GenericAPIError{Code: "NotFound"},
		&smithy.GenericAPIError{Code: "AccessDenied"},
		errors.New("offline"),
	} {
		c := New(&fakeS3{headErr: err}, Options{})
		assert.False(t, c.BucketExists(context.Background(), "reports"))
	}

	assert.False(t, New(&fakeS3{}, Options{}).BucketExists(context.Background(), ""))
}
