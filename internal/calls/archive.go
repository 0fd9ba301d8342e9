package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rjsadow/aurora/internal/domain"
)

// s3API defines the subset of the S3 client used by Archiver, enabling test mocking.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver mirrors final call-history snapshots to an S3-compatible object
// store (SPEC_FULL.md A8). It is optional: a nil Archiver (no bucket
// configured) makes Coordinator.End skip archiving entirely.
type Archiver struct {
	client s3API
	bucket string
	prefix string
}

// NewArchiver creates an Archiver configured from AWS defaults. An empty
// endpoint uses the standard AWS S3 endpoint; a non-empty endpoint targets
// MinIO or another S3-compatible service. When accessKeyID and
// secretAccessKey are both non-empty, static credentials are used instead
// of the default credential chain.
func NewArchiver(ctx context.Context, bucket, region, endpoint, prefix, accessKeyID, secretAccessKey string) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	client := s3.NewFromConfig(cfg, s3Opts...)
	return NewArchiverWithClient(client, bucket, prefix), nil
}

// NewArchiverWithClient creates an Archiver with an injected S3 client (for testing).
func NewArchiverWithClient(client s3API, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Archive uploads the final call-history snapshot as a JSON object keyed by
// the call's end date and ID.
func (a *Archiver) Archive(ctx context.Context, record *domain.CallHistory) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal call history: %w", err)
	}

	now := time.Now()
	key := fmt.Sprintf("%s%d/%02d/%s.json", a.prefix, now.Year(), now.Month(), record.ID)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload call history to S3: %w", err)
	}

	return nil
}
