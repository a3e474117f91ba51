package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Destination is where an export is written.
type Destination interface {
	// Write sends the JSONL payload for export id to the destination.
	Write(ctx context.Context, id string, data []byte) error
	// Describe names the destination for messages and events.
	Describe(id string) string
}

// WriterDestination writes to an io.Writer (stdout).
type WriterDestination struct {
	W io.Writer
}

func (d WriterDestination) Write(_ context.Context, _ string, data []byte) error {
	_, err := d.W.Write(data)
	return err
}

func (d WriterDestination) Describe(string) string { return "stdout" }

// FileDestination writes to a local file, replacing it atomically.
type FileDestination struct {
	Path string
}

func (d FileDestination) Write(_ context.Context, _ string, data []byte) error {
	if dir := filepath.Dir(d.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	tmp := d.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := os.Rename(tmp, d.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func (d FileDestination) Describe(string) string { return d.Path }

// S3Destination writes JSONL data to an S3-compatible bucket, one object per
// export under prefix.
type S3Destination struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, prefix, region, endpoint string) (*S3Destination, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 export needs a bucket (DOGMATCH_EXPORT_S3_BUCKET)")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Destination{
		client: s3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Key is the object key for export id.
func (d *S3Destination) Key(id string) string {
	if d.prefix == "" {
		return id + ".jsonl"
	}
	return d.prefix + "/" + id + ".jsonl"
}

// Write uploads data as the export's object.
func (d *S3Destination) Write(ctx context.Context, id string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.Key(id)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (d *S3Destination) Describe(id string) string {
	return "s3://" + d.bucket + "/" + d.Key(id)
}
