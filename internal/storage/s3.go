package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrMirror indicates an upload to the object store failed.
var ErrMirror = errors.New("artifact mirror upload failed")

// s3API is the subset of the S3 client used by S3Mirror.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads artifacts to {bucket}/{prefix}/{key}.
type S3Mirror struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Mirror loads the default AWS configuration for region.
func NewS3Mirror(ctx context.Context, bucket, region, prefix string) (*S3Mirror, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrConfig)
	}

	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading aws config: %v", ErrConfig, err)
	}
	return newS3Mirror(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Mirror(client s3API, bucket, prefix string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for name.
func (m *S3Mirror) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Put uploads data as a PDF object.
func (m *S3Mirror) Put(ctx context.Context, name string, data []byte) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(m.Key(name)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/pdf"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("%w: s3://%s/%s: %v", ErrMirror, m.bucket, m.Key(name), err)
	}
	return nil
}

// Compile-time interface check.
var _ Mirror = (*S3Mirror)(nil)
