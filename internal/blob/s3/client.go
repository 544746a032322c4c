// Package s3blob stores claim evidence in S3-compatible object storage via
// AWS SDK v2. Providers like MinIO and Cloudflare R2 are supported through
// the Endpoint and ForcePathStyle options.
package s3blob

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds connection parameters for an S3-compatible object store.
type ClientConfig struct {
	// Endpoint overrides the S3 endpoint for compatible providers. Leave
	// empty for standard AWS S3.
	Endpoint string

	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// UseSSL selects the scheme when Endpoint is given without one.
	UseSSL bool

	// ForcePathStyle puts the bucket in the path rather than the subdomain.
	// Required by MinIO and many compatible providers.
	ForcePathStyle bool
}

// Client wraps the AWS S3 SDK client and the configured evidence bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New creates an S3 client from the given configuration.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Client{
		s3:     s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Health verifies connectivity and permissions with a HeadBucket call.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3blob: health check failed for bucket %s: %w", c.bucket, err)
	}
	return nil
}

// S3 returns the underlying AWS SDK client.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// Bucket returns the configured evidence bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// normaliseEndpoint prepends a scheme when the endpoint lacks one.
func normaliseEndpoint(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
