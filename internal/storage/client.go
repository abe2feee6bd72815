// Package storage is the bucket client shared by the capacity model, the
// listing engine and the transfer coordinator. It wraps the AWS SDK S3
// client behind a narrow API interface so tests can substitute an
// in-memory bucket.
package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/s5bridge/s5bridge/internal/config"
	"github.com/s5bridge/s5bridge/internal/constants"
	"github.com/s5bridge/s5bridge/internal/http"
	"github.com/s5bridge/s5bridge/internal/logging"
	"github.com/s5bridge/s5bridge/internal/ratelimit"
)

// API is the subset of *s3.Client the storage client uses.
type API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Client performs bucket operations against a single configured bucket.
//
// Thread-safe: All operations are safe for concurrent use.
type Client struct {
	api     API
	bucket  string
	retry   http.Config
	limiter *ratelimit.RateLimiter
	logger  *logging.Logger
}

// NewClient builds an S3 client for the configured endpoint.
//
// Credentials come from the shared profile unless static keys are set.
// The SDK's own retryer is disabled; requests go through
// http.ExecuteWithRetry instead.
func NewClient(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = config.DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(http.CreateOptimizedClient()),
	}
	switch {
	case cfg.AccessKeyID != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	case cfg.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// S3-compatible stores rarely support virtual-hosted buckets.
			o.UsePathStyle = true
		}
		o.Retryer = aws.NopRetryer{}
	})

	return New(api, cfg.Bucket, logger), nil
}

// New wraps an existing API implementation.
func New(api API, bucket string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	c := &Client{
		api:    api,
		bucket: bucket,
		retry:  http.DefaultConfig(),
		logger: logger,
	}
	c.retry.OnRetry = func(attempt int, err error, errorType http.ErrorType) {
		logger.Debugf("storage retry %d/%d (%s): %v",
			attempt, constants.MaxRetries, http.ErrorTypeName(errorType), err)
	}
	return c
}

// WithRetry returns a copy of the client using the given retry settings.
func (c *Client) WithRetry(retry http.Config) *Client {
	clone := *c
	clone.retry = retry
	return &clone
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

// WithLimiter returns a copy of the client that takes a token from l before
// every request attempt. A nil limiter disables throttling.
func (c *Client) WithLimiter(l *ratelimit.RateLimiter) *Client {
	clone := *c
	clone.limiter = l
	return &clone
}

func (c *Client) do(ctx context.Context, fn func() error) error {
	return http.ExecuteWithRetry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn()
	})
}
