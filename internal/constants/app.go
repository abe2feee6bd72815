package constants

import (
	"time"
)

// Object storage limits
const (
	// DeleteBatchSize - maximum keys per bulk delete and per listing page (1000)
	// S3 rejects DeleteObjects requests with more keys than this.
	DeleteBatchSize = 1000

	// ListPageSize - keys requested per ListObjectsV2 call
	ListPageSize = 1000
)

// Retry configuration for storage requests
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000
)

// Progress reporting
const (
	// ProgressInterval - minimum spacing between copy progress events (1 second)
	// The final event of a copy is always emitted regardless of spacing.
	ProgressInterval = 1 * time.Second
)

// Transfer queue
const (
	// QueueBuffer - jobs that can be enqueued without blocking the caller
	QueueBuffer = 64
)

// Timeouts
const (
	// ConnectivityCheckTimeout - budget for the bucket existence check (30 seconds)
	ConnectivityCheckTimeout = 30 * time.Second

	// ListingTimeout - budget for a single listing page request (2 minutes)
	ListingTimeout = 2 * time.Minute
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPMaxIdleConnsPerHost - pooled connections per endpoint
	HTTPMaxIdleConnsPerHost = 32
)
