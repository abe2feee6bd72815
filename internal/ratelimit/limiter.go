// Package ratelimit throttles requests to the object store with a token
// bucket. Many S3-compatible gateways reject bursts of listing calls; a
// limiter shared by every client of one endpoint keeps them under the
// gateway's limit.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/s5bridge/s5bridge/internal/logging"
)

// Waits longer than this are reported; reports are spaced by warnInterval.
const (
	warnThreshold = 2 * time.Second
	warnInterval  = 10 * time.Second
)

// RateLimiter implements a token bucket rate limiter.
// It allows bursts up to maxTokens, then refills at refillRate tokens/second.
type RateLimiter struct {
	tokens       float64   // Current number of tokens available
	maxTokens    float64   // Maximum bucket capacity
	refillRate   float64   // Tokens added per second
	lastRefill   time.Time // Last time tokens were refilled
	lastWarnTime time.Time // Last time a long wait was reported
	logger       *logging.Logger
	mu           sync.Mutex
}

// NewRateLimiter creates a limiter that starts with a full bucket.
//
// Parameters:
//   - requestsPerSecond: refill rate
//   - burstSize: maximum tokens that can accumulate
func NewRateLimiter(requestsPerSecond, burstSize float64, logger *logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.Nop()
	}
	if burstSize < 1 {
		burstSize = 1
	}
	return &RateLimiter{
		tokens:     burstSize,
		maxTokens:  burstSize,
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
		logger:     logger,
	}
}

// ForRate returns a limiter allowing requestsPerSecond with a one-second
// burst, or nil when requestsPerSecond is not positive. A nil limiter never
// blocks.
func ForRate(requestsPerSecond float64, logger *logging.Logger) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return NewRateLimiter(requestsPerSecond, requestsPerSecond, logger)
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	startTime := time.Now()

	if rl.tryAcquire() {
		return nil
	}

	if waitTime := rl.timeUntilNextToken(); waitTime > warnThreshold {
		rl.mu.Lock()
		if time.Since(rl.lastWarnTime) > warnInterval {
			rl.logger.Warn().Dur("wait", waitTime).Msg("request rate limit reached, waiting")
			rl.lastWarnTime = time.Now()
		}
		rl.mu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rl.tryAcquire() {
			if waited := time.Since(startTime); waited > 5*time.Second {
				rl.logger.Debug().Dur("waited", waited).Msg("rate limit wait completed")
			}
			return nil
		}

		timer := time.NewTimer(rl.timeUntilNextToken())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire takes one token without blocking.
func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

// refill must be called with mu held.
func (rl *RateLimiter) refill(now time.Time) {
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

func (rl *RateLimiter) timeUntilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	tokensNeeded := 1.0 - rl.tokens
	if tokensNeeded <= 0 {
		return 0
	}
	return time.Duration(tokensNeeded / rl.refillRate * float64(time.Second))
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())
	return rl.tokens
}
