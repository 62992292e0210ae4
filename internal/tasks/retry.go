package tasks

import (
	"context"
	"errors"
	"time"
)

// FixedRetryPolicy re-attempts failed task executions a bounded number of
// times with a constant delay. Only errors raised out of dispatch (transport
// failures, unexpected conditions) qualify; terminal outcomes returned as
// values never reach the policy.
type FixedRetryPolicy struct {
	maxRetries int
	delay      time.Duration
}

// NewFixedRetryPolicy builds a policy. Negative maxRetries is treated as 0.
func NewFixedRetryPolicy(maxRetries int, delay time.Duration) *FixedRetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay <= 0 {
		delay = 60 * time.Second
	}
	return &FixedRetryPolicy{maxRetries: maxRetries, delay: delay}
}

// ShouldRetry decides whether the attempt (0-based) may be re-enqueued.
// Cancellation and exceeded time budgets are final.
func (p *FixedRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxRetries {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Backoff returns the fixed wait before the next attempt.
func (p *FixedRetryPolicy) Backoff(int) time.Duration {
	return p.delay
}
