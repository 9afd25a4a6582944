package llm

import (
	"context"
	"errors"
	"time"
)

// ErrToolUseUnsupported is returned by a Backend.ToolUse implementation
// that has no tool-calling surface (the fallback/judge tier).
var ErrToolUseUnsupported = errors.New("llm: backend does not support tool use")

// RetryConfig is the exponential-backoff policy for transient HTTP/API
// failures, grounded on the teacher's providers.RetryConfig pattern
// (referenced by cmd/gateway.go's cron retry wiring) with the concrete
// numbers: 3 retries after the first attempt (4 attempts in all), with
// 1s/2s/4s delays between them.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
}

// RetryDo runs fn up to cfg.MaxRetries+1 times with doubling backoff,
// stopping early if ctx is cancelled or fn returns a non-retryable error.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func() (T, error)) (T, error) {
	var zero T
	delay := cfg.BaseDelay
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !retryable(err) || attempt == cfg.MaxRetries {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return zero, lastErr
}
