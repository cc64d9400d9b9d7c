package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"llmperfbench/internal/types"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 100 * time.Millisecond
)

// Executor performs one streaming completion request.
type Executor interface {
	Execute(ctx context.Context, prompt string, maxTokens uint32) (types.RequestMetrics, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, prompt string, maxTokens uint32) (types.RequestMetrics, error)

func (f ExecutorFunc) Execute(ctx context.Context, prompt string, maxTokens uint32) (types.RequestMetrics, error) {
	return f(ctx, prompt, maxTokens)
}

// RetryError is returned once every attempt of a request has failed.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Backoff returns the wait before the retry that follows failed attempt i.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(uint64(1)<<uint(attempt))
}

// Retrying re-runs a failed request up to MaxRetries more times, waiting
// BaseDelay*2^i after failed attempt i. Every failure is retryable.
type Retrying struct {
	Next       Executor
	MaxRetries int
	BaseDelay  time.Duration

	// Sleep waits for d or until ctx is done. Nil means a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (r *Retrying) Execute(ctx context.Context, prompt string, maxTokens uint32) (types.RequestMetrics, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	base := r.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	retries := max(r.MaxRetries, 0)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		metrics, err := r.Next.Execute(ctx, prompt, maxTokens)
		if err == nil {
			return metrics, nil
		}
		lastErr = err
		if attempt == retries {
			break
		}

		delay := Backoff(base, attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt, delay, err)
		}
		if waitErr := sleep(ctx, delay); waitErr != nil {
			return types.RequestMetrics{}, &RetryError{Attempts: attempt + 1, Err: errors.Join(lastErr, waitErr)}
		}
	}
	return types.RequestMetrics{}, &RetryError{Attempts: retries + 1, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
