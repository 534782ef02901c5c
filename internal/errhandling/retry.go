// Package errhandling provides retry configuration and mechanism.
// This file defines retry configuration, delay calculation, and the executor
// used by report sinks that talk to remote services.
package errhandling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Default retry configuration values
const (
	DefaultMaxAttempts       = 3
	DefaultDelayMs           = 1000
	DefaultBackoffMultiplier = 2.0
	DefaultMaxDelayMs        = 30000
	MaxRetryAttempts         = 10
	MinBackoffMultiplier     = 1.0
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	// MaxAttempts is the maximum number of retry attempts (0 = no retry).
	// Default: 3, Max: 10
	MaxAttempts int

	// DelayMs is the initial delay between retries in milliseconds.
	// Default: 1000
	DelayMs int

	// BackoffMultiplier is the multiplier for exponential backoff.
	// Default: 2.0, Min: 1.0
	BackoffMultiplier float64

	// MaxDelayMs is the maximum delay between retries in milliseconds.
	// Default: 30000
	MaxDelayMs int
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       DefaultMaxAttempts,
		DelayMs:           DefaultDelayMs,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MaxDelayMs:        DefaultMaxDelayMs,
	}
}

// Validate validates the retry configuration.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 0 {
		return errors.New("maxAttempts must be >= 0")
	}
	if c.MaxAttempts > MaxRetryAttempts {
		return fmt.Errorf("maxAttempts must be <= %d", MaxRetryAttempts)
	}
	if c.DelayMs < 0 {
		return errors.New("delayMs must be >= 0")
	}
	if c.BackoffMultiplier < MinBackoffMultiplier {
		return fmt.Errorf("backoffMultiplier must be >= %v", MinBackoffMultiplier)
	}
	if c.MaxDelayMs < 0 {
		return errors.New("maxDelayMs must be >= 0")
	}
	return nil
}

// CalculateDelay calculates the retry delay for a given attempt using exponential backoff.
// The formula is: min(delayMs * (backoffMultiplier ^ attempt), maxDelayMs)
func (c RetryConfig) CalculateDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delayMs := float64(c.DelayMs) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if delayMs > float64(c.MaxDelayMs) {
		delayMs = float64(c.MaxDelayMs)
	}
	return time.Duration(delayMs) * time.Millisecond
}

// RetryFunc is a function that can be retried.
type RetryFunc func(ctx context.Context) error

// RetryInfo contains information about retry attempts.
type RetryInfo struct {
	// TotalAttempts is the total number of attempts made.
	TotalAttempts int

	// RetryCount is the number of retries (TotalAttempts - 1).
	RetryCount int

	// TotalDuration is the total time spent including retries.
	TotalDuration time.Duration

	// Errors is the list of errors encountered.
	Errors []error
}

// RetryExecutor executes functions with retry logic.
// An executor is not safe for concurrent use.
type RetryExecutor struct {
	config    RetryConfig
	retryInfo RetryInfo

	// OnRetry, if set, is called before each wait with the failed attempt
	// (0-indexed), its error, and the delay before the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// NewRetryExecutor creates a new retry executor with the given configuration.
func NewRetryExecutor(config RetryConfig) *RetryExecutor {
	return &RetryExecutor{config: config}
}

// Execute runs fn, retrying retryable errors up to MaxAttempts times.
func (e *RetryExecutor) Execute(ctx context.Context, fn RetryFunc) error {
	startTime := time.Now()
	e.retryInfo = RetryInfo{}

	var lastErr error
	for attempt := 0; attempt <= e.config.MaxAttempts; attempt++ {
		e.retryInfo.TotalAttempts = attempt + 1

		if err := ctx.Err(); err != nil {
			e.retryInfo.TotalDuration = time.Since(startTime)
			return ClassifyError(err)
		}

		err := fn(ctx)
		if err == nil {
			e.retryInfo.RetryCount = attempt
			e.retryInfo.TotalDuration = time.Since(startTime)
			return nil
		}

		lastErr = err
		e.retryInfo.Errors = append(e.retryInfo.Errors, err)

		if !IsRetryable(err) || attempt >= e.config.MaxAttempts {
			break
		}

		delay := e.config.CalculateDelay(attempt)
		if e.OnRetry != nil {
			e.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			e.retryInfo.TotalDuration = time.Since(startTime)
			return ClassifyError(ctx.Err())
		case <-time.After(delay):
		}
	}

	e.retryInfo.RetryCount = e.retryInfo.TotalAttempts - 1
	e.retryInfo.TotalDuration = time.Since(startTime)
	return lastErr
}

// GetRetryInfo returns information about the last Execute call.
func (e *RetryExecutor) GetRetryInfo() RetryInfo {
	return e.retryInfo
}
