package github

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/go-github/v66/github"
)

// RetryConfig controls how the client repeats calls that failed with a
// retryable error
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// MaxRateLimitWait caps how long a rate limit reset is waited for in place;
	// longer resets fall back to the normal backoff
	MaxRateLimitWait time.Duration
	// RetryableErrors restricts retries to these categories. Empty means
	// rate limit and network errors.
	RetryableErrors []ErrorType
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:       3,
		InitialDelay:     time.Second,
		MaxDelay:         30 * time.Second,
		BackoffFactor:    2.0,
		MaxRateLimitWait: 5 * time.Minute,
		RetryableErrors:  []ErrorType{ErrorTypeRateLimit, ErrorTypeNetwork},
	}
}

// RetryableOperation is one attempt of an API call
type RetryableOperation func() error

// WithRetry runs operation until it succeeds, fails with an error that is not
// retryable, or runs out of attempts. A rate limit error that carries a reset
// time is waited out instead of backing off.
func WithRetry(ctx context.Context, operation RetryableOperation, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	backoff := config.InitialDelay
	var err error
	for attempt := 0; ; attempt++ {
		if err = operation(); err == nil {
			return nil
		}

		var ghErr *GitHubError
		if !errors.As(err, &ghErr) || !ghErr.IsRetryable() || !config.retries(ghErr.Type) {
			return err
		}
		if attempt == config.MaxRetries {
			break
		}

		wait := backoff
		if reset := rateLimitWait(ghErr.Cause); ghErr.Type == ErrorTypeRateLimit && reset > 0 && reset < config.MaxRateLimitWait {
			wait = reset
		} else {
			backoff = min(time.Duration(float64(backoff)*config.BackoffFactor), config.MaxDelay)
		}
		if sleepErr := SleepContext(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", config.MaxRetries, err)
}

func (c *RetryConfig) retries(errorType ErrorType) bool {
	if len(c.RetryableErrors) == 0 {
		return isRetryableErrorType(errorType)
	}
	return slices.Contains(c.RetryableErrors, errorType)
}

// rateLimitWait returns how long GitHub asked callers to back off for
func rateLimitWait(cause error) time.Duration {
	var primary *github.RateLimitError
	if errors.As(cause, &primary) {
		return time.Until(primary.Rate.Reset.Time)
	}
	var secondary *github.AbuseRateLimitError
	if errors.As(cause, &secondary) {
		return secondary.GetRetryAfter()
	}
	return 0
}

// SleepContext blocks for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
