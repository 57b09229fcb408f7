package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// RetryPolicy bounds retries of transient provider failures.
// Delays grow exponentially from MinDelay with jitter and never leave [MinDelay, MaxDelay].
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is used for interactive calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, MinDelay: time.Second, MaxDelay: 5 * time.Second}
}

// SlowRetryPolicy rides out longer rate-limit windows for offline jobs.
func SlowRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, MinDelay: time.Second, MaxDelay: 40 * time.Second}
}

// RetryPolicyByName maps a config profile to a policy. Unknown names get the default.
func RetryPolicyByName(name string) RetryPolicy {
	if name == "slow" {
		return SlowRetryPolicy()
	}
	return DefaultRetryPolicy()
}

const jitter = 0.5

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.MinDelay <= 0 {
		p.MinDelay = d.MinDelay
	}
	if p.MaxDelay < p.MinDelay {
		p.MaxDelay = p.MinDelay
	}
	return p
}

// backOff builds the schedule for one call: MaxAttempts-1 waits, abandoned when ctx ends.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	p = p.withDefaults()
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.MinDelay),
		backoff.WithMaxInterval(p.MaxDelay),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(jitter),
		backoff.WithMaxElapsedTime(0),
	)
	bounded := &clampedBackOff{BackOff: exp, min: p.MinDelay, max: p.MaxDelay}
	return backoff.WithContext(backoff.WithMaxRetries(bounded, uint64(p.MaxAttempts-1)), ctx)
}

// clampedBackOff keeps jittered delays inside [min, max].
type clampedBackOff struct {
	backoff.BackOff
	min, max time.Duration
}

func (b *clampedBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	return min(max(d, b.min), b.max)
}

type retrier struct {
	policy RetryPolicy
	// timer replaces the wall-clock timer between attempts when set.
	timer   func() backoff.Timer
	onRetry func(attempt int, err error, next time.Duration)
}

// do runs fn until it succeeds, fails permanently, or attempts run out.
// Exhaustion is reported as *domain.ProviderError.
func (r retrier) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p := r.policy.withDefaults()

	attempts := 0
	var lastErr error
	operation := func() error {
		attempts++
		lastErr = fn(ctx)
		if lastErr == nil || ctx.Err() != nil {
			return lastErr
		}
		if !isTransient(lastErr) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}
	notify := func(err error, next time.Duration) {
		if r.onRetry != nil {
			r.onRetry(attempts, err, next)
		}
	}

	var timer backoff.Timer
	if r.timer != nil {
		timer = r.timer()
	}
	err := backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), notify, timer)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s aborted: %w", op, ctx.Err())
	case !isTransient(lastErr):
		return fmt.Errorf("%s: %w", op, parseAPIError(lastErr, domain.ErrProviderRejected))
	default:
		return domain.NewProviderError(op, attempts, parseAPIError(lastErr, nil))
	}
}

// isTransient reports whether a provider error is worth retrying:
// rate limits, timeouts, server errors and anything below HTTP.
func isTransient(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return true
	}
	switch {
	case status == 0:
		return true
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status == http.StatusConflict:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}
