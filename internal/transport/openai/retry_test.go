package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// drain collects delays until the schedule stops, guarding against an endless one.
func drain(t *testing.T, b backoff.BackOff) []time.Duration {
	t.Helper()
	var out []time.Duration
	for range 100 {
		d := b.NextBackOff()
		if d == backoff.Stop {
			return out
		}
		out = append(out, d)
	}
	t.Fatal("schedule never stopped")
	return nil
}

func TestRetryPolicy_BackOffBounds(t *testing.T) {
	tests := []struct {
		name     string
		policy   RetryPolicy
		min, max time.Duration
	}{
		{"default", DefaultRetryPolicy(), time.Second, 5 * time.Second},
		{"slow", SlowRetryPolicy(), time.Second, 40 * time.Second},
		{"many attempts", RetryPolicy{MaxAttempts: 20, MinDelay: time.Second, MaxDelay: 5 * time.Second}, time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delays := drain(t, tt.policy.backOff(t.Context()))
			if len(delays) != tt.policy.MaxAttempts-1 {
				t.Fatalf("got %d waits, want %d", len(delays), tt.policy.MaxAttempts-1)
			}
			for i, d := range delays {
				if d < tt.min || d > tt.max {
					t.Errorf("delay %d = %v, outside [%v, %v]", i, d, tt.min, tt.max)
				}
			}
		})
	}
}

func TestRetryPolicy_BackOffStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if d := DefaultRetryPolicy().backOff(ctx).NextBackOff(); d != backoff.Stop {
		t.Errorf("expected Stop after cancel, got %v", d)
	}
}

func TestClampedBackOff(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{100 * time.Millisecond, time.Second},
		{3 * time.Second, 3 * time.Second},
		{time.Minute, 5 * time.Second},
		{backoff.Stop, backoff.Stop},
	}
	for _, tt := range tests {
		b := &clampedBackOff{BackOff: backoff.NewConstantBackOff(tt.in), min: time.Second, max: 5 * time.Second}
		if got := b.NextBackOff(); got != tt.want {
			t.Errorf("clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRetryPolicy_SlowProfile(t *testing.T) {
	if RetryPolicyByName("slow") != SlowRetryPolicy() {
		t.Error("slow profile not selected")
	}
	if RetryPolicyByName("unknown") != DefaultRetryPolicy() {
		t.Error("unknown profile should map to the default policy")
	}
}

func TestRetryPolicy_WithDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()

	if p.MaxAttempts != 3 || p.MinDelay != time.Second || p.MaxDelay != time.Second {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestRetrier_NotifiesEachRetry(t *testing.T) {
	var attempts []int
	r := retrier{
		timer: newInstantTimer,
		onRetry: func(attempt int, _ error, next time.Duration) {
			attempts = append(attempts, attempt)
			if next < time.Second {
				t.Errorf("next delay %v below the minimum", next)
			}
		},
	}

	calls := 0
	err := r.do(t.Context(), "complete", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("retries notified for attempts %v, want [1 2]", attempts)
	}
}

func TestRetrier_Exhaustion(t *testing.T) {
	r := retrier{policy: RetryPolicy{MaxAttempts: 4}, timer: newInstantTimer}

	calls := 0
	err := r.do(t.Context(), "embed", func(context.Context) error {
		calls++
		return errors.New("timeout")
	})
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Attempts != 4 || calls != 4 {
		t.Fatalf("expected 4 attempts in a ProviderError, got %v after %d calls", err, calls)
	}
}
