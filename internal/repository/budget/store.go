// Package budget persists token budget counters so limits survive restarts.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/statutefinder/internal/db"
)

const (
	// DefaultDailyTTL outlives one day so yesterday's counter is readable after midnight.
	DefaultDailyTTL = 48 * time.Hour
	// DefaultMonthlyTTL covers the longest month plus margin.
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrWithExpiry(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Store keeps budget counters for budget.Tracker.
type Store struct {
	kv         kv
	dailyTTL   time.Duration
	monthlyTTL time.Duration
}

// New creates a budget store. Non-positive TTLs fall back to the defaults.
func New(s kv, dailyTTL, monthlyTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthlyTTL <= 0 {
		monthlyTTL = DefaultMonthlyTTL
	}
	return &Store{kv: s, dailyTTL: dailyTTL, monthlyTTL: monthlyTTL}
}

// IncrBy adds tokens to a counter. The first increment of a period sets its expiry.
func (s *Store) IncrBy(ctx context.Context, key string, tokens int64) error {
	if _, err := s.kv.IncrWithExpiry(ctx, key, tokens, s.ttlFor(key)); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	return nil
}

// Get returns a counter, or 0 when the period has no usage yet.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: corrupt counter %q: %w", key, data, err)
	}
	return val, nil
}

// ttlFor reads the period segment of statutefinder:budget:{scope}:{daily|monthly}:{date}.
func (s *Store) ttlFor(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 && parts[len(parts)-2] == "daily" {
		return s.dailyTTL
	}
	return s.monthlyTTL
}
