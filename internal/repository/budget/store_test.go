package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/statutefinder/internal/db"
)

// memKV is an in-memory counter store recording the TTL of every increment.
type memKV struct {
	values  map[string][]byte
	totals  map[string]int64
	ttls    map[string]time.Duration
	getErr  error
	incrErr error
}

func newMemKV() *memKV {
	return &memKV{
		values: map[string][]byte{},
		totals: map[string]int64{},
		ttls:   map[string]time.Duration{},
	}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) IncrWithExpiry(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	m.totals[key] += delta
	if _, ok := m.ttls[key]; !ok {
		m.ttls[key] = ttl
	}
	return m.totals[key], nil
}

func TestIncrBy_PeriodTTL(t *testing.T) {
	tests := []struct {
		key  string
		want time.Duration
	}{
		{"statutefinder:budget:completion:daily:2026-10-18", DefaultDailyTTL},
		{"statutefinder:budget:embedding:monthly:2026-10", DefaultMonthlyTTL},
		{"statutefinder:budget:daily:monthly:2026-10", DefaultMonthlyTTL},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			kv := newMemKV()
			s := New(kv, 0, 0)
			if err := s.IncrBy(t.Context(), tt.key, 120); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kv.totals[tt.key] != 120 {
				t.Errorf("expected 120, got %d", kv.totals[tt.key])
			}
			if kv.ttls[tt.key] != tt.want {
				t.Errorf("ttl = %v, want %v", kv.ttls[tt.key], tt.want)
			}
		})
	}
}

func TestIncrBy_CustomTTL(t *testing.T) {
	kv := newMemKV()
	s := New(kv, time.Hour, 2*time.Hour)
	key := "statutefinder:budget:completion:daily:2026-10-18"

	_ = s.IncrBy(t.Context(), key, 1)
	if kv.ttls[key] != time.Hour {
		t.Errorf("ttl = %v, want 1h", kv.ttls[key])
	}
}

func TestIncrBy_Error(t *testing.T) {
	kv := newMemKV()
	kv.incrErr = &db.Error{Op: db.OpIncrBy, Key: "k", Err: errors.New("conn refused")}
	s := New(kv, 0, 0)

	err := s.IncrBy(t.Context(), "k", 1)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected wrapped *db.Error, got %v", err)
	}
}

func TestGet(t *testing.T) {
	kv := newMemKV()
	kv.values["present"] = []byte("4200")
	kv.values["garbage"] = []byte("forty")
	s := New(kv, 0, 0)

	if got, err := s.Get(t.Context(), "present"); err != nil || got != 4200 {
		t.Errorf("expected 4200, got %d (%v)", got, err)
	}
	if got, err := s.Get(t.Context(), "missing"); err != nil || got != 0 {
		t.Errorf("expected 0 for missing key, got %d (%v)", got, err)
	}
	if _, err := s.Get(t.Context(), "garbage"); err == nil {
		t.Error("expected parse error")
	}
}

func TestGet_StoreError(t *testing.T) {
	kv := newMemKV()
	kv.getErr = &db.Error{Op: db.OpGet, Err: errors.New("timeout")}
	s := New(kv, 0, 0)

	if _, err := s.Get(t.Context(), "k"); err == nil {
		t.Fatal("expected error")
	}
}
