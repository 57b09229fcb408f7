package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/statutefinder/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return newStore(c), c
}

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	if err := s.Ping(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_FirstPingSucceeds(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG"))).
		Times(1)

	if err := s.WaitForReady(t.Context(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	err := s.WaitForReady(t.Context(), 250*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestGet(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "statutefinder:budget:completion:daily:2026-10-18")).
		Return(mock.Result(mock.RedisBlobString("1500")))

	data, err := s.Get(t.Context(), "statutefinder:budget:completion:daily:2026-10-18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "1500" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	if _, err := s.Get(t.Context(), "missing"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_ErrorCarriesKey(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := s.Get(t.Context(), "k")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpGet || dbErr.Key != "k" {
		t.Fatalf("expected *db.Error for GET k, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestGetMulti_NilForMissing(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("GET", "a"), mock.Match("GET", "b"), mock.Match("GET", "c")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisBlobString("va")),
			mock.Result(mock.RedisNil()),
			mock.Result(mock.RedisBlobString("vc")),
		})

	got, err := s.GetMulti(t.Context(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || string(got[0]) != "va" || got[1] != nil || string(got[2]) != "vc" {
		t.Errorf("unexpected values: %q", got)
	}
}

func TestGetMulti_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisBlobString("va")),
			mock.ErrorResult(errors.New("MOVED")),
		})

	_, err := s.GetMulti(t.Context(), []string{"a", "b"})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Key != "b" {
		t.Fatalf("expected error for key b, got %v", err)
	}
}

func TestGetMulti_Empty(t *testing.T) {
	s := newStore(nil)
	got, err := s.GetMulti(t.Context(), nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestSet_WithoutTTL(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.Set(t.Context(), db.Item{Key: "k", Value: []byte("v")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSet_WithTTL(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.Set(t.Context(), db.Item{Key: "k", Value: []byte("v"), TTL: time.Minute}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetMulti(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("SET", "a", "1"), mock.Match("SET", "b", "2", "EX", "3600")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("OK")),
		})

	err := s.SetMulti(t.Context(), []db.Item{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2"), TTL: time.Hour},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetMulti_Empty(t *testing.T) {
	if err := newStore(nil).SetMulti(t.Context(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrWithExpiry(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("INCRBY", "counter", "250"),
			mock.Match("EXPIRE", "counter", "172800", "NX"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1250)),
			mock.Result(mock.RedisInt64(0)),
		})

	total, err := s.IncrWithExpiry(t.Context(), "counter", 250, 48*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1250 {
		t.Errorf("expected 1250, got %d", total)
	}
}

func TestIncrWithExpiry_ExpireFailureKeepsTotal(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(7)),
			mock.ErrorResult(errors.New("READONLY")),
		})

	total, err := s.IncrWithExpiry(t.Context(), "counter", 7, time.Hour)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpExpire {
		t.Fatalf("expected EXPIRE error, got %v", err)
	}
	if total != 7 {
		t.Errorf("expected total 7 alongside the error, got %d", total)
	}
}
