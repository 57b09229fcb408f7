package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/statutefinder/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return data, nil
}

// GetMulti pipelines one GET per key, so keys may live in different cluster slots.
func (s *Store) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Get().Key(key).Build()
	}

	out := make([][]byte, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		data, err := res.AsBytes()
		if rueidis.IsRedisNil(err) {
			continue
		}
		if err != nil {
			return nil, &db.Error{Op: db.OpGet, Key: keys[i], Err: err}
		}
		out[i] = data
	}
	return out, nil
}

// Set stores one item.
func (s *Store) Set(ctx context.Context, item db.Item) error {
	if err := s.do(ctx, s.setCmd(item)).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Key: item.Key, Err: err}
	}
	return nil
}

// SetMulti stores items in a single DoMulti round-trip.
func (s *Store) SetMulti(ctx context.Context, items []db.Item) error {
	if len(items) == 0 {
		return nil
	}
	cmds := make(rueidis.Commands, len(items))
	for i, item := range items {
		cmds[i] = s.setCmd(item)
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpSet, Key: items[i].Key, Err: err}
		}
	}
	return nil
}

func (s *Store) setCmd(item db.Item) rueidis.Completed {
	set := s.b().Set().Key(item.Key).Value(rueidis.BinaryString(item.Value))
	if item.TTL > 0 {
		return set.Ex(item.TTL).Build()
	}
	return set.Build()
}

// IncrWithExpiry pipelines INCRBY and EXPIRE NX, so repeated increments keep the first expiry.
func (s *Store) IncrWithExpiry(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	res := s.client.DoMulti(ctx,
		s.b().Incrby().Key(key).Increment(delta).Build(),
		s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Nx().Build(),
	)
	total, err := res[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Key: key, Err: err}
	}
	if err := res[1].Error(); err != nil {
		return total, &db.Error{Op: db.OpExpire, Key: key, Err: err}
	}
	return total, nil
}
