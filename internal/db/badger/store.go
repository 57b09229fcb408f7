// Package badger implements db.Store on an embedded BadgerDB, for single-node
// deployments that have no Redis to point at.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	bdb "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/db"
)

var _ db.Store = (*Store)(nil)

// maxTxnAttempts bounds retries of an increment that lost an optimistic conflict.
const maxTxnAttempts = 5

// Config selects where the data lives. InMemory ignores Dir.
type Config struct {
	Dir      string
	InMemory bool
	Logger   *zap.Logger
}

// Store implements db.Store on BadgerDB.
type Store struct {
	db *bdb.DB

	incrMu sync.Mutex // serializes counter read-modify-write within the process
}

// Open opens or creates the database.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("badger: a data directory is required")
	}
	opts := bdb.DefaultOptions(cfg.Dir).WithLogger(zapLogger{logger(cfg.Logger).Sugar()})
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	d, err := bdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", cfg.Dir, err)
	}
	return &Store{db: d}, nil
}

// Ping fails once the database is closed.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

// WaitForReady returns at once: an open embedded database is ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close flushes and closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *bdb.Txn) error {
		var err error
		val, err = read(txn, key)
		return err
	})
	switch {
	case errors.Is(err, bdb.ErrKeyNotFound):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
	return val, nil
}

// GetMulti reads all keys in one read transaction. Missing keys give nil entries.
func (s *Store) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(keys))
	err := s.db.View(func(txn *bdb.Txn) error {
		for i, key := range keys {
			val, err := read(txn, key)
			if errors.Is(err, bdb.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return &db.Error{Op: db.OpGet, Key: key, Err: err}
			}
			out[i] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores one item.
func (s *Store) Set(ctx context.Context, item db.Item) error {
	return s.SetMulti(ctx, []db.Item{item})
}

// SetMulti writes items through a write batch.
func (s *Store) SetMulti(_ context.Context, items []db.Item) error {
	if len(items) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, item := range items {
		if err := wb.SetEntry(entry(item.Key, item.Value, item.TTL)); err != nil {
			return &db.Error{Op: db.OpSet, Key: item.Key, Err: err}
		}
	}
	if err := wb.Flush(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// IncrWithExpiry adds delta to a decimal counter. The first increment sets ttl and
// later ones keep it, matching INCRBY followed by EXPIRE NX.
func (s *Store) IncrWithExpiry(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	var total int64
	incr := func(txn *bdb.Txn) error {
		var current int64
		var expiresAt uint64
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, bdb.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if current, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
				return fmt.Errorf("value is not an integer: %w", err)
			}
			expiresAt = item.ExpiresAt()
		}

		total = current + delta
		e := entry(key, []byte(strconv.FormatInt(total, 10)), 0)
		if expiresAt > 0 {
			e.ExpiresAt = expiresAt
		} else if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	}

	s.incrMu.Lock()
	defer s.incrMu.Unlock()

	var err error
	for range maxTxnAttempts {
		if err = s.db.Update(incr); !errors.Is(err, bdb.ErrConflict) {
			break
		}
	}
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Key: key, Err: err}
	}
	return total, nil
}

func read(txn *bdb.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func entry(key string, value []byte, ttl time.Duration) *bdb.Entry {
	e := bdb.NewEntry([]byte(key), value)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named("badger")
}

// zapLogger routes badger's own logging to zap. Info and debug chatter is dropped.
type zapLogger struct{ s *zap.SugaredLogger }

func (l zapLogger) Errorf(f string, v ...any)   { l.s.Errorf(f, v...) }
func (l zapLogger) Warningf(f string, v ...any) { l.s.Warnf(f, v...) }
func (zapLogger) Infof(string, ...any)          {}
func (zapLogger) Debugf(string, ...any)         {}
