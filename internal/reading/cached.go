package reading

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/nerrad567/tempwatch-core/internal/ident"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/cache"
)

// Logger defines the logging interface used by CachedStore.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// KV is the key-value cache CachedStore writes through to.
// cache.Client satisfies it.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// latestKeyPrefix prefixes the cached latest reading of each device.
const latestKeyPrefix = "reading:latest:"

// fillLockStripes is the number of locks cache keys hash onto.
const fillLockStripes = 32

// CachedStore serves Latest from a cache and falls back to the wrapped
// store. Cache failures are logged and never returned: the wrapped store
// stays the source of truth.
type CachedStore struct {
	inner  Store
	kv     KV
	logger Logger

	// fillLocks order cache writes from Append against fills from Latest
	// for the same key, so an older reading cannot overwrite a newer one.
	fillLocks [fillLockStripes]sync.Mutex
}

// NewCachedStore wraps inner with kv.
func NewCachedStore(inner Store, kv KV) *CachedStore {
	return &CachedStore{inner: inner, kv: kv, logger: noopLogger{}}
}

// SetLogger sets the logger for the store.
func (s *CachedStore) SetLogger(logger Logger) {
	s.logger = logger
}

// EnsureExists delegates to the wrapped store.
func (s *CachedStore) EnsureExists(ctx context.Context, name string) error {
	return s.inner.EnsureExists(ctx, name)
}

// Append stores r and caches it as the latest reading.
func (s *CachedStore) Append(ctx context.Context, name string, r Reading) (Reading, error) {
	key, err := latestKey(name)
	if err != nil {
		return Reading{}, err
	}

	mu := s.fillLock(key)
	mu.Lock()
	defer mu.Unlock()

	stored, err := s.inner.Append(ctx, name, r)
	if err != nil {
		return Reading{}, err
	}
	s.put(ctx, key, stored)
	return stored, nil
}

// Latest returns the cached reading, or reads through on a miss.
func (s *CachedStore) Latest(ctx context.Context, name string) (Reading, error) {
	key, err := latestKey(name)
	if err != nil {
		return Reading{}, err
	}

	if r, ok := s.get(ctx, key); ok {
		return r, nil
	}

	mu := s.fillLock(key)
	mu.Lock()
	defer mu.Unlock()

	r, err := s.inner.Latest(ctx, name)
	if err != nil {
		return Reading{}, err
	}
	s.put(ctx, key, r)
	return r, nil
}

// History delegates to the wrapped store.
func (s *CachedStore) History(ctx context.Context, name, date string) ([]Reading, error) {
	return s.inner.History(ctx, name, date)
}

// Reset clears the store and its cached latest reading.
func (s *CachedStore) Reset(ctx context.Context, name string) error {
	key, err := latestKey(name)
	if err != nil {
		return err
	}

	mu := s.fillLock(key)
	mu.Lock()
	defer mu.Unlock()

	if err := s.inner.Reset(ctx, name); err != nil {
		return err
	}
	s.evict(ctx, key)
	return nil
}

// Drop removes the store and its cached latest reading.
func (s *CachedStore) Drop(ctx context.Context, name string) error {
	key, err := latestKey(name)
	if err != nil {
		return err
	}

	mu := s.fillLock(key)
	mu.Lock()
	defer mu.Unlock()

	if err := s.inner.Drop(ctx, name); err != nil {
		return err
	}
	s.evict(ctx, key)
	return nil
}

// HealthCheck checks the wrapped store only. A down cache degrades
// Latest but is not an outage.
func (s *CachedStore) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (s *CachedStore) get(ctx context.Context, key string) (Reading, bool) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Debug("cache read failed", "key", key, "error", err)
		}
		return Reading{}, false
	}

	var r Reading
	if err := json.Unmarshal(data, &r); err != nil {
		s.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		return Reading{}, false
	}
	return r, true
}

func (s *CachedStore) put(ctx context.Context, key string, r Reading) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, key, data); err != nil {
		s.logger.Debug("cache write failed", "key", key, "error", err)
	}
}

func (s *CachedStore) evict(ctx context.Context, key string) {
	if err := s.kv.Delete(ctx, key); err != nil {
		s.logger.Warn("cache evict failed", "key", key, "error", err)
	}
}

func (s *CachedStore) fillLock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key)) //nolint:errcheck // hash writes never fail
	return &s.fillLocks[h.Sum32()%fillLockStripes]
}

func latestKey(name string) (string, error) {
	valid, err := ident.Validate(name)
	if err != nil {
		return "", err
	}
	return latestKeyPrefix + strings.ToLower(valid), nil
}
