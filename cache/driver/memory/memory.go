// Package memory is an in-process cache backend with per-key TTL.
// It is suited to a single verifier instance; use the redis backend when
// several instances must share seen nonces.
package memory

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/beaver-trust/cache/driver"
)

type entry struct {
	value     []byte
	expiresAt int64 // unix nanos, 0 = never
}

func (e *entry) expired(now int64) bool {
	return e.expiresAt > 0 && now > e.expiresAt
}

// Store implements cache.Cache over a mutex-guarded map.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	size       int64
	maxSize    int64
	maxKeys    int
	defaultTTL time.Duration
	prefix     string
	now        func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// Config holds memory backend settings. Zero limits mean unbounded.
type Config struct {
	MaxSize         int64
	MaxKeys         int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	KeyPrefix       string
	Namespace       string
}

// New creates a store and starts its expiry sweeper.
func New(cfg Config) (*Store, error) {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	s := &Store{
		entries:    make(map[string]*entry),
		maxSize:    cfg.MaxSize,
		maxKeys:    cfg.MaxKeys,
		defaultTTL: cfg.DefaultTTL,
		prefix:     driver.JoinPrefix(cfg.Namespace, cfg.KeyPrefix),
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go s.sweep(cfg.CleanupInterval)

	return s, nil
}

// Get returns a copy of the value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[s.prefix+key]
	if !ok || e.expired(s.now().UnixNano()) {
		return nil, driver.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores value at key. A zero ttl falls back to the default TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.put(s.prefix+key, value, ttl)
}

// SetNX stores value only when key is absent or expired, atomically.
func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullKey := s.prefix + key
	if e, ok := s.entries[fullKey]; ok && !e.expired(s.now().UnixNano()) {
		return false, nil
	}
	if err := s.put(fullKey, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// put must be called with mu held.
func (s *Store) put(fullKey string, value []byte, ttl time.Duration) error {
	now := s.now().UnixNano()
	old, exists := s.entries[fullKey]
	if exists && old.expired(now) {
		s.removeLocked(fullKey)
		exists = false
	}

	if s.maxKeys > 0 && !exists && len(s.entries) >= s.maxKeys {
		return driver.ErrCapacity
	}

	newSize := s.size + int64(len(value))
	if exists {
		newSize -= int64(len(old.value))
	}
	if s.maxSize > 0 && newSize > s.maxSize {
		return driver.ErrCapacity
	}

	if ttl == 0 {
		ttl = s.defaultTTL
	}
	var expiresAt int64
	if ttl > 0 && int64(ttl) <= math.MaxInt64-now {
		expiresAt = now + int64(ttl)
	}

	s.entries[fullKey] = &entry{value: append([]byte(nil), value...), expiresAt: expiresAt}
	s.size = newSize
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(s.prefix + key)
	return nil
}

// Exists reports whether key holds a live value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[s.prefix+key]
	return ok && !e.expired(s.now().UnixNano()), nil
}

// Clear removes every key under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.entries {
		if strings.HasPrefix(k, s.prefix) {
			s.removeLocked(k)
		}
	}
	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) removeLocked(fullKey string) {
	if e, ok := s.entries[fullKey]; ok {
		s.size -= int64(len(e.value))
		delete(s.entries, fullKey)
	}
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixNano()
	for k, e := range s.entries {
		if e.expired(now) {
			s.removeLocked(k)
		}
	}
}
