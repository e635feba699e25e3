package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gobeaver/beaver-trust/cache/driver"
)

// Global instance management
var (
	defaultCache Cache
	defaultOnce  sync.Once
	defaultErr   error
	defaultMu    sync.Mutex
)

// Common errors
var (
	ErrNotInitialized = errors.New("cache not initialized")
	ErrInvalidDriver  = errors.New("invalid cache driver")

	// ErrKeyNotFound is returned by Get on a miss, by every driver.
	ErrKeyNotFound = driver.ErrKeyNotFound
	// ErrCapacity is returned when a bounded memory store is full.
	ErrCapacity = driver.ErrCapacity
)

// New creates a cache for cfg.Driver ("memory" when empty).
func New(cfg Config) (Cache, error) {
	switch cfg.Driver {
	case "", "memory":
		return newMemory(cfg)
	case "redis":
		return newRedis(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDriver, cfg.Driver)
	}
}

// NewFromEnv creates a cache from BEAVER_CACHE_* variables.
func NewFromEnv() (Cache, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(*cfg)
}

// Init initializes the global cache with optional config.
func Init(configs ...Config) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = &configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultCache, defaultErr = New(*cfg)
	})

	return defaultErr
}

// Default returns the global cache, initializing it from the environment
// on first use.
func Default() (Cache, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCache == nil {
		return nil, ErrNotInitialized
	}
	return defaultCache, nil
}

// Reset closes and clears the global instance (for testing).
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultCache != nil {
		_ = defaultCache.Close()
	}
	defaultCache = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
