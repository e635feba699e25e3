package krypto

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher hashes and verifies credentials without the caller knowing
// which algorithm produced a stored hash.
type PasswordHasher interface {
	Hash(ctx context.Context, secret string) (CredentialHash, error)
	Verify(ctx context.Context, secret, encoded string) (bool, error)
}

// HashPool runs argon2 and bcrypt work on a bounded number of goroutines so
// that a burst of logins cannot starve unrelated requests.
//
// A computation that has started always runs to completion and holds its
// slot until then. ctx bounds only the wait: if it ends first the caller gets
// ctx.Err() and the result is discarded.
type HashPool struct {
	sem    *semaphore.Weighted
	size   int64
	params Argon2Params
	logger *zap.Logger
}

var _ PasswordHasher = (*HashPool)(nil)

// HashPoolOption configures a HashPool.
type HashPoolOption func(*HashPool)

// WithPoolSize sets the number of concurrent computations. Values below 1 are ignored.
func WithPoolSize(n int) HashPoolOption {
	return func(p *HashPool) {
		if n > 0 {
			p.size = int64(n)
		}
	}
}

// WithArgon2Params sets the parameters used by Hash.
func WithArgon2Params(params Argon2Params) HashPoolOption {
	return func(p *HashPool) {
		p.params = params
	}
}

// WithLogger attaches a logger. Secrets are never logged.
func WithLogger(l *zap.Logger) HashPoolOption {
	return func(p *HashPool) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewHashPool creates a pool sized to runtime.NumCPU() unless overridden.
func NewHashPool(opts ...HashPoolOption) (*HashPool, error) {
	p := &HashPool{
		size:   int64(runtime.NumCPU()),
		params: DefaultArgon2Params(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.params.Validate(); err != nil {
		return nil, err
	}
	p.sem = semaphore.NewWeighted(p.size)
	return p, nil
}

// Size returns the concurrency limit.
func (p *HashPool) Size() int {
	return int(p.size)
}

// Hash computes an argon2id hash with the pool parameters.
func (p *HashPool) Hash(ctx context.Context, secret string) (CredentialHash, error) {
	type result struct {
		hash CredentialHash
		err  error
	}
	res, err := run(ctx, p, "hash", func() result {
		h, err := HashArgon2(secret, p.params)
		return result{hash: h, err: err}
	})
	if err != nil {
		return CredentialHash{}, err
	}
	return res.hash, res.err
}

// Verify parses encoded and checks secret against it.
func (p *HashPool) Verify(ctx context.Context, secret, encoded string) (bool, error) {
	h, err := FromString(encoded)
	if err != nil {
		return false, err
	}

	type result struct {
		ok  bool
		err error
	}
	res, err := run(ctx, p, "verify", func() result {
		ok, err := h.Verify(secret)
		return result{ok: ok, err: err}
	})
	if err != nil {
		return false, err
	}
	if res.err != nil {
		p.logger.Warn("stored credential hash is unreadable",
			zap.Stringer("algorithm", h.Algorithm()), zap.Error(res.err))
	}
	return res.ok, res.err
}

// run acquires a slot, starts fn on its own goroutine and waits for either
// its result or ctx.
func run[T any](ctx context.Context, p *HashPool, op string, fn func() T) (T, error) {
	var zero T

	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.logger.Debug("hash pool wait abandoned", zap.String("op", op), zap.Error(err))
		return zero, err
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		p.logger.Debug("hash pool saturated", zap.String("op", op), zap.Duration("waited", waited))
	}

	done := make(chan T, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn()
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		p.logger.Debug("hash pool caller gave up; computation continues", zap.String("op", op))
		return zero, ctx.Err()
	}
}
