package signer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gobeaver/beaver-trust/cache"
	"github.com/gobeaver/beaver-trust/logger"
	"go.uber.org/zap"
)

const defaultNoncePrefix = "signer:nonce:"

// ReplayGuard verifies nonce signatures and claims each nonce in a shared
// cache so that a captured request cannot be replayed inside the window.
type ReplayGuard struct {
	signer *Signer
	store  cache.Cache
	prefix string
	logger *zap.Logger
}

// ReplayOption configures a ReplayGuard.
type ReplayOption func(*ReplayGuard)

// WithSigner sets the signer used for verification (and its clock).
func WithSigner(s *Signer) ReplayOption {
	return func(g *ReplayGuard) {
		if s != nil {
			g.signer = s
		}
	}
}

// WithNoncePrefix changes the cache key prefix for claimed nonces.
func WithNoncePrefix(prefix string) ReplayOption {
	return func(g *ReplayGuard) {
		g.prefix = prefix
	}
}

// WithReplayLogger attaches a logger.
func WithReplayLogger(l *zap.Logger) ReplayOption {
	return func(g *ReplayGuard) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewReplayGuard creates a guard over store.
func NewReplayGuard(store cache.Cache, opts ...ReplayOption) *ReplayGuard {
	g := &ReplayGuard{
		signer: defaultSigner,
		store:  store,
		prefix: defaultNoncePrefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NonceTTL is how long a claimed nonce is remembered: twice the window, so
// that skew in either direction is covered, and never less than a minute.
// Windows too large to express saturate at the longest Duration.
func NonceTTL(maxAgeMinutes int64) time.Duration {
	if maxAgeMinutes > math.MaxInt64/int64(2*time.Minute) {
		return time.Duration(math.MaxInt64)
	}
	ttl := time.Duration(2*maxAgeMinutes) * time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

// Verify checks sig like Signer.Verify and then claims its nonce.
// A signature without a nonce is rejected with ErrInvalidSignature, and a
// nonce seen before with ErrReplayedNonce. A MAC mismatch returns false
// without claiming anything.
func (g *ReplayGuard) Verify(ctx context.Context, sig Signature, message string, key []byte, maxAgeMinutes int64) (bool, error) {
	if sig.Nonce == nil || *sig.Nonce == "" {
		return false, fmt.Errorf("%w: nonce required", ErrInvalidSignature)
	}

	ok, err := g.signer.Verify(sig, message, key, maxAgeMinutes)
	if err != nil || !ok {
		return ok, err
	}

	claimed, err := g.store.SetNX(ctx, g.prefix+*sig.Nonce,
		[]byte(strconv.FormatInt(sig.Timestamp, 10)), NonceTTL(maxAgeMinutes))
	if err != nil {
		return false, fmt.Errorf("failed to record nonce: %w", err)
	}
	if !claimed {
		g.logger.Warn("replayed nonce rejected",
			logger.String("nonce", *sig.Nonce), zap.Int64("timestamp", sig.Timestamp))
		return false, ErrReplayedNonce
	}
	return true, nil
}
