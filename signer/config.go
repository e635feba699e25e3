package signer

import (
	"fmt"
	"sync"

	"github.com/gobeaver/beaver-trust/config"
	"github.com/gobeaver/beaver-trust/krypto"
)

// Config defines the signer configuration, read from BEAVER_TRUST_SIGNER_*.
type Config struct {
	// SecretKey is the shared HMAC key, base64 or hex, 32 bytes decoded
	SecretKey string `env:"TRUST_SIGNER_SECRET_KEY,required,secret"`

	// MaxAgeMinutes is the replay window used by Keyed
	MaxAgeMinutes int64 `env:"TRUST_SIGNER_MAX_AGE_MINUTES,default:5"`
}

// Global instance management
var (
	defaultInstance *Keyed
	defaultOnce     sync.Once
	defaultErr      error
)

// GetConfig returns config loaded from environment.
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init initializes the global instance with optional config.
func Init(configs ...Config) error {
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

		defaultInstance, defaultErr = NewKeyed(*cfg)
	})

	return defaultErr
}

// Service returns the global instance, or ErrNotInitialized when Init failed
// or was never called and the environment holds no usable key.
func Service() (*Keyed, error) {
	if defaultInstance == nil {
		if err := Init(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotInitialized, err)
		}
	}
	return defaultInstance, nil
}

// Reset clears the global instance (for testing).
func Reset() {
	defaultInstance = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// Keyed binds a Signer to one key and one replay window.
type Keyed struct {
	signer *Signer
	key    []byte
	maxAge int64
}

// NewKeyed validates cfg and decodes its key.
func NewKeyed(cfg Config, opts ...Option) (*Keyed, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: secret key required", ErrInvalidConfig)
	}
	key, err := krypto.DecodeKey(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: secret key must decode to %d bytes", ErrInvalidConfig, KeySize)
	}
	if cfg.MaxAgeMinutes < 0 {
		return nil, fmt.Errorf("%w: max age must not be negative", ErrInvalidConfig)
	}

	return &Keyed{signer: New(opts...), key: key, maxAge: cfg.MaxAgeMinutes}, nil
}

// MaxAgeMinutes returns the configured window.
func (k *Keyed) MaxAgeMinutes() int64 {
	return k.maxAge
}

// Signer returns the underlying signer.
func (k *Keyed) Signer() *Signer {
	return k.signer
}

// Sign signs message with the bound key.
func (k *Keyed) Sign(message string) (Signature, error) {
	return k.signer.Sign(message, k.key)
}

// SignWithNonce signs message with a fresh random nonce.
func (k *Keyed) SignWithNonce(message string) (Signature, error) {
	return k.signer.SignWithNonce(message, k.key, NewNonce())
}

// Verify checks sig within the configured window.
func (k *Keyed) Verify(sig Signature, message string) (bool, error) {
	return k.signer.Verify(sig, message, k.key, k.maxAge)
}

// Authenticate is Verify with a mismatch reported as ErrVerificationFailed,
// for callers that only branch on error.
func (k *Keyed) Authenticate(sig Signature, message string) error {
	ok, err := k.Verify(sig, message)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVerificationFailed
	}
	return nil
}

// SignRequest signs r with the bound key.
func (k *Keyed) SignRequest(r SignedRequest) (SignedRequest, error) {
	return r.Sign(k.key)
}

// VerifyRequest checks r within the configured window.
func (k *Keyed) VerifyRequest(r SignedRequest) (bool, error) {
	return k.signer.VerifyRequest(r, k.key, k.maxAge)
}

// CreateSignedURL signs path and params with the bound key.
func (k *Keyed) CreateSignedURL(path string, params []Param) (string, error) {
	return k.signer.CreateSignedURL(path, params, k.key)
}

// VerifySignedURL checks a signed query within the configured window.
func (k *Keyed) VerifySignedURL(path, queryWithSignature string) (bool, error) {
	return k.signer.VerifySignedURL(path, queryWithSignature, k.key, k.maxAge)
}
