package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KeySize is the required HMAC key length.
const KeySize = 32

// Signature is a MAC plus the unix timestamp it was computed at. Nonce is
// set only for signatures produced by SignWithNonce.
type Signature struct {
	Signature string  `json:"signature"`
	Timestamp int64   `json:"timestamp"`
	Nonce     *string `json:"nonce"`
}

// Encode returns the JSON form used for transmission.
func (s Signature) Encode() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ParseSignature decodes the JSON form produced by Encode.
// signature and timestamp are required; nonce may be null or absent.
func ParseSignature(s string) (Signature, error) {
	var wire struct {
		Signature *string `json:"signature"`
		Timestamp *int64  `json:"timestamp"`
		Nonce     *string `json:"nonce"`
	}
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return Signature{}, ErrInvalidSignature
	}
	if wire.Signature == nil || wire.Timestamp == nil {
		return Signature{}, ErrInvalidSignature
	}
	return Signature{Signature: *wire.Signature, Timestamp: *wire.Timestamp, Nonce: wire.Nonce}, nil
}

// Verify checks the signature against message using the default signer's clock.
func (s Signature) Verify(message string, key []byte, maxAgeMinutes int64) (bool, error) {
	return defaultSigner.Verify(s, message, key, maxAgeMinutes)
}

// Signer computes and checks HMAC-SHA256 signatures. The zero value is not
// usable; create one with New. A Signer is safe for concurrent use.
type Signer struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger for verification outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(s *Signer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Signer backed by the cached wall clock.
func New(opts ...Option) *Signer {
	s := &Signer{
		now:    timecache.CachedTime,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSigner = New()

// Sign signs message with the current timestamp using the default signer.
func Sign(message string, key []byte) (Signature, error) {
	return defaultSigner.Sign(message, key)
}

// SignWithNonce signs message bound to nonce using the default signer.
func SignWithNonce(message string, key []byte, nonce string) (Signature, error) {
	return defaultSigner.SignWithNonce(message, key, nonce)
}

// QuickVerify checks a bare signature and timestamp using the default signer.
func QuickVerify(message, signature string, timestamp int64, key []byte, maxAgeMinutes int64) (bool, error) {
	return defaultSigner.QuickVerify(message, signature, timestamp, key, maxAgeMinutes)
}

// NewNonce returns a random UUIDv4 suitable for SignWithNonce.
func NewNonce() string {
	return uuid.NewString()
}

// Now returns the signer clock as unix seconds.
func (s *Signer) Now() int64 {
	return s.now().Unix()
}

// Sign computes base64(HMAC-SHA256(key, "{ts}.{message}")) at the current time.
func (s *Signer) Sign(message string, key []byte) (Signature, error) {
	ts := s.Now()
	mac, err := computeMAC(message, ts, key)
	if err != nil {
		return Signature{}, err
	}
	return Signature{Signature: mac, Timestamp: ts}, nil
}

// SignWithNonce signs "{message}:{ts}:{nonce}" and records the nonce in the
// result. The signer does not remember nonces; see ReplayGuard.
func (s *Signer) SignWithNonce(message string, key []byte, nonce string) (Signature, error) {
	ts := s.Now()
	mac, err := computeMAC(nonceMessage(message, ts, nonce), ts, key)
	if err != nil {
		return Signature{}, err
	}
	n := nonce
	return Signature{Signature: mac, Timestamp: ts, Nonce: &n}, nil
}

// Verify returns ErrSignatureExpired when sig is outside the window,
// otherwise whether the MAC matches message. Nonce signatures are checked
// against the nonce-bound message.
func (s *Signer) Verify(sig Signature, message string, key []byte, maxAgeMinutes int64) (bool, error) {
	if sig.Nonce != nil {
		message = nonceMessage(message, sig.Timestamp, *sig.Nonce)
	}
	return s.QuickVerify(message, sig.Signature, sig.Timestamp, key, maxAgeMinutes)
}

// QuickVerify checks signature for message at timestamp.
func (s *Signer) QuickVerify(message, signature string, timestamp int64, key []byte, maxAgeMinutes int64) (bool, error) {
	if !withinWindow(s.Now(), timestamp, maxAgeMinutes) {
		s.logger.Debug("signature outside replay window",
			zap.Int64("timestamp", timestamp), zap.Int64("max_age_minutes", maxAgeMinutes))
		return false, ErrSignatureExpired
	}

	expected, err := computeMAC(message, timestamp, key)
	if err != nil {
		return false, err
	}

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		s.logger.Debug("signature mismatch", zap.Int64("timestamp", timestamp))
		return false, nil
	}
	return true, nil
}

func computeMAC(message string, timestamp int64, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", ErrInvalidKey
	}

	h := hmac.New(sha256.New, key)
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte{'.'})
	h.Write([]byte(message))

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func nonceMessage(message string, timestamp int64, nonce string) string {
	return message + ":" + strconv.FormatInt(timestamp, 10) + ":" + nonce
}

// withinWindow reports |now-ts| <= maxAgeMinutes*60 without overflowing on
// hostile timestamps.
func withinWindow(now, ts, maxAgeMinutes int64) bool {
	if maxAgeMinutes < 0 {
		return false
	}
	if maxAgeMinutes > math.MaxInt64/60 {
		return true
	}
	window := uint64(maxAgeMinutes) * 60

	var age uint64
	if now >= ts {
		age = uint64(now) - uint64(ts)
	} else {
		age = uint64(ts) - uint64(now)
	}
	return age <= window
}
