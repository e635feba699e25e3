package signer

import "errors"

// Define standard errors for the package
var (
	ErrInvalidKey         = errors.New("signer: key must be exactly 32 bytes")
	ErrInvalidSignature   = errors.New("signer: invalid signature format")
	ErrSignatureExpired   = errors.New("signer: signature has expired")
	ErrVerificationFailed = errors.New("signer: signature verification failed")
	ErrReplayedNonce      = errors.New("signer: nonce already used")
	ErrInvalidConfig      = errors.New("signer: invalid configuration")
	ErrNotInitialized     = errors.New("signer: service not initialized")
)
