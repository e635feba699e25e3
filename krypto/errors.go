package krypto

import "errors"

// Errors returned by the encryptor, the credential hasher and the keyring.
// Match them with errors.Is; most are wrapped with context.
var (
	ErrInvalidKeyLength  = errors.New("krypto: key must be exactly 32 bytes")
	ErrInvalidCiphertext = errors.New("krypto: invalid ciphertext format")
	ErrDecryptionFailed  = errors.New("krypto: decryption failed")

	ErrHashingFailed     = errors.New("krypto: hashing failed")
	ErrInvalidParameters = errors.New("krypto: invalid hashing parameters")
	ErrInvalidHash       = errors.New("krypto: invalid hash format")

	ErrInvalidKeyID = errors.New("krypto: invalid key id")
	ErrKeyNotFound  = errors.New("krypto: key not found")
	ErrKeyExists    = errors.New("krypto: key id already in use")
	ErrKeyActive    = errors.New("krypto: key is active")
	ErrNoActiveKey  = errors.New("krypto: no active key")

	ErrInvalidToken = errors.New("krypto: invalid access token")
)
