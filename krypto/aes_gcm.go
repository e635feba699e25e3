package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

const (
	// NonceSize is the AES-GCM nonce length prepended to every token.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16
	// MinTokenSize is the smallest decodable token: nonce plus tag.
	MinTokenSize = NonceSize + TagSize
)

// Cipher defines the interface for authenticated encryption of opaque tokens.
// Tokens are self-contained strings safe to store or transmit.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(token string) ([]byte, error)
	EncryptString(plaintext string) (string, error)
	DecryptString(token string) (string, error)
}

// Encryptor implements Cipher with AES-256-GCM.
// Token layout: base64std(nonce[12] || ciphertext || tag[16]).
// An Encryptor is safe for concurrent use.
type Encryptor struct {
	gcm cipher.AEAD
}

var _ Cipher = (*Encryptor)(nil)

// NewEncryptor creates a new AES-256-GCM encryptor. The key must be 32 bytes.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

// Encrypt seals plaintext under a fresh random nonce. Two calls on the same
// plaintext never return the same token.
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := RandomBytes(NonceSize)

	// Seal appends ciphertext||tag after the nonce in one allocation
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	copy(out, nonce)
	out = e.gcm.Seal(out, nonce, plaintext, nil)

	return base64.StdEncoding.EncodeToString(out), nil
}

// EncryptString encrypts a string.
func (e *Encryptor) EncryptString(plaintext string) (string, error) {
	return e.Encrypt([]byte(plaintext))
}

// Decrypt opens a token produced by Encrypt.
//
// It returns ErrInvalidCiphertext when the token is not base64 or is shorter
// than MinTokenSize once decoded, and ErrDecryptionFailed when authentication
// fails. A tampered token and a wrong key produce the same error.
func (e *Encryptor) Decrypt(token string) ([]byte, error) {
	combined, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	if len(combined) < MinTokenSize {
		return nil, ErrInvalidCiphertext
	}

	plaintext, err := e.gcm.Open(nil, combined[:NonceSize], combined[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// DecryptString decrypts a token and requires the plaintext to be valid UTF-8.
func (e *Encryptor) DecryptString(token string) (string, error) {
	plaintext, err := e.Decrypt(token)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
