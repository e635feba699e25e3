package krypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// KeySize is the only symmetric key length accepted by the encryptor and signer.
const KeySize = 32

const (
	alphanumericCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	digitCharset        = "0123456789"
)

// RandomBytes returns n bytes from the operating system CSPRNG.
// A failing OS random source is unrecoverable and panics.
func RandomBytes(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return b
}

// randomFromCharset draws each character uniformly from charset.
func randomFromCharset(n int, charset string) string {
	if n <= 0 {
		return ""
	}
	charsetLen := big.NewInt(int64(len(charset)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out)
}

// RandomAlphanumeric returns n characters drawn from A-Z, a-z and 0-9.
func RandomAlphanumeric(n int) string {
	return randomFromCharset(n, alphanumericCharset)
}

// RandomDigits returns exactly n ASCII digits, suitable for numeric OTPs.
func RandomDigits(n int) string {
	return randomFromCharset(n, digitCharset)
}

// GenerateOTP generates a numeric one-time password of the given length.
func GenerateOTP(length int) string {
	return RandomDigits(length)
}

// RandomHex returns n random bytes hex encoded (2n characters).
func RandomHex(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}

// GenerateKey returns a fresh 32-byte symmetric key.
func GenerateKey() []byte {
	return RandomBytes(KeySize)
}

// GenerateKeyBase64 returns a fresh 32-byte key, standard base64 encoded.
func GenerateKeyBase64() string {
	return base64.StdEncoding.EncodeToString(GenerateKey())
}

// GenerateKeyHex returns a fresh 32-byte key, hex encoded.
func GenerateKeyHex() string {
	return hex.EncodeToString(GenerateKey())
}

// GenerateAESKey returns a base64 encoded AES key of 16, 24 or 32 bytes.
func GenerateAESKey(keySize int) (string, error) {
	if keySize != 16 && keySize != 24 && keySize != 32 {
		return "", fmt.Errorf("invalid key size: must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256")
	}
	return base64.StdEncoding.EncodeToString(RandomBytes(keySize)), nil
}

// DecodeKey accepts a standard base64 or hex encoded 32-byte key.
func DecodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if key, err := base64.StdEncoding.DecodeString(encoded); err == nil && len(key) == KeySize {
		return key, nil
	}
	if key, err := hex.DecodeString(encoded); err == nil && len(key) == KeySize {
		return key, nil
	}
	return nil, ErrInvalidKeyLength
}

// GenerateSecureToken generates length random bytes and returns them hex encoded.
func GenerateSecureToken(length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("invalid token length: %d", length)
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateToken64 returns 64 hex characters built from two random UUIDs.
func GenerateToken64() string {
	return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
}
