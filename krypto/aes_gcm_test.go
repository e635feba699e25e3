package krypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNewEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{
			name:    "valid key (32 bytes)",
			key:     bytes.Repeat([]byte("a"), 32),
			wantErr: false,
		},
		{
			name:    "AES-128 sized key rejected",
			key:     bytes.Repeat([]byte("a"), 16),
			wantErr: true,
		},
		{
			name:    "invalid key size",
			key:     []byte("too-short"),
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncryptor(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEncryptor() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidKeyLength) {
				t.Errorf("NewEncryptor() error = %v, want ErrInvalidKeyLength", err)
			}
			if !tt.wantErr && enc == nil {
				t.Error("NewEncryptor() returned nil encryptor with no error")
			}
		})
	}
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor(bytes.Repeat([]byte("a"), 32))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "normal text", data: []byte("hello world")},
		{name: "empty data", data: []byte{}},
		{name: "binary data", data: []byte{0xFF, 0x00, 0xFE, 0x01}},
		{name: "large payload", data: bytes.Repeat([]byte("0123456789abcdef"), 64*1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := enc.Encrypt(tt.data)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			raw, err := base64.StdEncoding.DecodeString(token)
			if err != nil {
				t.Fatalf("Encrypt() returned invalid base64: %v", err)
			}
			if len(raw) != NonceSize+len(tt.data)+TagSize {
				t.Errorf("decoded token length = %d, want %d", len(raw), NonceSize+len(tt.data)+TagSize)
			}

			plaintext, err := enc.Decrypt(token)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(plaintext, tt.data) {
				t.Errorf("Decrypt() got %d bytes, want %d", len(plaintext), len(tt.data))
			}
		})
	}
}

func TestEncryptor_StringRoundTrip(t *testing.T) {
	enc, err := NewEncryptor(bytes.Repeat([]byte("a"), 32))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	for _, plaintext := range []string{"hello world", "", "Hello, 世界"} {
		token, err := enc.EncryptString(plaintext)
		if err != nil {
			t.Fatalf("EncryptString(%q) error = %v", plaintext, err)
		}
		got, err := enc.DecryptString(token)
		if err != nil {
			t.Fatalf("DecryptString() error = %v", err)
		}
		if got != plaintext {
			t.Errorf("DecryptString() = %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptor_ZeroKeyHello(t *testing.T) {
	enc, err := NewEncryptor(make([]byte, 32))
	if err != nil {
		t.Fatalf("Failed to create encryptor: %v", err)
	}

	token, err := enc.EncryptString("hello")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if len(token) < 40 {
		t.Errorf("token length = %d, want at least 40", len(token))
	}

	got, err := enc.DecryptString(token)
	if err != nil || got != "hello" {
		t.Errorf("DecryptString() = %q, %v; want hello", got, err)
	}
}

func TestEncryptor_NonDeterministic(t *testing.T) {
	enc, _ := NewEncryptor(bytes.Repeat([]byte("k"), 32))

	first, _ := enc.EncryptString("same input")
	second, _ := enc.EncryptString("same input")
	if first == second {
		t.Fatal("two encryptions of the same plaintext produced the same token")
	}

	for _, token := range []string{first, second} {
		if got, err := enc.DecryptString(token); err != nil || got != "same input" {
			t.Errorf("DecryptString() = %q, %v", got, err)
		}
	}
}

func TestEncryptor_TamperDetection(t *testing.T) {
	enc, _ := NewEncryptor(bytes.Repeat([]byte("k"), 32))

	token, err := enc.EncryptString("transfer 100 to acct")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(token)

	for i := 0; i < len(raw); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit

			_, err := enc.Decrypt(base64.StdEncoding.EncodeToString(tampered))
			if !errors.Is(err, ErrDecryptionFailed) {
				t.Fatalf("byte %d bit %d: Decrypt() error = %v, want ErrDecryptionFailed", i, bit, err)
			}
		}
	}
}

func TestEncryptor_WrongKey(t *testing.T) {
	enc, _ := NewEncryptor(bytes.Repeat([]byte("a"), 32))
	other, _ := NewEncryptor(bytes.Repeat([]byte("b"), 32))

	token, _ := enc.EncryptString("secret")
	if _, err := other.DecryptString(token); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("DecryptString() with wrong key error = %v, want ErrDecryptionFailed", err)
	}
}

func TestEncryptor_DecryptInvalid(t *testing.T) {
	enc, _ := NewEncryptor(bytes.Repeat([]byte("a"), 32))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty token", token: "", wantErr: ErrInvalidCiphertext},
		{name: "invalid base64", token: "invalid-base64!", wantErr: ErrInvalidCiphertext},
		{name: "shorter than nonce plus tag", token: base64.StdEncoding.EncodeToString(make([]byte, MinTokenSize-1)), wantErr: ErrInvalidCiphertext},
		{name: "exactly nonce plus tag of garbage", token: base64.StdEncoding.EncodeToString(make([]byte, MinTokenSize)), wantErr: ErrDecryptionFailed},
		{name: "random bytes", token: base64.StdEncoding.EncodeToString(RandomBytes(64)), wantErr: ErrDecryptionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decrypt() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncryptor_DecryptStringRejectsNonUTF8(t *testing.T) {
	enc, _ := NewEncryptor(bytes.Repeat([]byte("a"), 32))

	token, _ := enc.Encrypt([]byte{0xff, 0xfe, 0xfd})
	if _, err := enc.DecryptString(token); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("DecryptString() error = %v, want ErrDecryptionFailed", err)
	}
	if b, err := enc.Decrypt(token); err != nil || len(b) != 3 {
		t.Errorf("Decrypt() = %v, %v", b, err)
	}
}

func TestEncryptor_Concurrent(t *testing.T) {
	enc, _ := NewEncryptor(bytes.Repeat([]byte("c"), 32))

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := strings.Repeat("x", i)
			token, err := enc.EncryptString(msg)
			if err != nil {
				errs <- err
				return
			}
			got, err := enc.DecryptString(token)
			if err != nil {
				errs <- err
				return
			}
			if got != msg {
				errs <- errors.New("round trip mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
