package krypto

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// keyringSeparator splits the key id from the encrypted token.
const keyringSeparator = "."

// keyEntry is one key version held by a Keyring.
type keyEntry struct {
	key       []byte
	createdAt time.Time
	enc       *Encryptor // built once per key
}

// Keyring maps key ids to 32-byte keys and tracks which one is active.
// New material is produced under the active key; older keys stay available
// for verification and decryption until removed. Safe for concurrent use.
type Keyring struct {
	mu     sync.RWMutex
	keys   map[string]*keyEntry
	active string
}

// NewKeyring creates an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]*keyEntry)}
}

// Add stores a copy of key under id. The first key added becomes active.
// Ids are never reused: adding an existing id fails with ErrKeyExists.
func (kr *Keyring) Add(id string, key []byte) error {
	if id == "" || strings.Contains(id, keyringSeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidKeyID, id)
	}
	enc, err := NewEncryptor(key)
	if err != nil {
		return err
	}

	kr.mu.Lock()
	defer kr.mu.Unlock()

	if _, exists := kr.keys[id]; exists {
		return fmt.Errorf("%w: %q", ErrKeyExists, id)
	}
	kr.keys[id] = &keyEntry{
		key:       append([]byte(nil), key...),
		createdAt: timecache.CachedTime().UTC(),
		enc:       enc,
	}
	if kr.active == "" {
		kr.active = id
	}
	return nil
}

// Rotate generates a new random key, stores it under a fresh id and makes it active.
func (kr *Keyring) Rotate() (string, error) {
	id := "k" + RandomHex(8)
	if err := kr.Add(id, GenerateKey()); err != nil {
		return "", err
	}
	if err := kr.SetActive(id); err != nil {
		return "", err
	}
	return id, nil
}

// SetActive makes id the key used for new tokens.
func (kr *Keyring) SetActive(id string) error {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	if _, ok := kr.keys[id]; !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	kr.active = id
	return nil
}

// Active returns the active key id and a copy of its bytes.
func (kr *Keyring) Active() (string, []byte, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	if kr.active == "" {
		return "", nil, ErrNoActiveKey
	}
	return kr.active, append([]byte(nil), kr.keys[kr.active].key...), nil
}

// Key returns a copy of the key stored under id.
func (kr *Keyring) Key(id string) ([]byte, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	entry, ok := kr.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	return append([]byte(nil), entry.key...), nil
}

// CreatedAt returns when id was added.
func (kr *Keyring) CreatedAt(id string) (time.Time, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	entry, ok := kr.keys[id]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	return entry.createdAt, nil
}

// Remove deletes a retired key. The active key cannot be removed.
func (kr *Keyring) Remove(id string) error {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	if _, ok := kr.keys[id]; !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	if id == kr.active {
		return fmt.Errorf("%w: %q", ErrKeyActive, id)
	}
	delete(kr.keys, id)
	return nil
}

// IDs returns every key id, sorted.
func (kr *Keyring) IDs() []string {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	ids := make([]string, 0, len(kr.keys))
	for id := range kr.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (kr *Keyring) encryptor(id string) (*Encryptor, bool) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	entry, ok := kr.keys[id]
	if !ok {
		return nil, false
	}
	return entry.enc, true
}

// KeyringEncryptor implements Cipher over a Keyring. Tokens carry the id of
// the key that sealed them as "<key-id>.<token>", so rotating the active key
// does not invalidate tokens already issued.
type KeyringEncryptor struct {
	ring *Keyring
}

var _ Cipher = (*KeyringEncryptor)(nil)

// NewKeyringEncryptor wraps ring.
func NewKeyringEncryptor(ring *Keyring) *KeyringEncryptor {
	return &KeyringEncryptor{ring: ring}
}

// Encrypt seals plaintext under the active key.
func (ke *KeyringEncryptor) Encrypt(plaintext []byte) (string, error) {
	ke.ring.mu.RLock()
	id := ke.ring.active
	ke.ring.mu.RUnlock()
	if id == "" {
		return "", ErrNoActiveKey
	}

	enc, ok := ke.ring.encryptor(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	token, err := enc.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return id + keyringSeparator + token, nil
}

// EncryptString encrypts a string under the active key.
func (ke *KeyringEncryptor) EncryptString(plaintext string) (string, error) {
	return ke.Encrypt([]byte(plaintext))
}

// Decrypt opens a token with the key named in its prefix. An unknown key id
// fails the same way as a bad tag.
func (ke *KeyringEncryptor) Decrypt(token string) ([]byte, error) {
	id, inner, ok := strings.Cut(token, keyringSeparator)
	if !ok || id == "" {
		return nil, ErrInvalidCiphertext
	}
	enc, found := ke.ring.encryptor(id)
	if !found {
		return nil, ErrDecryptionFailed
	}
	return enc.Decrypt(inner)
}

// DecryptString decrypts a token and requires UTF-8 plaintext.
func (ke *KeyringEncryptor) DecryptString(token string) (string, error) {
	id, inner, ok := strings.Cut(token, keyringSeparator)
	if !ok || id == "" {
		return "", ErrInvalidCiphertext
	}
	enc, found := ke.ring.encryptor(id)
	if !found {
		return "", ErrDecryptionFailed
	}
	return enc.DecryptString(inner)
}
