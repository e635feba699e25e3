package krypto

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm identifies the primitive behind a CredentialHash.
type Algorithm int

const (
	// AlgorithmUnknown is the zero value and never verifies.
	AlgorithmUnknown Algorithm = iota
	// AlgorithmArgon2id is the memory-hard default.
	AlgorithmArgon2id
	// AlgorithmArgon2i is accepted for verification of stored hashes only.
	AlgorithmArgon2i
	// AlgorithmBcrypt is the legacy primitive for pre-existing hash stores.
	AlgorithmBcrypt
)

// String returns the PHC identifier of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmArgon2id:
		return "argon2id"
	case AlgorithmArgon2i:
		return "argon2i"
	case AlgorithmBcrypt:
		return "bcrypt"
	default:
		return "unknown"
	}
}

const (
	argon2Version = argon2.Version // 19

	// Ceilings shared by Validate and the PHC parser, so that every hash we
	// produce parses back and a hostile record cannot demand unbounded work.
	maxArgon2MemoryKiB  = 4 * 1024 * 1024
	maxArgon2Iterations = 1 << 16
	minArgon2KeyLength  = 4
	maxArgon2KeyLength  = 1024

	// MinBcryptCost and MaxBcryptCost bound the legacy work factor.
	MinBcryptCost = bcrypt.MinCost
	MaxBcryptCost = bcrypt.MaxCost
)

// Argon2Params are the tunable costs of the memory-hard hash.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns 64 MiB, 3 iterations, 4 lanes, 16-byte salt, 32-byte key.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate reports whether argon2 accepts the tuple.
func (p Argon2Params) Validate() error {
	switch {
	case p.Iterations < 1:
		return fmt.Errorf("%w: iterations must be at least 1", ErrInvalidParameters)
	case p.Iterations > maxArgon2Iterations:
		return fmt.Errorf("%w: iterations must be at most %d", ErrInvalidParameters, maxArgon2Iterations)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be at least 1", ErrInvalidParameters)
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return fmt.Errorf("%w: memory must be at least 8 KiB per lane", ErrInvalidParameters)
	case p.MemoryKiB > maxArgon2MemoryKiB:
		return fmt.Errorf("%w: memory must be at most %d KiB", ErrInvalidParameters, maxArgon2MemoryKiB)
	case p.SaltLength < 8:
		return fmt.Errorf("%w: salt must be at least 8 bytes", ErrInvalidParameters)
	case p.KeyLength < minArgon2KeyLength:
		return fmt.Errorf("%w: key length must be at least %d bytes", ErrInvalidParameters, minArgon2KeyLength)
	case p.KeyLength > maxArgon2KeyLength:
		return fmt.Errorf("%w: key length must be at most %d bytes", ErrInvalidParameters, maxArgon2KeyLength)
	}
	return nil
}

// CredentialHash is a self-describing password or secret hash.
// The encoded form is the only thing callers persist; the algorithm is
// determined once, at construction or parse time.
type CredentialHash struct {
	algorithm Algorithm
	encoded   string
}

// Algorithm returns the primitive that produced the hash.
func (h CredentialHash) Algorithm() Algorithm {
	return h.algorithm
}

// String returns the encoded hash for storage.
func (h CredentialHash) String() string {
	return h.encoded
}

// MarshalText implements encoding.TextMarshaler.
func (h CredentialHash) MarshalText() ([]byte, error) {
	if h.algorithm == AlgorithmUnknown {
		return nil, ErrInvalidHash
	}
	return []byte(h.encoded), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *CredentialHash) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashDefault hashes secret with argon2id and DefaultArgon2Params.
// A fresh salt is drawn per call, so equal inputs never share an encoding.
func HashDefault(secret string) CredentialHash {
	return hashArgon2id(secret, DefaultArgon2Params())
}

// HashWithParams hashes secret with argon2id and caller-tuned costs.
// Memory is in KiB. Returns ErrInvalidParameters (which also matches
// ErrHashingFailed) when argon2 would reject the tuple.
func HashWithParams(secret string, memoryKiB, iterations, parallelism uint32) (CredentialHash, error) {
	if parallelism > 255 {
		return CredentialHash{}, fmt.Errorf("%w: %w: parallelism %d exceeds 255", ErrHashingFailed, ErrInvalidParameters, parallelism)
	}

	p := DefaultArgon2Params()
	p.MemoryKiB = memoryKiB
	p.Iterations = iterations
	p.Parallelism = uint8(parallelism)

	return HashArgon2(secret, p)
}

// HashArgon2 hashes secret with argon2id and the full parameter set.
func HashArgon2(secret string, p Argon2Params) (CredentialHash, error) {
	if err := p.Validate(); err != nil {
		return CredentialHash{}, fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}
	return hashArgon2id(secret, p), nil
}

func hashArgon2id(secret string, p Argon2Params) CredentialHash {
	salt := RandomBytes(int(p.SaltLength))
	key := argon2.IDKey([]byte(secret), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, p.MemoryKiB, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	return CredentialHash{algorithm: AlgorithmArgon2id, encoded: encoded}
}

// HashLegacy hashes secret with bcrypt at the given cost (4..31).
// Use it only to interoperate with existing bcrypt hash stores.
func HashLegacy(secret string, cost int) (CredentialHash, error) {
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		return CredentialHash{}, fmt.Errorf("%w: %w: bcrypt cost %d outside %d..%d",
			ErrHashingFailed, ErrInvalidParameters, cost, MinBcryptCost, MaxBcryptCost)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return CredentialHash{}, fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}

	return CredentialHash{algorithm: AlgorithmBcrypt, encoded: string(hashed)}, nil
}

// FromString parses a stored hash by its prefix:
// $argon2id$ and $argon2i$ for argon2, $2a$, $2b$ and $2y$ for bcrypt.
// Anything else fails with ErrInvalidHash. The body is validated lazily by Verify.
func FromString(s string) (CredentialHash, error) {
	var alg Algorithm
	switch {
	case strings.HasPrefix(s, "$argon2id$"):
		alg = AlgorithmArgon2id
	case strings.HasPrefix(s, "$argon2i$"):
		alg = AlgorithmArgon2i
	case strings.HasPrefix(s, "$2a$"), strings.HasPrefix(s, "$2b$"), strings.HasPrefix(s, "$2y$"):
		alg = AlgorithmBcrypt
	default:
		return CredentialHash{}, ErrInvalidHash
	}
	return CredentialHash{algorithm: alg, encoded: s}, nil
}

// Verify checks secret against the hash. A legitimate mismatch returns
// (false, nil); an unparseable encoding returns ErrInvalidHash. The
// comparison is constant-time and no input makes it panic.
func (h CredentialHash) Verify(secret string) (bool, error) {
	switch h.algorithm {
	case AlgorithmArgon2id, AlgorithmArgon2i:
		return h.verifyArgon2(secret)
	case AlgorithmBcrypt:
		return h.verifyBcrypt(secret)
	default:
		return false, ErrInvalidHash
	}
}

func (h CredentialHash) verifyArgon2(secret string) (bool, error) {
	ph, err := parsePHC(h.encoded, h.algorithm)
	if err != nil {
		return false, err
	}

	var computed []byte
	if h.algorithm == AlgorithmArgon2i {
		computed = argon2.Key([]byte(secret), ph.salt, ph.params.Iterations, ph.params.MemoryKiB, ph.params.Parallelism, uint32(len(ph.key)))
	} else {
		computed = argon2.IDKey([]byte(secret), ph.salt, ph.params.Iterations, ph.params.MemoryKiB, ph.params.Parallelism, uint32(len(ph.key)))
	}

	return subtle.ConstantTimeCompare(ph.key, computed) == 1, nil
}

func (h CredentialHash) verifyBcrypt(secret string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(h.encoded), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
}

// NeedsRehash reports whether the hash should be replaced on the next
// successful login: any non-argon2id hash, or argon2id weaker than p.
func (h CredentialHash) NeedsRehash(p Argon2Params) bool {
	if h.algorithm != AlgorithmArgon2id {
		return true
	}
	ph, err := parsePHC(h.encoded, h.algorithm)
	if err != nil {
		return true
	}
	return ph.params.MemoryKiB < p.MemoryKiB ||
		ph.params.Iterations < p.Iterations ||
		ph.params.Parallelism < p.Parallelism ||
		uint32(len(ph.key)) < p.KeyLength
}

type phcHash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

// parsePHC decodes $<alg>$v=19$m=..,t=..,p=..$<salt>$<hash>.
func parsePHC(encoded string, alg Algorithm) (phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != alg.String() {
		return phcHash{}, fmt.Errorf("%w: expected 6 fields", ErrInvalidHash)
	}

	if parts[2] != "v="+strconv.Itoa(argon2Version) {
		return phcHash{}, fmt.Errorf("%w: unsupported argon2 version %q", ErrInvalidHash, parts[2])
	}

	var ph phcHash
	seen := 0
	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return phcHash{}, fmt.Errorf("%w: malformed parameter %q", ErrInvalidHash, kv)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return phcHash{}, fmt.Errorf("%w: parameter %s: %v", ErrInvalidHash, name, err)
		}
		switch name {
		case "m":
			ph.params.MemoryKiB = uint32(n)
		case "t":
			ph.params.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return phcHash{}, fmt.Errorf("%w: parallelism %d exceeds 255", ErrInvalidHash, n)
			}
			ph.params.Parallelism = uint8(n)
		default:
			return phcHash{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, name)
		}
		seen++
	}
	if seen != 3 {
		return phcHash{}, fmt.Errorf("%w: expected m, t and p", ErrInvalidHash)
	}

	if ph.params.Iterations < 1 || ph.params.Iterations > maxArgon2Iterations ||
		ph.params.Parallelism < 1 ||
		ph.params.MemoryKiB < 8*uint32(ph.params.Parallelism) || ph.params.MemoryKiB > maxArgon2MemoryKiB {
		return phcHash{}, fmt.Errorf("%w: parameters out of range", ErrInvalidHash)
	}

	var err error
	if ph.salt, err = decodePHCBase64(parts[4]); err != nil || len(ph.salt) == 0 {
		return phcHash{}, fmt.Errorf("%w: bad salt encoding", ErrInvalidHash)
	}
	if ph.key, err = decodePHCBase64(parts[5]); err != nil {
		return phcHash{}, fmt.Errorf("%w: bad hash encoding", ErrInvalidHash)
	}
	if len(ph.key) < minArgon2KeyLength || len(ph.key) > maxArgon2KeyLength {
		return phcHash{}, fmt.Errorf("%w: hash length %d out of range", ErrInvalidHash, len(ph.key))
	}

	ph.params.SaltLength = uint32(len(ph.salt))
	ph.params.KeyLength = uint32(len(ph.key))
	return ph, nil
}

// decodePHCBase64 accepts unpadded (PHC) and padded standard base64.
func decodePHCBase64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
