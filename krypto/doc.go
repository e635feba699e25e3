// Package krypto provides the symmetric trust primitives of beaver-trust:
// secure random generation, credential hashing, authenticated encryption of
// opaque tokens, a keyring for key rotation and HS256 access tokens.
//
// Every engine takes its key material from the caller. Nothing in this
// package reads the environment, persists keys or hashes, or logs secrets.
//
// # Secure Random Generation
//
// Randomness comes from the operating system CSPRNG. A failing source is
// treated as unrecoverable and panics rather than returning an error:
//
//	key := krypto.GenerateKey()        // 32 random bytes
//	otp := krypto.RandomDigits(6)      // e.g. "042917"
//	id := krypto.RandomAlphanumeric(16)
//	apiKey := krypto.RandomHex(32)     // 64 hex characters
//
// # Credential Hashing
//
// Argon2id is the default; bcrypt is available for existing hash stores.
// Stored hashes are self-describing, so verification never needs to know
// which algorithm produced them:
//
//	h := krypto.HashDefault("userPassword123")
//	stored := h.String() // $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
//
//	parsed, err := krypto.FromString(stored)
//	if err != nil {
//	    return err // ErrInvalidHash: corrupted record
//	}
//	ok, err := parsed.Verify("userPassword123")
//
//	// Upgrade old hashes after a successful login
//	if ok && parsed.NeedsRehash(krypto.DefaultArgon2Params()) {
//	    stored = krypto.HashDefault("userPassword123").String()
//	}
//
// Hashing is deliberately expensive. Servers should route it through a
// HashPool, which bounds concurrency and lets a caller stop waiting on a
// deadline while the computation itself runs to completion:
//
//	pool, _ := krypto.NewHashPool(krypto.WithPoolSize(4))
//	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
//	defer cancel()
//	ok, err := pool.Verify(ctx, password, stored)
//
// # Authenticated Encryption
//
// AES-256-GCM with a random 96-bit nonce per call. The token is
// base64(nonce || ciphertext || tag) and carries everything needed to decrypt:
//
//	enc, err := krypto.NewEncryptor(key) // ErrInvalidKeyLength unless 32 bytes
//	token, err := enc.EncryptString("sensitive data")
//	plain, err := enc.DecryptString(token)
//
// Decrypt reports ErrInvalidCiphertext for malformed input and
// ErrDecryptionFailed for everything that fails authentication. A tampered
// token and a wrong key are deliberately indistinguishable.
//
// # Key Rotation
//
// A Keyring maps key ids to keys. KeyringEncryptor prefixes each token with
// the id of the key that sealed it, so rotating never breaks issued tokens:
//
//	ring := krypto.NewKeyring()
//	_ = ring.Add("2024-01", oldKey)
//	newID, _ := ring.Rotate()
//	tokens := krypto.NewKeyringEncryptor(ring)
//
// # Thread Safety
//
// Encryptor, Keyring, KeyringEncryptor, HashPool and TokenIssuer are safe for
// concurrent use. CredentialHash is an immutable value.
package krypto
