package krypto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastParams keeps argon2 cheap enough for unit tests.
func fastParams() Argon2Params {
	return Argon2Params{
		MemoryKiB:   64,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashDefault(t *testing.T) {
	h := HashDefault("correct horse")

	assert.Equal(t, AlgorithmArgon2id, h.Algorithm())
	assert.True(t, strings.HasPrefix(h.String(), "$argon2id$v=19$m=65536,t=3,p=4$"), h.String())

	ok, err := h.Verify("correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong horse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashArgon2_SaltedPerCall(t *testing.T) {
	a, err := HashArgon2("secret", fastParams())
	require.NoError(t, err)
	b, err := HashArgon2("secret", fastParams())
	require.NoError(t, err)

	assert.NotEqual(t, a.String(), b.String())

	for _, h := range []CredentialHash{a, b} {
		ok, err := h.Verify("secret")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestHashWithParams(t *testing.T) {
	tests := []struct {
		name        string
		memoryKiB   uint32
		iterations  uint32
		parallelism uint32
		wantErr     bool
	}{
		{name: "minimal valid", memoryKiB: 64, iterations: 1, parallelism: 1},
		{name: "two lanes", memoryKiB: 128, iterations: 2, parallelism: 2},
		{name: "zero iterations", memoryKiB: 64, iterations: 0, parallelism: 1, wantErr: true},
		{name: "zero parallelism", memoryKiB: 64, iterations: 1, parallelism: 0, wantErr: true},
		{name: "memory below lanes", memoryKiB: 4, iterations: 1, parallelism: 1, wantErr: true},
		{name: "parallelism overflow", memoryKiB: 64 * 256, iterations: 1, parallelism: 256, wantErr: true},
		{name: "iterations at ceiling", memoryKiB: 8, iterations: maxArgon2Iterations, parallelism: 1},
		{name: "iterations above ceiling", memoryKiB: 8, iterations: maxArgon2Iterations + 1, parallelism: 1, wantErr: true},
		{name: "memory above ceiling", memoryKiB: maxArgon2MemoryKiB + 1, iterations: 1, parallelism: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := HashWithParams("pw", tt.memoryKiB, tt.iterations, tt.parallelism)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrHashingFailed)
				assert.ErrorIs(t, err, ErrInvalidParameters)
				return
			}
			require.NoError(t, err)

			ok, err := h.Verify("pw")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestArgon2ParamsValidateCeilings(t *testing.T) {
	atCeiling := fastParams()
	atCeiling.MemoryKiB = maxArgon2MemoryKiB
	atCeiling.KeyLength = maxArgon2KeyLength
	require.NoError(t, atCeiling.Validate())

	tooLong := fastParams()
	tooLong.KeyLength = maxArgon2KeyLength + 1
	assert.ErrorIs(t, tooLong.Validate(), ErrInvalidParameters)

	// Whatever Validate accepts must parse back.
	h, err := HashArgon2("pw", func() Argon2Params {
		p := fastParams()
		p.KeyLength = maxArgon2KeyLength
		return p
	}())
	require.NoError(t, err)
	parsed, err := FromString(h.String())
	require.NoError(t, err)
	ok, err := parsed.Verify("pw")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashLegacy(t *testing.T) {
	h, err := HashLegacy("legacy-pw", MinBcryptCost)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmBcrypt, h.Algorithm())
	assert.True(t, strings.HasPrefix(h.String(), "$2a$04$"), h.String())

	ok, err := h.Verify("legacy-pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("other")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, cost := range []int{MinBcryptCost - 1, MaxBcryptCost + 1} {
		_, err := HashLegacy("pw", cost)
		assert.ErrorIs(t, err, ErrInvalidParameters, "cost %d", cost)
	}
}

func TestFromString_RoundTrip(t *testing.T) {
	argon, err := HashArgon2("pw", fastParams())
	require.NoError(t, err)
	legacy, err := HashLegacy("pw", MinBcryptCost)
	require.NoError(t, err)

	for _, original := range []CredentialHash{argon, legacy} {
		parsed, err := FromString(original.String())
		require.NoError(t, err)
		assert.Equal(t, original.Algorithm(), parsed.Algorithm())
		assert.Equal(t, original.String(), parsed.String())

		ok, err := parsed.Verify("pw")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestFromString_Prefixes(t *testing.T) {
	tests := []struct {
		encoded string
		want    Algorithm
		wantErr bool
	}{
		{encoded: "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA", want: AlgorithmArgon2id},
		{encoded: "$argon2i$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA", want: AlgorithmArgon2i},
		{encoded: "$2a$10$abcdefghijklmnopqrstuv", want: AlgorithmBcrypt},
		{encoded: "$2b$10$abcdefghijklmnopqrstuv", want: AlgorithmBcrypt},
		{encoded: "$2y$10$abcdefghijklmnopqrstuv", want: AlgorithmBcrypt},
		{encoded: "$argon2d$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA", wantErr: true},
		{encoded: "$scrypt$ln=15,r=8,p=1$c2FsdA$aGFzaA", wantErr: true},
		{encoded: "plaintext-password", wantErr: true},
		{encoded: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			h, err := FromString(tt.encoded)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHash)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Algorithm())
		})
	}
}

func TestVerify_MalformedNeverPanics(t *testing.T) {
	const salt = "c2FsdHNhbHRzYWx0c2FsdA"
	const key = "aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"

	malformed := []string{
		"$argon2id$",
		"$argon2id$v=19",
		"$argon2id$v=19$m=64,t=1,p=1$" + salt,
		"$argon2id$v=19$m=64,t=1,p=1$" + salt + "$",
		"$argon2id$v=19$m=64,t=1,p=1$$" + key,
		"$argon2id$v=19$m=64,t=1,p=1$" + salt + "$" + key + "$extra",
		"$argon2id$v=16$m=64,t=1,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=64,t=0,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=64,t=1,p=0$" + salt + "$" + key,
		"$argon2id$v=19$m=64,t=1,p=256$" + salt + "$" + key,
		"$argon2id$v=19$m=0,t=1,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=99999999999,t=1,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=4294967295,t=1,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=64,t=4294967295,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=64,t=1$" + salt + "$" + key,
		"$argon2id$v=19$m=64,t=1,p=1,x=2$" + salt + "$" + key,
		"$argon2id$v=19$m=64;t=1;p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=-1,t=1,p=1$" + salt + "$" + key,
		"$argon2id$v=19$m=64,t=1,p=1$!!!!$" + key,
		"$argon2id$v=19$m=64,t=1,p=1$" + salt + "$!!!!",
		"$argon2id$v=19$m=64,t=1,p=1$" + salt + "$aGk",
		"$argon2i$v=19$m=64,t=1,p=1$" + salt,
		"$2a$10$tooshort",
		"$2b$",
		"$2y$99$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvwxyz01234",
	}

	for _, encoded := range malformed {
		t.Run(encoded, func(t *testing.T) {
			h, err := FromString(encoded)
			require.NoError(t, err, "prefix is recognised")

			assert.NotPanics(t, func() {
				ok, err := h.Verify("anything")
				assert.False(t, ok)
				assert.ErrorIs(t, err, ErrInvalidHash)
			})
		})
	}
}

func TestVerify_ZeroValue(t *testing.T) {
	var h CredentialHash
	ok, err := h.Verify("pw")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestNeedsRehash(t *testing.T) {
	weak, err := HashArgon2("pw", fastParams())
	require.NoError(t, err)
	legacy, err := HashLegacy("pw", MinBcryptCost)
	require.NoError(t, err)

	assert.True(t, weak.NeedsRehash(DefaultArgon2Params()))
	assert.False(t, weak.NeedsRehash(fastParams()))
	assert.True(t, legacy.NeedsRehash(fastParams()))

	stronger := fastParams()
	stronger.Iterations = 2
	assert.True(t, weak.NeedsRehash(stronger))

	corrupt, err := FromString("$argon2id$garbage")
	require.NoError(t, err)
	assert.True(t, corrupt.NeedsRehash(fastParams()))
}

func TestCredentialHash_TextMarshaling(t *testing.T) {
	h, err := HashArgon2("pw", fastParams())
	require.NoError(t, err)

	type record struct {
		Password CredentialHash `json:"password"`
	}

	data, err := json.Marshal(record{Password: h})
	require.NoError(t, err)

	var decoded record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h, decoded.Password)

	ok, err := decoded.Password.Verify("pw")
	require.NoError(t, err)
	assert.True(t, ok)

	err = json.Unmarshal([]byte(`{"password":"md5:abc"}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = json.Marshal(record{})
	assert.Error(t, err)
}

func TestAlgorithm_String(t *testing.T) {
	assert.Equal(t, "argon2id", AlgorithmArgon2id.String())
	assert.Equal(t, "argon2i", AlgorithmArgon2i.String())
	assert.Equal(t, "bcrypt", AlgorithmBcrypt.String())
	assert.Equal(t, "unknown", AlgorithmUnknown.String())
}
