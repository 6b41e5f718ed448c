package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIsSaltedPerCall(t *testing.T) {
	hasher := NewHasher(16)

	first, err := hasher.Hash("Str0ng!Pass")
	require.NoError(t, err)
	second, err := hasher.Hash("Str0ng!Pass")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("Str0ng!Pass", first))
	assert.True(t, hasher.Verify("Str0ng!Pass", second))
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	hasher := NewHasher(16)

	encoded, err := hasher.Hash("correct horse")
	require.NoError(t, err)

	assert.False(t, hasher.Verify("battery staple", encoded))
	assert.False(t, hasher.Verify("", encoded))
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	hasher := NewHasher(16)

	for _, encoded := range []string{
		"",
		"not a hash",
		"$argon2id$v=19$m=65536,t=3,p=2$salt",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdHNhbHQ$ZGlnZXN0",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdHNhbHQ$ZGlnZXN0",
		"$argon2id$v=19$m=0,t=3,p=2$c2FsdHNhbHQ$ZGlnZXN0",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$ZGlnZXN0",
	} {
		assert.False(t, hasher.Verify("whatever", encoded), encoded)
	}
}

func TestEncodedFormCarriesParameters(t *testing.T) {
	hasher := NewHasher(32)

	encoded, err := hasher.Hash("Str0ng!Pass")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=3,p=2$"))
	assert.Equal(t, 6, len(strings.Split(encoded, "$")))

	// A hasher with a different digest length still verifies old hashes.
	other := NewHasher(16)
	assert.True(t, other.Verify("Str0ng!Pass", encoded))
}

func TestNewHasherDefaultsHashLength(t *testing.T) {
	hasher := NewHasher(0)

	encoded, err := hasher.Hash("pw")
	require.NoError(t, err)
	assert.True(t, hasher.Verify("pw", encoded))
}
