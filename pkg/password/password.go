package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Fixed Argon2id cost parameters, sized for interactive login latency.
const (
	memoryKiB   = 64 * 1024
	iterations  = 3
	parallelism = 2
	saltLength  = 16

	defaultHashLength = 16
)

// Hasher hashes and verifies passwords with Argon2id. The encoded form is a
// PHC-style string carrying algorithm, parameters, salt and digest, so stored
// hashes remain verifiable if the configured digest length changes.
type Hasher struct {
	hashLength uint32
}

// NewHasher returns a Hasher producing digests of hashLength bytes.
func NewHasher(hashLength int) *Hasher {
	if hashLength <= 0 {
		hashLength = defaultHashLength
	}
	return &Hasher{hashLength: uint32(hashLength)}
}

// Hash hashes a password with a fresh random salt. Hashing the same password
// twice yields two different strings.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt, iterations, memoryKiB, parallelism, h.hashLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memoryKiB,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// Verify reports whether password matches the encoded hash. Malformed hash
// strings verify as false rather than erroring.
func (h *Hasher) Verify(password, encoded string) bool {
	params, salt, expected, ok := decode(encoded)
	if !ok {
		return false
	}

	digest := argon2.IDKey([]byte(password), salt, params.iterations, params.memory, params.parallelism, uint32(len(expected)))

	return subtle.ConstantTimeCompare(digest, expected) == 1
}

type params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// decode parses a $argon2id$v=19$m=...,t=...,p=...$<salt>$<digest> string.
func decode(encoded string) (params, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params{}, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params{}, nil, nil, false
	}

	var mem, it uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return params{}, nil, nil, false
	}
	if mem == 0 || it == 0 || par == 0 {
		return params{}, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params{}, nil, nil, false
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return params{}, nil, nil, false
	}

	return params{memory: mem, iterations: it, parallelism: par}, salt, digest, true
}
