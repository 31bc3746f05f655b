package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost settings. Stored hashes carry their own parameters, so
// these only apply to newly created passwords and can be raised later
// without invalidating existing accounts.
const (
	hashIterations  uint32 = 3
	hashMemoryKiB   uint32 = 64 * 1024
	hashParallelism uint8  = 1
	saltBytes              = 16
	digestBytes     uint32 = 32
)

// passwordHash is a parsed PHC-encoded Argon2id hash.
type passwordHash struct {
	iterations  uint32
	memoryKiB   uint32
	parallelism uint8
	salt        []byte
	digest      []byte
}

// HashPassword derives an Argon2id hash of the password with a fresh random
// salt, encoded in PHC form ($argon2id$v=19$m=...,t=...,p=...$salt$digest).
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}

	digest := argon2.IDKey([]byte(password), salt,
		hashIterations, hashMemoryKiB, hashParallelism, digestBytes)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, hashMemoryKiB, hashIterations, hashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest))
	return encoded, nil
}

// VerifyPassword reports whether password matches the stored PHC hash.
// The comparison is constant-time; an error means the stored hash could
// not be parsed, not that the password was wrong.
func VerifyPassword(password, encoded string) (bool, error) {
	ph, err := parsePasswordHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), ph.salt,
		ph.iterations, ph.memoryKiB, ph.parallelism, uint32(len(ph.digest))) //nolint:gosec // G115: digest length always fits uint32

	return subtle.ConstantTimeCompare(ph.digest, candidate) == 1, nil
}

// parsePasswordHash splits a PHC string into its Argon2id components.
func parsePasswordHash(encoded string) (*passwordHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" { //nolint:mnd // PHC strings have exactly six $-separated fields
		return nil, fmt.Errorf("malformed password hash")
	}
	if fields[1] != "argon2id" {
		return nil, fmt.Errorf("unsupported hash algorithm %q", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil { //nolint:govet // shadow: err scoped to the parse
		return nil, fmt.Errorf("parsing hash version: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	ph := &passwordHash{}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d",
		&ph.memoryKiB, &ph.iterations, &ph.parallelism); err != nil { //nolint:govet // shadow: err scoped to the parse
		return nil, fmt.Errorf("parsing hash parameters: %w", err)
	}

	var err error
	if ph.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	if ph.digest, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return nil, fmt.Errorf("decoding digest: %w", err)
	}

	return ph, nil
}
