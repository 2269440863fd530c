// Package auth verifies API keys presented to the decision API against
// the hashes listed in configuration.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidKey is returned when a presented API key matches no configured hash.
var ErrInvalidKey = errors.New("invalid api key")

// ErrUnknownHashType is returned when a configured hash has an unrecognized format.
var ErrUnknownHashType = errors.New("unknown hash type")

// KeyVerifier checks presented API keys against a fixed set of stored
// hashes. The set is immutable after construction; a config reload builds
// a new verifier.
type KeyVerifier struct {
	hashes []string
}

// NewKeyVerifier builds a verifier over the configured key hashes.
func NewKeyVerifier(hashes []string) *KeyVerifier {
	out := make([]string, len(hashes))
	copy(out, hashes)
	return &KeyVerifier{hashes: out}
}

// Verify returns nil when rawKey matches any configured hash, and
// ErrInvalidKey otherwise. Every hash is checked even after a match so the
// timing does not depend on which entry matched.
func (v *KeyVerifier) Verify(rawKey string) error {
	matched := false
	for _, h := range v.hashes {
		ok, err := VerifyKey(rawKey, h)
		if err != nil {
			continue
		}
		if ok {
			matched = true
		}
	}
	if !matched {
		return ErrInvalidKey
	}
	return nil
}

// HashKey returns the SHA-256 hash of the raw key in "sha256:<hex>" form,
// the format expected in the auth.api_keys config list.
func HashKey(rawKey string) string {
	hash := sha256.Sum256([]byte(rawKey))
	return "sha256:" + hex.EncodeToString(hash[:])
}

// argon2idParams defines OWASP minimum parameters for Argon2id.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024, // 47 MiB (OWASP minimum: 46 MiB)
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKeyArgon2id returns an Argon2id hash of the raw key in PHC format:
// $argon2id$v=19$m=47104,t=1,p=1$<salt>$<hash>
func HashKeyArgon2id(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// DetectHashType identifies the hash algorithm of a stored hash.
// Returns "argon2id" for PHC format, "sha256" for prefixed or bare hex,
// "unknown" otherwise.
func DetectHashType(storedHash string) string {
	if strings.HasPrefix(storedHash, "$argon2id$") {
		return "argon2id"
	}
	if strings.HasPrefix(storedHash, "sha256:") {
		return "sha256"
	}
	if len(storedHash) == 64 && isHexString(storedHash) {
		return "sha256"
	}
	return "unknown"
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// VerifyKey verifies a raw key against a stored hash. Supports Argon2id
// (PHC format), "sha256:" prefixed, and bare SHA-256 hex hashes.
// Returns (false, ErrUnknownHashType) for unrecognized formats.
func VerifyKey(rawKey, storedHash string) (bool, error) {
	switch DetectHashType(storedHash) {
	case "argon2id":
		return safeArgon2idCompare(rawKey, storedHash)

	case "sha256":
		expected := strings.TrimPrefix(storedHash, "sha256:")
		hash := sha256.Sum256([]byte(rawKey))
		computed := hex.EncodeToString(hash[:])
		// Constant-time comparison to prevent timing attacks.
		return subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) == 1, nil

	default:
		return false, ErrUnknownHashType
	}
}

// safeArgon2idCompare wraps argon2id.ComparePasswordAndHash with panic
// recovery. The underlying argon2 library panics on malformed hashes with
// invalid parameters (t=0 rounds, p=0 parallelism); those become errors.
func safeArgon2idCompare(rawKey, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(rawKey, storedHash)
}
