package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashKey(t *testing.T) {
	hash := HashKey("my-secret")
	if !strings.HasPrefix(hash, "sha256:") {
		t.Errorf("HashKey() = %q, want sha256: prefix", hash)
	}
	if len(hash) != len("sha256:")+64 {
		t.Errorf("HashKey() length = %d", len(hash))
	}
	if hash != HashKey("my-secret") {
		t.Error("HashKey must be deterministic")
	}
	if hash == HashKey("other-secret") {
		t.Error("different keys must hash differently")
	}
}

func TestHashKeyArgon2id(t *testing.T) {
	hash, err := HashKeyArgon2id("my-secret")
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("HashKeyArgon2id() = %q, want PHC format", hash)
	}

	// Salted: two hashes of the same key differ.
	other, err := HashKeyArgon2id("my-secret")
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error = %v", err)
	}
	if hash == other {
		t.Error("Argon2id hashes should carry random salts")
	}
}

func TestDetectHashType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"argon2id", "$argon2id$v=19$m=47104,t=1,p=1$c2FsdA$aGFzaA", "argon2id"},
		{"prefixed sha256", HashKey("x"), "sha256"},
		{"bare hex", strings.Repeat("ab", 32), "sha256"},
		{"too short hex", "abcd", "unknown"},
		{"not hex", strings.Repeat("zz", 32), "unknown"},
		{"empty", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectHashType(tt.input); got != tt.want {
				t.Errorf("DetectHashType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestVerifyKey(t *testing.T) {
	sha := HashKey("my-secret")
	bare := strings.TrimPrefix(sha, "sha256:")
	argon, err := HashKeyArgon2id("my-secret")
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error = %v", err)
	}

	tests := []struct {
		name    string
		rawKey  string
		stored  string
		want    bool
		wantErr error
	}{
		{"sha256 prefixed match", "my-secret", sha, true, nil},
		{"sha256 bare match", "my-secret", bare, true, nil},
		{"sha256 mismatch", "wrong", sha, false, nil},
		{"argon2id match", "my-secret", argon, true, nil},
		{"argon2id mismatch", "wrong", argon, false, nil},
		{"unknown format", "my-secret", "plaintext", false, ErrUnknownHashType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyKey(tt.rawKey, tt.stored)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("VerifyKey() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VerifyKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyKeyMalformedArgon2id(t *testing.T) {
	// Malformed parameters (t=0) panic inside the argon2 library; VerifyKey
	// must convert that to an error.
	match, err := VerifyKey("key", "$argon2id$v=19$m=47104,t=0,p=0$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA")
	if match {
		t.Error("malformed hash must never match")
	}
	if err == nil {
		t.Error("malformed hash should produce an error, not a panic")
	}
}

func TestKeyVerifier(t *testing.T) {
	verifier := NewKeyVerifier([]string{
		HashKey("key-one"),
		HashKey("key-two"),
		"garbage-entry", // skipped, must not break the others
	})

	if err := verifier.Verify("key-one"); err != nil {
		t.Errorf("Verify(key-one) error = %v", err)
	}
	if err := verifier.Verify("key-two"); err != nil {
		t.Errorf("Verify(key-two) error = %v", err)
	}
	if err := verifier.Verify("nope"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Verify(nope) error = %v, want ErrInvalidKey", err)
	}
}

func TestKeyVerifierEmpty(t *testing.T) {
	verifier := NewKeyVerifier(nil)
	if err := verifier.Verify("anything"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Verify with no hashes error = %v, want ErrInvalidKey", err)
	}
}
