package securestore

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length of the deterministic per-identity salt.
	SaltSize = 16
	// MinKDFIterations is the floor enforced on every derivation. Configured
	// values below it are clamped up, never down.
	MinKDFIterations = 100_000
	// DefaultKDFIterations is used when no iteration count is configured.
	DefaultKDFIterations = 100_000
)

const duressSaltLabel = "sealchat/kdf/duress/v1|"

// SaltForIdentity derives the per-identity KDF salt from the lower-cased
// email. The salt is never stored; login re-derives it so the same email
// always yields the same master key for the same password.
func SaltForIdentity(email string) []byte {
	sum := sha256.Sum256([]byte(normalizeEmail(email)))
	return sum[:SaltSize]
}

// DeriveMasterKey stretches password into the 256-bit vault master key via
// PBKDF2-SHA256. Deterministic for a fixed (password, salt) pair.
func DeriveMasterKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, clampIterations(iterations), KeySize, sha256.New)
}

// DuressHash derives the stored duress comparator. It runs the same PBKDF2
// cost as DeriveMasterKey under a domain-separated salt, so the duress branch
// and the normal branch of login burn equivalent work.
func DuressHash(password string, salt []byte, iterations int) []byte {
	sep := append([]byte(duressSaltLabel), salt...)
	return pbkdf2.Key([]byte(password), sep, clampIterations(iterations), KeySize, sha256.New)
}

func clampIterations(iterations int) int {
	if iterations < MinKDFIterations {
		return MinKDFIterations
	}
	return iterations
}

func normalizeEmail(email string) string {
	out := make([]byte, 0, len(email))
	for i := 0; i < len(email); i++ {
		c := email[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
