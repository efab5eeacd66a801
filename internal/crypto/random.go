package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	// NonceSize is the envelope nonce size in bytes (64 hex characters).
	NonceSize = 32
	// secureTokenSize is the opaque token size in bytes.
	secureTokenSize = 64
	// idSize is the generated identifier size in bytes.
	idSize = 16
)

// GenerateNonce returns a fresh 32-byte random value as hex. Uniqueness is
// probabilistic; callers confirm single use through the replay guard.
func GenerateNonce() (string, error) {
	return randomHex(NonceSize)
}

// GenerateSecureToken returns a fresh 64-byte random value as hex.
func GenerateSecureToken() (string, error) {
	return randomHex(secureTokenSize)
}

// GenerateID returns a fresh 16-byte random value as hex.
func GenerateID() (string, error) {
	return randomHex(idSize)
}

// ConstantTimeCompare compares a and b without branching on content. A length
// mismatch returns false immediately.
func ConstantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
