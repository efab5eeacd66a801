package core

import (
	"regexp"
	"time"
)

// Credential is the stored record for a registered identity. The private key
// half is kept only in password-encrypted form; plaintext key material never
// touches the store.
type Credential struct {
	ID                  string        // Unique identity identifier
	Identifier          string        // Address the identity registered under
	PasswordHash        string        // bcrypt hash of the login password
	PublicKey           string        // Encoded public half of the identity key pair
	EncryptedPrivateKey EncryptedBlob // Private half, encrypted under the login password
	CreatedAt           time.Time
	LastSeen            time.Time
	IsOnline            bool
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidIdentifier reports whether s is a well-formed address.
func IsValidIdentifier(s string) bool {
	return len(s) <= 254 && identifierPattern.MatchString(s)
}
