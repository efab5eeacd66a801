package core

import "time"

// Session represents an authenticated session. Sessions are immutable:
// refresh supersedes a session with a new record rather than mutating it.
type Session struct {
	ID           string    // Unique session identifier
	IdentityID   string    // Identity the session belongs to
	Identifier   string    // Address of the identity
	PublicKey    string    // Encoded public key of the identity
	CreatedAt    time.Time // When the session was created
	AccessExpiry time.Time // When the access capability expires
	ExpiresAt    time.Time // When the session (refresh capability) expires
}

// Expired reports whether the session is past its refresh expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
