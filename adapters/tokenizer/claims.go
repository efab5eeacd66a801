package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones. The JWT ID
// is the session ID, which verification checks against the session store.
type AccessClaims struct {
	jwt.RegisteredClaims
	Identifier string `json:"idf"`
}

// RefreshClaims carry the same shape; the audience distinguishes the kinds.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Identifier string `json:"idf"`
}
