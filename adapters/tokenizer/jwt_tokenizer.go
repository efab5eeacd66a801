package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/ports"
)

const AudienceAccess = "courier:access"
const AudienceRefresh = "courier:refresh"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// SessionToAccessToken converts a session to an access JWT.
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.IdentityID,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		Identifier: session.Identifier,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signedToken, nil
}

// SessionToRefreshToken converts a session to a refresh JWT.
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.IdentityID,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
		Identifier: session.Identifier,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signedToken, nil
}

// AccessTokenToSession parses an access token into the session it references.
// The returned session carries only token-borne fields; acceptance still
// requires the referenced record to exist in the session store.
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, j.keyFunc, jwt.WithAudience(AudienceAccess))
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &core.Session{
		ID:           claims.ID,
		IdentityID:   claims.Subject,
		Identifier:   claims.Identifier,
		CreatedAt:    claims.IssuedAt.Time,
		AccessExpiry: claims.ExpiresAt.Time,
	}, nil
}

// RefreshTokenToSession parses a refresh token into the session it references.
func (j *JWTTokenizer) RefreshTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &RefreshClaims{}, j.keyFunc, jwt.WithAudience(AudienceRefresh))
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &core.Session{
		ID:         claims.ID,
		IdentityID: claims.Subject,
		Identifier: claims.Identifier,
		CreatedAt:  claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return &j.signKey.PublicKey, nil
}

// mapParseError keeps expiry distinguishable from every other parse failure so
// callers can signal that a refresh is worth attempting.
func mapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return core.ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
}
