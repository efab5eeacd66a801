package core

import "errors"

var (
	ErrInvalidIdentifier  = errors.New("identifier is not a valid address")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrIdentifierTaken    = errors.New("identifier already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionNotFound    = errors.New("session not found")
	ErrRateLimited        = errors.New("too many attempts")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrPayloadTooLarge    = errors.New("payload exceeds size ceiling")
	ErrInvalidEnvelope    = errors.New("invalid envelope")
	ErrDecryptAuth        = errors.New("ciphertext authentication failed")
)
