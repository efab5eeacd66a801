package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/internal/crypto"
	"github.com/lockstitch/courier/internal/metrics"
	"github.com/lockstitch/courier/internal/ratelimit"
	"github.com/lockstitch/courier/ports"
)

const (
	// DefaultAccessTTL is the default access token lifetime.
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL is the default refresh token (session) lifetime.
	DefaultRefreshTTL = 7 * 24 * time.Hour

	// minPasswordLength is the password policy floor.
	minPasswordLength = 8
)

// AuthService handles registration, login and the session lifecycle.
type AuthService struct {
	creds     ports.CredentialStore
	sessions  ports.SessionStore
	tokenizer ports.Tokenizer
	events    ports.EventPublisher
	limiter   *ratelimit.MapLimiter
	log       *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithTokenTTLs overrides the access and refresh token lifetimes.
func WithTokenTTLs(access, refresh time.Duration) AuthOption {
	return func(s *AuthService) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithLoginLimiter rate limits login attempts per identifier.
func WithLoginLimiter(l *ratelimit.MapLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

// WithLogger overrides the service logger.
func WithLogger(log *slog.Logger) AuthOption {
	return func(s *AuthService) { s.log = log }
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	creds ports.CredentialStore,
	sessions ports.SessionStore,
	tokenizer ports.Tokenizer,
	events ports.EventPublisher,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		creds:      creds,
		sessions:   sessions,
		tokenizer:  tokenizer,
		events:     events,
		log:        slog.Default(),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenPair is an access/refresh token set bound to one session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterResult is the public identity info returned on registration. The
// raw private key is never part of it.
type RegisterResult struct {
	IdentityID string
	Identifier string
	PublicKey  string
	SessionID  string
	Tokens     TokenPair
}

// LoginResult extends RegisterResult with the password-encrypted private key
// blob for client-side local decryption.
type LoginResult struct {
	RegisterResult
	EncryptedPrivateKey core.EncryptedBlob
}

// Register creates a new identity. The identifier and password are validated
// before the store is touched; the private key is stored only encrypted under
// the password.
func (s *AuthService) Register(ctx context.Context, identifier, password string) (*RegisterResult, error) {
	if !core.IsValidIdentifier(identifier) {
		return nil, core.ErrInvalidIdentifier
	}
	if !passwordMeetsPolicy(password) {
		return nil, core.ErrWeakPassword
	}

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	encryptedPriv, err := crypto.EncryptWithPassword([]byte(keys.PrivateKey), password)
	if err != nil {
		return nil, err
	}

	cred := &core.Credential{
		ID:                  uuid.New().String(),
		Identifier:          identifier,
		PasswordHash:        hash,
		PublicKey:           keys.PublicKey,
		EncryptedPrivateKey: encryptedPriv,
		CreatedAt:           time.Now(),
	}

	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, err
	}

	session, tokens, err := s.issueSession(ctx, cred.ID, cred.Identifier, cred.PublicKey)
	if err != nil {
		return nil, err
	}

	s.log.Info("identity registered", "identifier", identifier)

	return &RegisterResult{
		IdentityID: cred.ID,
		Identifier: cred.Identifier,
		PublicKey:  cred.PublicKey,
		SessionID:  session.ID,
		Tokens:     tokens,
	}, nil
}

// Login verifies credentials and creates a session. An unknown identifier and
// a wrong password produce the same generic failure so the caller cannot tell
// which check failed.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	now := time.Now()
	if !s.limiter.Allow(identifier, now) {
		return nil, core.ErrRateLimited
	}

	cred, err := s.creds.GetByIdentifier(ctx, identifier)
	if err != nil {
		metrics.AuthFailures.Inc()
		return nil, core.ErrInvalidCredentials
	}

	if !crypto.VerifyPassword(password, cred.PasswordHash) {
		metrics.AuthFailures.Inc()
		return nil, core.ErrInvalidCredentials
	}

	if err := s.creds.SetPresence(ctx, cred.ID, true, now); err != nil {
		s.log.Warn("failed to update presence", "identifier", identifier, "err", err)
	}
	if err := s.events.PublishPresence(ctx, cred.Identifier, core.PresenceOnline); err != nil {
		s.log.Warn("failed to publish presence event", "err", err)
	}

	session, tokens, err := s.issueSession(ctx, cred.ID, cred.Identifier, cred.PublicKey)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		RegisterResult: RegisterResult{
			IdentityID: cred.ID,
			Identifier: cred.Identifier,
			PublicKey:  cred.PublicKey,
			SessionID:  session.ID,
			Tokens:     tokens,
		},
		EncryptedPrivateKey: cred.EncryptedPrivateKey,
	}, nil
}

// ValidateAccessToken verifies token integrity and expiry, then independently
// checks that the referenced session still exists. Cryptographic validity
// alone is not sufficient for acceptance.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	claims, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		metrics.AuthFailures.Inc()
		return nil, err
	}

	now := time.Now()
	if now.After(claims.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	stored, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		metrics.AuthFailures.Inc()
		return nil, fmt.Errorf("%w: session no longer exists", core.ErrInvalidToken)
	}
	if stored.Expired(now) {
		_ = s.sessions.Delete(ctx, stored.ID)
		return nil, core.ErrTokenExpired
	}

	return stored, nil
}

// Refresh rotates the session: the old record is deleted in the same step the
// replacement is stored, so the superseded refresh token fails the session
// existence check immediately.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*core.Session, *TokenPair, error) {
	claims, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	if now.After(claims.ExpiresAt) {
		return nil, nil, core.ErrTokenExpired
	}

	stored, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: session no longer exists", core.ErrInvalidToken)
	}
	if stored.Expired(now) {
		_ = s.sessions.Delete(ctx, stored.ID)
		return nil, nil, core.ErrTokenExpired
	}

	if err := s.sessions.Delete(ctx, stored.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to invalidate rotated session: %w", err)
	}

	session, tokens, err := s.issueSession(ctx, stored.IdentityID, stored.Identifier, stored.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	return session, &tokens, nil
}

// Logout deletes the session. It is idempotent: logging out an absent session
// succeeds.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	stored, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	now := time.Now()
	if err := s.creds.SetPresence(ctx, stored.IdentityID, false, now); err != nil {
		s.log.Warn("failed to update presence", "identifier", stored.Identifier, "err", err)
	}
	if err := s.events.PublishLogout(ctx, stored.Identifier, stored.ID); err != nil {
		s.log.Warn("failed to publish logout event", "err", err)
	}
	if err := s.events.PublishPresence(ctx, stored.Identifier, core.PresenceOffline); err != nil {
		s.log.Warn("failed to publish presence event", "err", err)
	}

	return nil
}

// LogoutToken resolves the session behind a refresh token and logs it out.
// An expired token is still a successful logout; a malformed one is not.
func (s *AuthService) LogoutToken(ctx context.Context, refreshToken string) error {
	claims, err := s.tokenizer.RefreshTokenToSession(refreshToken)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			return nil
		}
		return err
	}
	return s.Logout(ctx, claims.ID)
}

func (s *AuthService) issueSession(ctx context.Context, identityID, identifier, publicKey string) (*core.Session, TokenPair, error) {
	now := time.Now()
	session := &core.Session{
		ID:           uuid.New().String(),
		IdentityID:   identityID,
		Identifier:   identifier,
		PublicKey:    publicKey,
		CreatedAt:    now,
		AccessExpiry: now.Add(s.accessTTL),
		ExpiresAt:    now.Add(s.refreshTTL),
	}

	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, TokenPair{}, fmt.Errorf("failed to store session: %w", err)
	}

	access, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, TokenPair{}, err
	}
	refresh, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, TokenPair{}, err
	}

	return session, TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// passwordMeetsPolicy requires the minimum length and all four character
// classes: upper, lower, digit, symbol.
func passwordMeetsPolicy(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
