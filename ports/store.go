package ports

import (
	"context"
	"time"

	"github.com/lockstitch/courier/core"
)

// CredentialStore persists identity credentials. Create must be atomic with
// respect to the identifier uniqueness check: of two concurrent Create calls
// for the same identifier, exactly one succeeds.
type CredentialStore interface {
	Create(ctx context.Context, cred *core.Credential) error
	GetByIdentifier(ctx context.Context, identifier string) (*core.Credential, error)
	GetByID(ctx context.Context, id string) (*core.Credential, error)
	SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
}

// SessionStore tracks live sessions by ID.
type SessionStore interface {
	Put(ctx context.Context, session *core.Session) error
	Get(ctx context.Context, id string) (*core.Session, error)
	Delete(ctx context.Context, id string) error
}

// ReplayGuard tracks consumed envelope nonces.
type ReplayGuard interface {
	// Consume records the nonce and reports whether it had been seen before.
	Consume(ctx context.Context, nonce string) (replayed bool, err error)
}

// MessageStore is the durable inbox collaborator: envelopes parked for
// recipients without a live connection.
type MessageStore interface {
	Store(ctx context.Context, msg *core.StoredMessage) error
	Inbox(ctx context.Context, recipient string) ([]*core.StoredMessage, error)
	Delete(ctx context.Context, id string) error
}
