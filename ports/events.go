package ports

import (
	"context"

	"github.com/lockstitch/courier/core"
)

// EventPublisher publishes lifecycle events to notify other instances.
type EventPublisher interface {
	PublishPresence(ctx context.Context, identifier string, status core.PresenceStatus) error
	PublishLogout(ctx context.Context, identifier string, sessionID string) error
}
