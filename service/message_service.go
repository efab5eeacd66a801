package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/envelope"
	"github.com/lockstitch/courier/internal/crypto"
	"github.com/lockstitch/courier/ports"
)

// LivePusher pushes a message frame to a recipient's live connection, if any.
// Delivery is best-effort; an offline recipient is a silent no-op.
type LivePusher interface {
	NotifyNewMessage(recipient string, payload []byte) bool
}

// MessageService accepts inbound envelopes, parks them in the durable inbox
// and pushes them to live connections.
type MessageService struct {
	creds  ports.CredentialStore
	inbox  ports.MessageStore
	codec  *envelope.Codec
	pusher LivePusher
	log    *slog.Logger
}

// NewMessageService creates a new message service. pusher may be nil when no
// real-time layer is wired.
func NewMessageService(
	creds ports.CredentialStore,
	inbox ports.MessageStore,
	codec *envelope.Codec,
	pusher LivePusher,
	log *slog.Logger,
) *MessageService {
	if log == nil {
		log = slog.Default()
	}
	return &MessageService{
		creds:  creds,
		inbox:  inbox,
		codec:  codec,
		pusher: pusher,
		log:    log,
	}
}

// Accept validates env against the sender's registered public key, stores it
// in the recipient's inbox and pushes it to the recipient's live connection.
func (s *MessageService) Accept(ctx context.Context, env *core.Envelope) (*core.StoredMessage, error) {
	sender, err := s.creds.GetByIdentifier(ctx, env.From)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown sender", core.ErrInvalidEnvelope)
	}
	if _, err := s.creds.GetByIdentifier(ctx, env.To); err != nil {
		return nil, fmt.Errorf("%w: unknown recipient", core.ErrInvalidEnvelope)
	}

	result := s.codec.Validate(ctx, env, sender.PublicKey)
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidEnvelope, strings.Join(result.Errors, "; "))
	}

	id, err := crypto.GenerateID()
	if err != nil {
		return nil, err
	}

	stored := &core.StoredMessage{
		ID:        id,
		Recipient: env.To,
		Envelope:  *env,
		StoredAt:  time.Now(),
	}
	if err := s.inbox.Store(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if s.pusher != nil {
		payload, err := json.Marshal(env)
		if err == nil {
			s.pusher.NotifyNewMessage(env.To, payload)
		}
	}

	return stored, nil
}

// Inbox lists the recipient's stored messages.
func (s *MessageService) Inbox(ctx context.Context, recipient string) ([]*core.StoredMessage, error) {
	return s.inbox.Inbox(ctx, recipient)
}

// Ack removes a delivered message from the recipient's inbox. The message must
// belong to the acknowledging recipient.
func (s *MessageService) Ack(ctx context.Context, recipient, id string) error {
	msgs, err := s.inbox.Inbox(ctx, recipient)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if msg.ID == id {
			return s.inbox.Delete(ctx, id)
		}
	}
	return core.ErrMessageNotFound
}
