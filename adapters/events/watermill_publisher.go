package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/ports"
)

// PresenceEvent announces an identity's presence transition.
type PresenceEvent struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
}

// LogoutEvent announces a terminated session.
type LogoutEvent struct {
	Identifier string `json:"identifier"`
	SessionID  string `json:"session_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher     message.Publisher
	presenceTopic string
	logoutTopic   string
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher:     publisher,
		presenceTopic: "courier.presence",
		logoutTopic:   "courier.logout",
	}
}

// PublishPresence publishes a presence transition.
func (p *WatermillPublisher) PublishPresence(ctx context.Context, identifier string, status core.PresenceStatus) error {
	return p.publish(p.presenceTopic, PresenceEvent{
		Identifier: identifier,
		Status:     string(status),
	})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, identifier string, sessionID string) error {
	return p.publish(p.logoutTopic, LogoutEvent{
		Identifier: identifier,
		SessionID:  sessionID,
	})
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NopPublisher discards every event. It stands in when no broker is wired.
type NopPublisher struct{}

func (NopPublisher) PublishPresence(context.Context, string, core.PresenceStatus) error { return nil }
func (NopPublisher) PublishLogout(context.Context, string, string) error                { return nil }

var (
	_ ports.EventPublisher = (*WatermillPublisher)(nil)
	_ ports.EventPublisher = NopPublisher{}
)
