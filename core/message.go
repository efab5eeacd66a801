package core

import "time"

// PresenceStatus is a broadcast presence state. It is derived, not stored:
// transitions are fanned out to live connections and mirrored into the
// credential's IsOnline/LastSeen fields.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceBusy    PresenceStatus = "busy"
	PresenceOffline PresenceStatus = "offline"
)

// KnownPresenceStatus reports whether s is an accepted inbound presence value.
// Offline is server-derived and never accepted from a client.
func KnownPresenceStatus(s PresenceStatus) bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceBusy:
		return true
	}
	return false
}

// StoredMessage is an envelope parked in a recipient's durable inbox until a
// live connection picks it up.
type StoredMessage struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Envelope  Envelope  `json:"envelope"`
	StoredAt  time.Time `json:"stored_at"`
}
