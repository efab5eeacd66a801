package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/internal/metrics"
	"github.com/lockstitch/courier/ports"
)

// DefaultHeartbeatInterval is the period of the liveness sweep.
const DefaultHeartbeatInterval = 30 * time.Second

// TokenValidator authenticates a connection's bearer token.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*core.Session, error)
}

// Hub is the process-wide delivery coordinator. It owns the registry of live,
// authenticated connections keyed by identifier, runs the heartbeat sweep and
// fans presence deltas out to all other connections.
type Hub struct {
	auth   TokenValidator
	creds  ports.CredentialStore
	events ports.EventPublisher
	log    *slog.Logger

	heartbeatEvery time.Duration

	mu    sync.RWMutex
	conns map[string]*Conn
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHeartbeatInterval overrides the liveness sweep period.
func WithHeartbeatInterval(d time.Duration) HubOption {
	return func(h *Hub) { h.heartbeatEvery = d }
}

// WithHubLogger overrides the hub logger.
func WithHubLogger(log *slog.Logger) HubOption {
	return func(h *Hub) { h.log = log }
}

// NewHub creates a new delivery coordinator.
func NewHub(auth TokenValidator, creds ports.CredentialStore, events ports.EventPublisher, opts ...HubOption) *Hub {
	h := &Hub{
		auth:           auth,
		creds:          creds,
		events:         events,
		log:            slog.Default(),
		heartbeatEvery: DefaultHeartbeatInterval,
		conns:          make(map[string]*Conn),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect admits a live connection. The token must verify before the
// handshake completes; rejecting here is the only way a connection is ever
// refused for authentication. On success the caller receives a confirmation
// auth frame and every other connection receives an online presence delta.
func (h *Hub) Connect(ctx context.Context, token string, t Transport) (*Conn, error) {
	session, err := h.auth.ValidateAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	conn := newConn(session, t)

	h.mu.Lock()
	replaced := h.conns[conn.Identifier]
	h.conns[conn.Identifier] = conn
	total := len(h.conns)
	h.mu.Unlock()

	// A reconnect for an identity that still has a stale connection
	// supersedes it; the identity never went offline, so no delta is sent.
	if replaced != nil {
		replaced.close()
	}
	metrics.LiveConnections.Set(float64(total))

	go conn.writeLoop(func(c *Conn) { h.drop(context.Background(), c) })

	now := time.Now()
	if err := h.creds.SetPresence(ctx, conn.IdentityID, true, now); err != nil {
		h.log.Warn("failed to update presence", "identifier", conn.Identifier, "err", err)
	}
	if err := h.events.PublishPresence(ctx, conn.Identifier, core.PresenceOnline); err != nil {
		h.log.Warn("failed to publish presence event", "err", err)
	}
	h.broadcastPresence(conn.Identifier, core.PresenceOnline)

	conn.push(NewFrame(FrameAuth, AuthData{
		Identifier: conn.Identifier,
		SessionID:  conn.SessionID,
	}))

	h.log.Info("connection admitted", "identifier", conn.Identifier)
	return conn, nil
}

// HandleFrame processes one inbound frame from an admitted connection.
// Unknown frame kinds are answered with an error frame; the connection stays
// open.
func (h *Hub) HandleFrame(ctx context.Context, c *Conn, f Frame) {
	switch f.Type {
	case FramePing:
		c.setAlive(true)
		c.push(NewFrame(FramePong, nil))

	case FramePong:
		c.setAlive(true)

	case FramePresence:
		var update PresenceUpdate
		if err := json.Unmarshal(f.Data, &update); err != nil {
			return
		}
		status := core.PresenceStatus(update.Status)
		if !core.KnownPresenceStatus(status) {
			// Unknown presence values are silently ignored.
			return
		}
		c.setAlive(true)
		now := time.Now()
		if err := h.creds.SetPresence(ctx, c.IdentityID, true, now); err != nil {
			h.log.Warn("failed to update presence", "identifier", c.Identifier, "err", err)
		}
		if err := h.events.PublishPresence(ctx, c.Identifier, status); err != nil {
			h.log.Warn("failed to publish presence event", "err", err)
		}
		h.broadcastPresence(c.Identifier, status)

	default:
		c.push(NewFrame(FrameError, ErrorData{Message: "unsupported frame type"}))
	}
}

// Disconnect removes a voluntarily closing connection from the registry, sets
// the identity offline and broadcasts the delta.
func (h *Hub) Disconnect(ctx context.Context, c *Conn) {
	h.drop(ctx, c)
}

// NotifyNewMessage pushes a message frame to the recipient's live connection.
// A recipient without one is a silent no-op; durable delivery is the inbox's
// responsibility.
func (h *Hub) NotifyNewMessage(recipient string, payload []byte) bool {
	h.mu.RLock()
	conn, ok := h.conns[recipient]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	conn.push(Frame{Type: FrameMessage, Data: payload, Timestamp: time.Now()})
	metrics.FramesDelivered.Inc()
	return true
}

// Run drives the heartbeat sweep until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

// Sweep terminates every connection that has not responded since the previous
// sweep, then pings the survivors and clears their liveness flag until the
// next pong.
func (h *Hub) Sweep(ctx context.Context) {
	h.mu.RLock()
	snapshot := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		if !c.isAlive() {
			h.log.Info("terminating unresponsive connection", "identifier", c.Identifier)
			h.drop(ctx, c)
			continue
		}
		c.setAlive(false)
		c.push(NewFrame(FramePing, nil))
	}
}

// drop removes c from the registry, closes it and broadcasts the offline
// delta. Safe to call more than once for the same connection.
func (h *Hub) drop(ctx context.Context, c *Conn) {
	h.mu.Lock()
	current, ok := h.conns[c.Identifier]
	if !ok || current != c {
		h.mu.Unlock()
		c.close()
		return
	}
	delete(h.conns, c.Identifier)
	total := len(h.conns)
	h.mu.Unlock()

	c.close()
	metrics.LiveConnections.Set(float64(total))

	now := time.Now()
	if err := h.creds.SetPresence(ctx, c.IdentityID, false, now); err != nil {
		h.log.Warn("failed to update presence", "identifier", c.Identifier, "err", err)
	}
	if err := h.events.PublishPresence(ctx, c.Identifier, core.PresenceOffline); err != nil {
		h.log.Warn("failed to publish presence event", "err", err)
	}
	h.broadcastPresence(c.Identifier, core.PresenceOffline)
}

// broadcastPresence fans a presence delta out to every connection except the
// subject's own. Pushes are non-blocking.
func (h *Hub) broadcastPresence(identifier string, status core.PresenceStatus) {
	frame := NewFrame(FramePresence, PresenceData{
		Identifier: identifier,
		Status:     string(status),
	})

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.conns {
		if id == identifier {
			continue
		}
		c.push(frame)
	}
}

// Connected reports whether identifier currently has a live connection.
func (h *Hub) Connected(identifier string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[identifier]
	return ok
}
