package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/ports"
)

// RedisSessionStore is a Redis implementation of the SessionStore interface.
// Sessions expire server-side via key TTL, so no sweeper is needed.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a new Redis session store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "courier:session:",
	}
}

// Put stores a session with a TTL matching its expiry.
func (s *RedisSessionStore) Put(ctx context.Context, session *core.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired, refusing to store", session.ID)
	}

	if err := s.client.Set(ctx, s.prefix+session.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err == redis.Nil {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}

	var session core.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RedisReplayGuard tracks consumed nonces as keys whose TTL equals the
// envelope freshness window, so eviction can never forget a nonce that is
// still inside its window.
type RedisReplayGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisReplayGuard creates a guard whose records live for window.
func NewRedisReplayGuard(client *redis.Client, window time.Duration) *RedisReplayGuard {
	return &RedisReplayGuard{
		client: client,
		prefix: "courier:nonce:",
		ttl:    window,
	}
}

// Consume records nonce and reports whether it had been seen before.
func (g *RedisReplayGuard) Consume(ctx context.Context, nonce string) (bool, error) {
	inserted, err := g.client.SetNX(ctx, g.prefix+nonce, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return !inserted, nil
}

var (
	_ ports.SessionStore = (*RedisSessionStore)(nil)
	_ ports.ReplayGuard  = (*RedisReplayGuard)(nil)
)
