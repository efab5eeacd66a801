package store

import (
	"context"
	"sync"
	"time"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/ports"
)

// MemoryCredentialStore is an in-memory implementation of the CredentialStore
// interface.
type MemoryCredentialStore struct {
	mu           sync.RWMutex
	byID         map[string]*core.Credential
	byIdentifier map[string]string
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:         make(map[string]*core.Credential),
		byIdentifier: make(map[string]string),
	}
}

// Create stores a credential. The uniqueness check and insert happen under one
// lock, so concurrent registrations of the same identifier resolve to exactly
// one success.
func (s *MemoryCredentialStore) Create(ctx context.Context, cred *core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentifier[cred.Identifier]; exists {
		return core.ErrIdentifierTaken
	}

	copied := *cred
	s.byID[cred.ID] = &copied
	s.byIdentifier[cred.Identifier] = cred.ID
	return nil
}

// GetByIdentifier retrieves a credential by its address.
func (s *MemoryCredentialStore) GetByIdentifier(ctx context.Context, identifier string) (*core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdentifier[identifier]
	if !ok {
		return nil, core.ErrCredentialNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

// GetByID retrieves a credential by its identity ID.
func (s *MemoryCredentialStore) GetByID(ctx context.Context, id string) (*core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[id]
	if !ok {
		return nil, core.ErrCredentialNotFound
	}
	copied := *cred
	return &copied, nil
}

// SetPresence mirrors a presence transition into the credential record.
func (s *MemoryCredentialStore) SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return core.ErrCredentialNotFound
	}
	cred.IsOnline = online
	cred.LastSeen = lastSeen
	return nil
}

// MemorySessionStore is an in-memory implementation of the SessionStore
// interface with a periodic expiry sweep.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*core.Session),
	}
}

// Put stores a session.
func (s *MemorySessionStore) Put(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// Get retrieves a session by ID.
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Sweep deletes every session past its expiry at now and returns the count.
func (s *MemorySessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper sweeps expired sessions every interval until ctx is cancelled.
func (s *MemorySessionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}

// MemoryMessageStore is an in-memory implementation of the MessageStore
// interface.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[string]*core.StoredMessage
	order    []string
}

// NewMemoryMessageStore creates a new in-memory message store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{
		messages: make(map[string]*core.StoredMessage),
	}
}

// Store parks a message in the recipient's inbox.
func (s *MemoryMessageStore) Store(ctx context.Context, msg *core.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *msg
	s.messages[msg.ID] = &copied
	s.order = append(s.order, msg.ID)
	return nil
}

// Inbox lists the recipient's stored messages in insertion order.
func (s *MemoryMessageStore) Inbox(ctx context.Context, recipient string) ([]*core.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.StoredMessage
	for _, id := range s.order {
		msg, ok := s.messages[id]
		if !ok || msg.Recipient != recipient {
			continue
		}
		copied := *msg
		out = append(out, &copied)
	}
	return out, nil
}

// Delete removes a stored message.
func (s *MemoryMessageStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return core.ErrMessageNotFound
	}
	delete(s.messages, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

var (
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.MessageStore    = (*MemoryMessageStore)(nil)
)
