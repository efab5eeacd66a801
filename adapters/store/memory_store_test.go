package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockstitch/courier/core"
)

func TestCredentialStoreCreateAndGet(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	cred := &core.Credential{
		ID:         "id-1",
		Identifier: "alice@example.com",
		PublicKey:  "aabb",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.Create(ctx, cred))

	got, err := s.GetByIdentifier(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "id-1", got.ID)

	got, err = s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Identifier)

	_, err = s.GetByIdentifier(ctx, "bob@example.com")
	require.ErrorIs(t, err, core.ErrCredentialNotFound)
}

func TestCredentialStoreReturnsCopies(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &core.Credential{ID: "id-1", Identifier: "alice@example.com"}))

	got, err := s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	got.PublicKey = "mutated"

	again, err := s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.Empty(t, again.PublicKey)
}

func TestCredentialStoreConcurrentCreateOneWinner(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Create(ctx, &core.Credential{
				ID:         fmt.Sprintf("id-%d", i),
				Identifier: "alice@example.com",
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, core.ErrIdentifierTaken)
		}
	}
	require.Equal(t, 1, won)
}

func TestCredentialStoreSetPresence(t *testing.T) {
	s := NewMemoryCredentialStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &core.Credential{ID: "id-1", Identifier: "alice@example.com"}))

	seen := time.Now().Truncate(time.Second)
	require.NoError(t, s.SetPresence(ctx, "id-1", true, seen))

	got, err := s.GetByID(ctx, "id-1")
	require.NoError(t, err)
	require.True(t, got.IsOnline)
	require.True(t, got.LastSeen.Equal(seen))

	require.ErrorIs(t, s.SetPresence(ctx, "missing", true, seen), core.ErrCredentialNotFound)
}

func TestSessionStorePutGetDelete(t *testing.T) {
	s := NewMemorySessionStore()
	ctx := context.Background()

	session := &core.Session{ID: "sess-1", Identifier: "alice@example.com", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Put(ctx, session))

	got, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Identifier)

	require.NoError(t, s.Delete(ctx, "sess-1"))
	_, err = s.Get(ctx, "sess-1")
	require.ErrorIs(t, err, core.ErrSessionNotFound)

	// Deleting again is a no-op.
	require.NoError(t, s.Delete(ctx, "sess-1"))
}

func TestSessionStoreSweep(t *testing.T) {
	s := NewMemorySessionStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Put(ctx, &core.Session{ID: "live", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Put(ctx, &core.Session{ID: "dead", ExpiresAt: now.Add(-time.Minute)}))

	require.Equal(t, 1, s.Sweep(now))

	_, err := s.Get(ctx, "live")
	require.NoError(t, err)
	_, err = s.Get(ctx, "dead")
	require.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestMessageStoreInboxOrderAndDelete(t *testing.T) {
	s := NewMemoryMessageStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Store(ctx, &core.StoredMessage{
			ID:        fmt.Sprintf("msg-%d", i),
			Recipient: "bob@example.com",
		}))
	}
	require.NoError(t, s.Store(ctx, &core.StoredMessage{ID: "other", Recipient: "carol@example.com"}))

	inbox, err := s.Inbox(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	require.Equal(t, "msg-0", inbox[0].ID)
	require.Equal(t, "msg-2", inbox[2].ID)

	require.NoError(t, s.Delete(ctx, "msg-1"))
	inbox, err = s.Inbox(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	require.ErrorIs(t, s.Delete(ctx, "msg-1"), core.ErrMessageNotFound)
}

func TestMessageStoreDeleteCompactsOrder(t *testing.T) {
	s := NewMemoryMessageStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Store(ctx, &core.StoredMessage{
			ID:        fmt.Sprintf("msg-%d", i),
			Recipient: "bob@example.com",
		}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Delete(ctx, fmt.Sprintf("msg-%d", i)))
	}

	require.Empty(t, s.order)
}
