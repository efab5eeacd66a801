package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockstitch/courier/adapters/events"
	"github.com/lockstitch/courier/core"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
}

func (t *fakeTransport) Send(f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, f)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) byType(frameType string) []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Frame
	for _, f := range t.frames {
		if f.Type == frameType {
			out = append(out, f)
		}
	}
	return out
}

type fakeValidator struct {
	sessions map[string]*core.Session
}

func (v *fakeValidator) ValidateAccessToken(ctx context.Context, token string) (*core.Session, error) {
	session, ok := v.sessions[token]
	if !ok {
		return nil, core.ErrInvalidToken
	}
	return session, nil
}

type nopCredentialStore struct{}

func (nopCredentialStore) Create(context.Context, *core.Credential) error { return nil }
func (nopCredentialStore) GetByIdentifier(context.Context, string) (*core.Credential, error) {
	return nil, core.ErrCredentialNotFound
}
func (nopCredentialStore) GetByID(context.Context, string) (*core.Credential, error) {
	return nil, core.ErrCredentialNotFound
}
func (nopCredentialStore) SetPresence(context.Context, string, bool, time.Time) error { return nil }

func newTestHub(identifiers ...string) *Hub {
	v := &fakeValidator{sessions: make(map[string]*core.Session)}
	for _, id := range identifiers {
		v.sessions["token-"+id] = &core.Session{
			ID:         "sess-" + id,
			IdentityID: "id-" + id,
			Identifier: id + "@example.com",
		}
	}
	return NewHub(v, nopCredentialStore{}, events.NopPublisher{})
}

func waitForFrame(t *testing.T, ft *fakeTransport, frameType string) Frame {
	t.Helper()
	var got Frame
	require.Eventually(t, func() bool {
		frames := ft.byType(frameType)
		if len(frames) == 0 {
			return false
		}
		got = frames[len(frames)-1]
		return true
	}, time.Second, 5*time.Millisecond, "no %s frame arrived", frameType)
	return got
}

func TestConnectRejectsBadToken(t *testing.T) {
	h := newTestHub("alice")
	ft := &fakeTransport{}

	_, err := h.Connect(context.Background(), "token-nobody", ft)
	require.ErrorIs(t, err, core.ErrInvalidToken)
	require.False(t, h.Connected("nobody@example.com"))
}

func TestConnectConfirmsWithAuthFrame(t *testing.T) {
	h := newTestHub("alice")
	ft := &fakeTransport{}

	conn, err := h.Connect(context.Background(), "token-alice", ft)
	require.NoError(t, err)
	require.True(t, h.Connected("alice@example.com"))

	frame := waitForFrame(t, ft, FrameAuth)
	var data AuthData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	require.Equal(t, "alice@example.com", data.Identifier)
	require.Equal(t, conn.SessionID, data.SessionID)
}

func TestConnectBroadcastsOnlineDelta(t *testing.T) {
	h := newTestHub("alice", "bob")
	ctx := context.Background()

	aliceT := &fakeTransport{}
	_, err := h.Connect(ctx, "token-alice", aliceT)
	require.NoError(t, err)

	_, err = h.Connect(ctx, "token-bob", &fakeTransport{})
	require.NoError(t, err)

	frame := waitForFrame(t, aliceT, FramePresence)
	var delta PresenceData
	require.NoError(t, json.Unmarshal(frame.Data, &delta))
	require.Equal(t, "bob@example.com", delta.Identifier)
	require.Equal(t, string(core.PresenceOnline), delta.Status)
}

func TestReconnectSupersedesStaleConnection(t *testing.T) {
	h := newTestHub("alice")
	ctx := context.Background()

	stale := &fakeTransport{}
	_, err := h.Connect(ctx, "token-alice", stale)
	require.NoError(t, err)

	fresh := &fakeTransport{}
	conn2, err := h.Connect(ctx, "token-alice", fresh)
	require.NoError(t, err)

	require.True(t, stale.isClosed())
	require.True(t, h.Connected("alice@example.com"))

	// The fresh connection receives pushes.
	require.True(t, h.NotifyNewMessage("alice@example.com", []byte(`{}`)))
	waitForFrame(t, fresh, FrameMessage)

	h.Disconnect(ctx, conn2)
	require.False(t, h.Connected("alice@example.com"))
}

func TestHandleFramePingAnsweredWithPong(t *testing.T) {
	h := newTestHub("alice")
	ft := &fakeTransport{}

	conn, err := h.Connect(context.Background(), "token-alice", ft)
	require.NoError(t, err)

	h.HandleFrame(context.Background(), conn, NewFrame(FramePing, nil))
	waitForFrame(t, ft, FramePong)
}

func TestHandleFrameUnknownTypeKeepsConnection(t *testing.T) {
	h := newTestHub("alice")
	ft := &fakeTransport{}

	conn, err := h.Connect(context.Background(), "token-alice", ft)
	require.NoError(t, err)

	h.HandleFrame(context.Background(), conn, NewFrame("bogus", nil))

	frame := waitForFrame(t, ft, FrameError)
	var data ErrorData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	require.Equal(t, "unsupported frame type", data.Message)
	require.True(t, h.Connected("alice@example.com"))
}

func TestHandleFramePresenceBroadcast(t *testing.T) {
	h := newTestHub("alice", "bob")
	ctx := context.Background()

	aliceT := &fakeTransport{}
	_, err := h.Connect(ctx, "token-alice", aliceT)
	require.NoError(t, err)

	bobT := &fakeTransport{}
	bobConn, err := h.Connect(ctx, "token-bob", bobT)
	require.NoError(t, err)

	h.HandleFrame(ctx, bobConn, NewFrame(FramePresence, PresenceUpdate{Status: string(core.PresenceAway)}))

	require.Eventually(t, func() bool {
		for _, f := range aliceT.byType(FramePresence) {
			var delta PresenceData
			if json.Unmarshal(f.Data, &delta) == nil && delta.Status == string(core.PresenceAway) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestHandleFrameUnknownPresenceIgnored(t *testing.T) {
	h := newTestHub("alice", "bob")
	ctx := context.Background()

	aliceT := &fakeTransport{}
	_, err := h.Connect(ctx, "token-alice", aliceT)
	require.NoError(t, err)

	bobT := &fakeTransport{}
	bobConn, err := h.Connect(ctx, "token-bob", bobT)
	require.NoError(t, err)

	// Let bob's online delta flush before counting.
	waitForFrame(t, aliceT, FramePresence)

	before := len(aliceT.byType(FramePresence))
	h.HandleFrame(ctx, bobConn, NewFrame(FramePresence, PresenceUpdate{Status: "invisible"}))

	time.Sleep(50 * time.Millisecond)
	require.Len(t, aliceT.byType(FramePresence), before)
	require.Empty(t, bobT.byType(FrameError))
	require.True(t, h.Connected("bob@example.com"))
}

func TestSweepTerminatesSilentConnections(t *testing.T) {
	h := newTestHub("alice", "bob")
	ctx := context.Background()

	aliceT := &fakeTransport{}
	aliceConn, err := h.Connect(ctx, "token-alice", aliceT)
	require.NoError(t, err)

	bobT := &fakeTransport{}
	_, err = h.Connect(ctx, "token-bob", bobT)
	require.NoError(t, err)

	// First sweep clears the liveness flags and sends pings.
	h.Sweep(ctx)
	waitForFrame(t, aliceT, FramePing)
	waitForFrame(t, bobT, FramePing)

	// Only alice answers.
	h.HandleFrame(ctx, aliceConn, NewFrame(FramePong, nil))

	// Second sweep terminates the silent connection.
	h.Sweep(ctx)
	require.True(t, h.Connected("alice@example.com"))
	require.False(t, h.Connected("bob@example.com"))
	require.True(t, bobT.isClosed())

	require.False(t, h.NotifyNewMessage("bob@example.com", []byte(`{}`)))
}

func TestNotifyNewMessageOfflineRecipient(t *testing.T) {
	h := newTestHub("alice")
	require.False(t, h.NotifyNewMessage("alice@example.com", []byte(`{}`)))
}

type failingTransport struct {
	fakeTransport
}

func (t *failingTransport) Send(Frame) error { return errors.New("broken pipe") }

func TestWriteFailureDropsConnection(t *testing.T) {
	h := newTestHub("alice")
	ft := &failingTransport{}

	_, err := h.Connect(context.Background(), "token-alice", ft)
	require.NoError(t, err)

	// The confirmation frame hits the failing transport and the write loop
	// drops the connection.
	require.Eventually(t, func() bool {
		return !h.Connected("alice@example.com")
	}, time.Second, 5*time.Millisecond)
	require.True(t, ft.isClosed())
}
