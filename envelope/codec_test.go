package envelope

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockstitch/courier/adapters/store"
	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/internal/crypto"
)

type fixture struct {
	codec *Codec
	keys  crypto.KeyPair
	now   time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	keys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	f := &fixture{keys: keys, now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.codec = NewCodec(store.NewMemoryReplayGuard(0), opts...)
	return f
}

func (f *fixture) envelope(t *testing.T) *core.Envelope {
	t.Helper()
	env, err := f.codec.Create(core.EnvelopeMessage, "alice@example.com", "bob@example.com", `{"ok":true}`, f.keys.PrivateKey)
	require.NoError(t, err)
	return env
}

func TestCreateValidateRoundtrip(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)

	require.Equal(t, core.EnvelopeVersion, env.Version)
	require.Equal(t, core.EnvelopeMessage, env.Type)
	require.Len(t, env.Nonce, crypto.NonceSize*2)
	require.NotEmpty(t, env.Signature)

	ts, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	require.NoError(t, err)
	require.True(t, ts.Equal(f.now))

	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.True(t, res.Valid)
	require.Empty(t, res.Errors)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	_, err := f.codec.Create("bogus", "alice@example.com", "bob@example.com", "", f.keys.PrivateKey)
	require.Error(t, err)
}

func TestCreateRejectsOversizePayload(t *testing.T) {
	f := newFixture(t, WithMaxPayload(16))
	_, err := f.codec.Create(core.EnvelopeMessage, "alice@example.com", "bob@example.com", strings.Repeat("x", 17), f.keys.PrivateKey)
	require.ErrorIs(t, err, core.ErrPayloadTooLarge)
}

func TestTamperedPayloadFailsSignature(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)
	env.Payload = `{"ok":false}`

	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.False(t, res.Valid)
	require.Equal(t, []string{"signature verification failed"}, res.Errors)
}

func TestWrongKeyFailsSignature(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)

	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	res := f.codec.Validate(context.Background(), env, other.PublicKey)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "signature verification failed")
}

func TestFreshnessWindowBoundary(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)

	// Exactly at the window edge is still fresh.
	f.now = f.now.Add(DefaultMaxAge)
	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.True(t, res.Valid)
}

func TestStaleEnvelopeRejected(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)

	f.now = f.now.Add(DefaultMaxAge + time.Second)
	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.False(t, res.Valid)
	require.Equal(t, []string{"timestamp outside freshness window"}, res.Errors)
}

func TestFutureEnvelopeRejected(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)

	f.now = f.now.Add(-time.Second)
	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.False(t, res.Valid)
	require.Equal(t, []string{"timestamp is in the future"}, res.Errors)
}

func TestNonceReplayRejected(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)

	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.True(t, res.Valid)

	res = f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.False(t, res.Valid)
	require.Equal(t, []string{"nonce replayed"}, res.Errors)
}

func TestReplayConsumedEvenWhenInvalid(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)
	env.Payload = "tampered"

	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.False(t, res.Valid)

	// The nonce was recorded on first sight; a corrected envelope with the
	// same nonce is still a replay.
	res = f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.Contains(t, res.Errors, "nonce replayed")
}

func TestValidationAccumulatesErrors(t *testing.T) {
	f := newFixture(t)
	env := &core.Envelope{
		Version:   "0.9",
		Type:      "bogus",
		From:      "not-an-address",
		To:        "also not",
		Timestamp: "yesterday",
		Nonce:     "tooshort",
		Payload:   "x",
		Signature: "ffff",
	}

	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "version mismatch")
	require.Contains(t, res.Errors, "unknown envelope type")
	require.Contains(t, res.Errors, "malformed sender address")
	require.Contains(t, res.Errors, "malformed recipient address")
	require.Contains(t, res.Errors, "malformed timestamp")
	require.Contains(t, res.Errors, "nonce missing or wrong length")
	require.Contains(t, res.Errors, "signature verification failed")
}

func TestOversizePayloadRejected(t *testing.T) {
	f := newFixture(t)
	env := f.envelope(t)
	env.Payload = strings.Repeat("x", DefaultMaxPayload+1)

	res := f.codec.Validate(context.Background(), env, f.keys.PublicKey)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "payload exceeds size ceiling")
}

func TestEncodeDecodePayload(t *testing.T) {
	blob := core.EncryptedBlob{IV: "aa", Ciphertext: "bb", Tag: "cc"}

	payload, err := EncodePayload(blob)
	require.NoError(t, err)

	got, err := DecodePayload(payload)
	require.NoError(t, err)
	require.Equal(t, blob, got)

	_, err = DecodePayload("{not json")
	require.Error(t, err)
}
