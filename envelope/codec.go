// Package envelope builds and validates the signed message envelopes exchanged
// between identities.
package envelope

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lockstitch/courier/core"
	"github.com/lockstitch/courier/internal/crypto"
	"github.com/lockstitch/courier/internal/metrics"
	"github.com/lockstitch/courier/ports"
)

const (
	// DefaultMaxAge is the envelope freshness window. An envelope exactly at
	// the window edge is still accepted.
	DefaultMaxAge = 5 * time.Minute

	// DefaultMaxPayload is the payload size ceiling in bytes.
	DefaultMaxPayload = 64 * 1024
)

// Codec creates and validates envelopes against a replay guard.
type Codec struct {
	guard      ports.ReplayGuard
	maxAge     time.Duration
	maxPayload int
	now        func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the codec's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithMaxAge overrides the freshness window.
func WithMaxAge(d time.Duration) Option {
	return func(c *Codec) { c.maxAge = d }
}

// WithMaxPayload overrides the payload size ceiling.
func WithMaxPayload(n int) Option {
	return func(c *Codec) { c.maxPayload = n }
}

// NewCodec creates a codec that consults guard for replay checks.
func NewCodec(guard ports.ReplayGuard, opts ...Option) *Codec {
	c := &Codec{
		guard:      guard,
		maxAge:     DefaultMaxAge,
		maxPayload: DefaultMaxPayload,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create builds a signed envelope. The signature covers the fixed-order
// concatenation of every other field; the envelope is immutable once signed.
func (c *Codec) Create(typ core.EnvelopeType, from, to, payload, privateKey string) (*core.Envelope, error) {
	if !core.KnownEnvelopeType(typ) {
		return nil, fmt.Errorf("unknown envelope type %q", typ)
	}
	if len(payload) > c.maxPayload {
		return nil, core.ErrPayloadTooLarge
	}

	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}

	env := &core.Envelope{
		Version:   core.EnvelopeVersion,
		Type:      typ,
		From:      from,
		To:        to,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
		Nonce:     nonce,
		Payload:   payload,
	}

	sig, err := crypto.Sign(signingInput(env), privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign envelope: %w", err)
	}
	env.Signature = sig

	return env, nil
}

// Result is the outcome of envelope validation. Partial validity does not
// exist: any single failure marks the whole envelope invalid.
type Result struct {
	Valid  bool
	Errors []string
}

// Validate checks env against publicKey and the replay guard, accumulating
// every applicable failure rather than stopping at the first. The nonce is
// recorded as consumed on first sight.
func (c *Codec) Validate(ctx context.Context, env *core.Envelope, publicKey string) Result {
	var errs []string

	if env.Version != core.EnvelopeVersion {
		errs = append(errs, "version mismatch")
	}
	if !core.KnownEnvelopeType(env.Type) {
		errs = append(errs, "unknown envelope type")
	}
	if !core.IsValidIdentifier(env.From) {
		errs = append(errs, "malformed sender address")
	}
	if !core.IsValidIdentifier(env.To) {
		errs = append(errs, "malformed recipient address")
	}

	ts, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	if err != nil {
		errs = append(errs, "malformed timestamp")
	} else {
		age := c.now().Sub(ts)
		if age < 0 {
			errs = append(errs, "timestamp is in the future")
		} else if age > c.maxAge {
			errs = append(errs, "timestamp outside freshness window")
		}
	}

	if len(env.Nonce) != crypto.NonceSize*2 {
		errs = append(errs, "nonce missing or wrong length")
	} else {
		replayed, err := c.guard.Consume(ctx, env.Nonce)
		switch {
		case err != nil:
			errs = append(errs, "replay check failed")
		case replayed:
			errs = append(errs, "nonce replayed")
		}
	}

	if len(env.Payload) > c.maxPayload {
		errs = append(errs, "payload exceeds size ceiling")
	}

	if !crypto.Verify(signingInput(env), env.Signature, publicKey) {
		errs = append(errs, "signature verification failed")
	}

	if len(errs) > 0 {
		metrics.EnvelopesValidated.WithLabelValues("rejected").Inc()
		return Result{Valid: false, Errors: errs}
	}
	metrics.EnvelopesValidated.WithLabelValues("accepted").Inc()
	return Result{Valid: true}
}

// signingInput is the version-pinned byte string covered by the signature.
func signingInput(env *core.Envelope) []byte {
	return []byte(strings.Join([]string{
		env.Version,
		string(env.Type),
		env.From,
		env.To,
		env.Timestamp,
		env.Nonce,
		env.Payload,
	}, "|"))
}

// EncodePayload serializes an encrypted blob into the envelope payload form.
func EncodePayload(blob core.EncryptedBlob) (string, error) {
	raw, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(raw), nil
}

// DecodePayload parses an envelope payload back into an encrypted blob.
func DecodePayload(payload string) (core.EncryptedBlob, error) {
	var blob core.EncryptedBlob
	if err := json.Unmarshal([]byte(payload), &blob); err != nil {
		return core.EncryptedBlob{}, fmt.Errorf("failed to decode payload: %w", err)
	}
	return blob, nil
}
