package core

// EnvelopeVersion is the protocol version pinned into every envelope and
// covered by its signature.
const EnvelopeVersion = "1.0"

// EnvelopeType enumerates the five envelope kinds on the wire.
type EnvelopeType string

const (
	EnvelopeAuth      EnvelopeType = "auth"
	EnvelopeHandshake EnvelopeType = "handshake"
	EnvelopeMessage   EnvelopeType = "message"
	EnvelopeAck       EnvelopeType = "ack"
	EnvelopePresence  EnvelopeType = "presence"
)

// KnownEnvelopeType reports whether t is one of the five envelope kinds.
func KnownEnvelopeType(t EnvelopeType) bool {
	switch t {
	case EnvelopeAuth, EnvelopeHandshake, EnvelopeMessage, EnvelopeAck, EnvelopePresence:
		return true
	}
	return false
}

// Envelope is a signed, versioned message unit exchanged between identities.
// The signature covers every other field in a fixed, version-pinned order,
// so the envelope is immutable once signed.
type Envelope struct {
	Version   string       `json:"version"`
	Type      EnvelopeType `json:"type"`
	From      string       `json:"from"`
	To        string       `json:"to"`
	Timestamp string       `json:"timestamp"` // RFC 3339, zone-qualified
	Nonce     string       `json:"nonce"`     // 64 hex characters
	Signature string       `json:"signature"` // hex-encoded signature
	Payload   string       `json:"payload"`   // opaque, typically a serialized EncryptedBlob
}

// EncryptedBlob is the output of authenticated symmetric encryption. The tag
// must validate before the ciphertext is trusted. Password-derived blobs carry
// the KDF salt concatenated in front of the nonce inside IV.
type EncryptedBlob struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	Tag        string `json:"tag"`
}
