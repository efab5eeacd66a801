package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Identity keys bundle a signing pair and an agreement pair. The encoded
// public key is ed25519 public || x25519 public; the encoded private key is
// ed25519 private || x25519 private. Both are hex strings.
const (
	publicKeyRawSize  = ed25519.PublicKeySize + curve25519.PointSize
	privateKeyRawSize = ed25519.PrivateKeySize + curve25519.ScalarSize
)

// protocolSalt binds every derived shared secret to this protocol. Changing it
// is a wire-breaking change.
var protocolSalt = []byte("courier/shared-secret/v1")

// KeyPair holds the encoded halves of an identity key pair.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// GenerateKeyPair creates a fresh identity key pair. An entropy failure is
// fatal and returned as-is, never retried.
func GenerateKeyPair() (KeyPair, error) {
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate signing key: %w", err)
	}

	xPriv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(xPriv); err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate agreement key: %w", err)
	}
	xPub, err := curve25519.X25519(xPriv, curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to derive agreement public key: %w", err)
	}

	pub := append(append([]byte{}, edPub...), xPub...)
	priv := append(append([]byte{}, edPriv...), xPriv...)

	return KeyPair{
		PublicKey:  hex.EncodeToString(pub),
		PrivateKey: hex.EncodeToString(priv),
	}, nil
}

// DeriveSharedSecret computes the X25519 shared secret between the caller's
// private key and the peer's public key, stretched through HKDF-SHA256 with
// the fixed protocol salt. Both parties compute the same 32-byte key
// regardless of which side calls first.
func DeriveSharedSecret(privateKey, peerPublicKey string) ([]byte, error) {
	priv, err := decodePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	peer, err := decodePublicKey(peerPublicKey)
	if err != nil {
		return nil, err
	}

	shared, err := curve25519.X25519(priv[ed25519.PrivateKeySize:], peer[ed25519.PublicKeySize:])
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}

	key := make([]byte, KeySize)
	kdf := hkdf.New(sha256.New, shared, protocolSalt, nil)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("key stretch failed: %w", err)
	}
	return key, nil
}

// Sign signs data with the identity's private key and returns a hex signature.
func Sign(data []byte, privateKey string) (string, error) {
	priv, err := decodePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(ed25519.PrivateKey(priv[:ed25519.PrivateKeySize]), data)
	return hex.EncodeToString(sig), nil
}

// Verify reports whether signature is valid for data under publicKey. It
// returns false on any malformed input and never panics.
func Verify(data []byte, signature, publicKey string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	pub, err := decodePublicKey(publicKey)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:ed25519.PublicKeySize]), data, sig)
}

func decodePublicKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != publicKeyRawSize {
		return nil, fmt.Errorf("malformed public key")
	}
	return raw, nil
}

func decodePrivateKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != privateKeyRawSize {
		return nil, fmt.Errorf("malformed private key")
	}
	return raw, nil
}
