package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/lockstitch/courier/core"
)

const (
	// KeySize is the symmetric key size in bytes.
	KeySize = chacha20poly1305.KeySize
	// nonceSize is the cipher nonce (IV) size in bytes.
	nonceSize = chacha20poly1305.NonceSize
	// tagSize is the authentication tag size in bytes.
	tagSize = chacha20poly1305.Overhead
)

// Encrypt seals plaintext under key with ChaCha20-Poly1305, generating a fresh
// random nonce for every call.
func Encrypt(plaintext, key []byte) (core.EncryptedBlob, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return core.EncryptedBlob{}, fmt.Errorf("invalid encryption key: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return core.EncryptedBlob{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - tagSize

	return core.EncryptedBlob{
		IV:         hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(sealed[:split]),
		Tag:        hex.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt opens blob under key. The authentication tag is validated before any
// plaintext is produced; a tampered or wrong-key blob fails closed with
// core.ErrDecryptAuth.
func Decrypt(blob core.EncryptedBlob, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("invalid decryption key: %w", err)
	}

	nonce, err := hex.DecodeString(blob.IV)
	if err != nil || len(nonce) != nonceSize {
		return nil, core.ErrDecryptAuth
	}
	ciphertext, err := hex.DecodeString(blob.Ciphertext)
	if err != nil {
		return nil, core.ErrDecryptAuth
	}
	tag, err := hex.DecodeString(blob.Tag)
	if err != nil || len(tag) != tagSize {
		return nil, core.ErrDecryptAuth
	}

	plaintext, err := aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, core.ErrDecryptAuth
	}
	return plaintext, nil
}
