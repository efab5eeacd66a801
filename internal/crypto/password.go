package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/lockstitch/courier/core"
)

const (
	// bcryptCost is the fixed work factor for stored password hashes.
	bcryptCost = 12

	// argon2id parameters for password-derived encryption keys.
	kdfSaltSize = 16
	kdfTime     = 3
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 4
)

// HashPassword returns an adaptive salted hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// EncryptWithPassword seals plaintext under a key derived from password with
// argon2id and a fresh salt. The salt is carried in front of the cipher nonce
// inside the blob's IV field (fixed widths) so decryption can recover it.
func EncryptWithPassword(plaintext []byte, password string) (core.EncryptedBlob, error) {
	salt := make([]byte, kdfSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return core.EncryptedBlob{}, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := deriveKey(password, salt)
	blob, err := Encrypt(plaintext, key)
	if err != nil {
		return core.EncryptedBlob{}, err
	}

	blob.IV = hex.EncodeToString(salt) + blob.IV
	return blob, nil
}

// DecryptWithPassword reverses EncryptWithPassword. Any malformed blob or
// wrong password fails closed with core.ErrDecryptAuth.
func DecryptWithPassword(blob core.EncryptedBlob, password string) ([]byte, error) {
	raw, err := hex.DecodeString(blob.IV)
	if err != nil || len(raw) != kdfSaltSize+nonceSize {
		return nil, core.ErrDecryptAuth
	}

	key := deriveKey(password, raw[:kdfSaltSize])
	inner := blob
	inner.IV = hex.EncodeToString(raw[kdfSaltSize:])
	return Decrypt(inner, key)
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, kdfTime, kdfMemoryKB, kdfThreads, KeySize)
}
