package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// CryptoStore handles 256-bit AES-GCM encryption/decryption of the
// persisted document. Decryption failures are integrity errors: the
// ciphertext is corrupt or was produced under a different key.
type CryptoStore struct {
	key []byte
}

// NewCryptoStore creates a new crypto store from a 32-byte key.
func NewCryptoStore(key []byte) (*CryptoStore, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	k := make([]byte, 32)
	copy(k, key)
	return &CryptoStore{key: k}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM. The random nonce is
// prepended to the returned ciphertext.
func (c *CryptoStore) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM. A failed authentication
// check surfaces as an integrity error, never a panic.
func (c *CryptoStore) Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, types.NewIntegrityError(types.ErrCodeIntegrity, "ciphertext too short", nil)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, types.NewIntegrityError(types.ErrCodeIntegrity, "ciphertext is corrupt or key does not match", err)
	}

	return plaintext, nil
}
