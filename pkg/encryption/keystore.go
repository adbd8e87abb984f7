package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/randyrahmani/CareLogG8/pkg/logger"
)

// FileKeyStore manages the symmetric key backing the document store. The
// key lives base64-encoded in a local file and is generated once if absent.
// Loss of this file makes all previously persisted data unrecoverable.
type FileKeyStore struct {
	path   string
	logger *logger.Logger
}

// NewFileKeyStore creates a key store backed by the given file path.
func NewFileKeyStore(path string, log *logger.Logger) *FileKeyStore {
	return &FileKeyStore{path: path, logger: log}
}

// LoadOrGenerate returns the persisted 32-byte key, generating and saving a
// fresh one when the file does not exist yet.
func (ks *FileKeyStore) LoadOrGenerate() ([]byte, error) {
	raw, err := os.ReadFile(ks.path)
	if err == nil {
		key, decErr := base64.StdEncoding.DecodeString(string(raw))
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode key file %s: %w", ks.path, decErr)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key file %s holds %d bytes, want 32", ks.path, len(key))
		}
		return key, nil
	}

	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file %s: %w", ks.path, err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(ks.path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file %s: %w", ks.path, err)
	}

	ks.logger.Info("Generated new encryption key", "path", ks.path)
	return key, nil
}
