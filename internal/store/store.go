package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/randyrahmani/CareLogG8/pkg/encryption"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/monitoring"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// Store is the document repository: the sole owner of the in-memory
// document and the sole writer of the encrypted file. Every mutation in the
// system flows through Update, which rewrites the whole file. The full
// rewrite bounds scalability and is a deliberate, documented constraint of
// the single-process deployment, not an oversight.
type Store struct {
	mu      sync.RWMutex
	path    string
	crypto  *encryption.CryptoStore
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
	doc     *types.Document
}

// New creates a store backed by the encrypted file at path. Call Load before
// first use.
func New(path string, crypto *encryption.CryptoStore, log *logger.Logger, metrics *monitoring.MetricsCollector) *Store {
	return &Store{
		path:    path,
		crypto:  crypto,
		logger:  log,
		metrics: metrics,
	}
}

// Load reads and decrypts the document file. A missing file, undecryptable
// ciphertext, or malformed JSON yields a fresh empty document with a
// warning: the system favors availability over hard failure on boot.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	doc := s.load()
	applyDefaults(doc)
	s.doc = doc

	if s.metrics != nil {
		s.metrics.RecordStoreOperation("load", true, time.Since(start))
	}
	return nil
}

func (s *Store) load() *types.Document {
	ciphertext, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read data file, starting empty", "path", s.path, "error", err)
		}
		return types.NewDocument()
	}

	if len(ciphertext) == 0 {
		return types.NewDocument()
	}

	plaintext, err := s.crypto.Decrypt(ciphertext)
	if err != nil {
		s.logger.Warn("Data file is corrupt or encrypted under a different key, starting empty", "path", s.path, "error", err)
		return types.NewDocument()
	}

	var doc types.Document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		s.logger.Warn("Data file holds malformed JSON, starting empty", "path", s.path, "error", err)
		return types.NewDocument()
	}

	return &doc
}

// View runs fn with read access to the document. fn must not retain or
// mutate the document.
func (s *Store) View(fn func(doc *types.Document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc == nil {
		return types.NewInternalError(types.ErrCodeInternalError, "store not loaded", nil)
	}
	return fn(s.doc)
}

// Update runs fn with write access to the document and persists the result.
// If fn returns an error nothing is saved; fn must not leave the document
// partially mutated on error.
func (s *Store) Update(fn func(doc *types.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return types.NewInternalError(types.ErrCodeInternalError, "store not loaded", nil)
	}

	if err := fn(s.doc); err != nil {
		return err
	}

	start := time.Now()
	err := s.save()
	if s.metrics != nil {
		s.metrics.RecordStoreOperation("save", err == nil, time.Since(start))
	}
	return err
}

// save serializes, encrypts and atomically replaces the data file. The
// write-to-temp-then-rename dance keeps a kill mid-write from corrupting
// the previous snapshot.
func (s *Store) save() error {
	plaintext, err := json.Marshal(s.doc)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to serialize document", err)
	}

	ciphertext, err := s.crypto.Encrypt(plaintext)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to encrypt document", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace data file: %w", err)
	}

	return nil
}

// EnsureHospital returns the hospital entry for the id, creating the full
// skeleton when absent. Callers decide whether implicit creation is allowed.
func EnsureHospital(doc *types.Document, hospitalID string) *types.Hospital {
	if doc.Hospitals == nil {
		doc.Hospitals = make(map[string]*types.Hospital)
	}
	h, ok := doc.Hospitals[hospitalID]
	if !ok {
		h = types.NewHospital()
		doc.Hospitals[hospitalID] = h
	}
	return h
}

// applyDefaults fills in missing structure for every hospital so older or
// partially written records remain well-formed. Idempotent: applying it to
// an already well-formed document changes nothing.
func applyDefaults(doc *types.Document) {
	if doc.Hospitals == nil {
		doc.Hospitals = make(map[string]*types.Hospital)
	}
	for id, h := range doc.Hospitals {
		if h == nil {
			doc.Hospitals[id] = types.NewHospital()
			continue
		}
		if h.Users == nil {
			h.Users = make(map[types.UserKey]*types.UserRecord)
		}
		if h.Notes == nil {
			h.Notes = []*types.NoteRecord{}
		}
		if h.Alerts == nil {
			h.Alerts = []*types.AlertRecord{}
		}
		if h.Chats.General == nil {
			h.Chats.General = make(map[string][]*types.Message)
		}
		if h.Chats.Direct == nil {
			h.Chats.Direct = make(map[string]map[string][]*types.Message)
		}
	}
}

// HospitalDataset returns a deep copy of the unfiltered users+notes view of
// one hospital for bulk export. The result is admin-only by convention of
// the caller; no filtering happens here.
func (s *Store) HospitalDataset(hospitalID string) (*types.HospitalDataset, error) {
	var ds *types.HospitalDataset
	err := s.View(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "hospital not found: "+hospitalID)
		}

		users := make(map[types.UserKey]*types.UserRecord, len(h.Users))
		for k, u := range h.Users {
			cu := *u
			cu.AssignedClinicians = append([]string(nil), u.AssignedClinicians...)
			users[k] = &cu
		}

		notes := make([]*types.NoteRecord, 0, len(h.Notes))
		for _, n := range h.Notes {
			cn := *n
			if n.AIFeedback != nil {
				fb := *n.AIFeedback
				cn.AIFeedback = &fb
			}
			notes = append(notes, &cn)
		}

		ds = &types.HospitalDataset{HospitalID: hospitalID, Users: users, Notes: notes}
		return nil
	})
	return ds, err
}
