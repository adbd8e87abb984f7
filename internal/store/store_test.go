package store

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randyrahmani/CareLogG8/pkg/encryption"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

func newCrypto(t *testing.T) *encryption.CryptoStore {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cs, err := encryption.NewCryptoStore(key)
	require.NoError(t, err)
	return cs
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.dat")
	st := New(path, newCrypto(t), logger.New("error"), nil)
	require.NoError(t, st.Load())
	return st, path
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	st, _ := newTestStore(t)

	err := st.View(func(doc *types.Document) error {
		assert.Empty(t, doc.Hospitals)
		return nil
	})
	require.NoError(t, err)
}

func TestSaveThenLoadIsFixedPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.dat")
	crypto := newCrypto(t)

	st := New(path, crypto, logger.New("error"), nil)
	require.NoError(t, st.Load())

	err := st.Update(func(doc *types.Document) error {
		h := EnsureHospital(doc, "mercy")
		h.Users[types.UserKey{Username: "alice", Role: types.RolePatient}] = &types.UserRecord{
			Username: "alice",
			Role:     types.RolePatient,
			Status:   types.StatusApproved,
		}
		h.Notes = append(h.Notes, &types.NoteRecord{NoteID: "n1", PatientID: "alice", Mood: 5})
		return nil
	})
	require.NoError(t, err)

	// A second store over the same file sees the same document.
	st2 := New(path, crypto, logger.New("error"), nil)
	require.NoError(t, st2.Load())

	err = st2.View(func(doc *types.Document) error {
		h := doc.Hospital("mercy")
		require.NotNil(t, h)
		require.NotNil(t, h.User("alice", types.RolePatient))
		require.Len(t, h.Notes, 1)
		assert.Equal(t, "n1", h.Notes[0].NoteID)
		return nil
	})
	require.NoError(t, err)
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.dat")
	require.NoError(t, os.WriteFile(path, []byte("this is not ciphertext"), 0o600))

	st := New(path, newCrypto(t), logger.New("error"), nil)
	require.NoError(t, st.Load())

	err := st.View(func(doc *types.Document) error {
		assert.Empty(t, doc.Hospitals)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateErrorDoesNotPersist(t *testing.T) {
	st, path := newTestStore(t)

	boom := errors.New("boom")
	err := st.Update(func(doc *types.Document) error {
		return boom
	})
	assert.Equal(t, boom, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "aborted update must not write the data file")
}

func TestUpdatePersistsOnDisk(t *testing.T) {
	st, path := newTestStore(t)

	require.NoError(t, st.Update(func(doc *types.Document) error {
		EnsureHospital(doc, "mercy")
		return nil
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "mercy", "data file must be encrypted")
}

func TestApplyDefaultsFillsMissingStructure(t *testing.T) {
	doc := &types.Document{Hospitals: map[string]*types.Hospital{
		"bare": {},
	}}
	applyDefaults(doc)

	h := doc.Hospitals["bare"]
	assert.NotNil(t, h.Users)
	assert.NotNil(t, h.Notes)
	assert.NotNil(t, h.Alerts)
	assert.NotNil(t, h.Chats.General)
	assert.NotNil(t, h.Chats.Direct)
}

func TestHospitalDatasetUnknownHospital(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.HospitalDataset("nowhere")
	require.Error(t, err)
	var clErr *types.CareLogError
	require.ErrorAs(t, err, &clErr)
	assert.Equal(t, types.ErrorTypeNotFound, clErr.Type)
}

func TestHospitalDatasetIsDeepCopy(t *testing.T) {
	st, _ := newTestStore(t)

	require.NoError(t, st.Update(func(doc *types.Document) error {
		h := EnsureHospital(doc, "mercy")
		h.Notes = append(h.Notes, &types.NoteRecord{NoteID: "n1", Notes: "original"})
		return nil
	}))

	ds, err := st.HospitalDataset("mercy")
	require.NoError(t, err)
	require.Len(t, ds.Notes, 1)

	ds.Notes[0].Notes = "mutated"

	err = st.View(func(doc *types.Document) error {
		assert.Equal(t, "original", doc.Hospital("mercy").Notes[0].Notes)
		return nil
	})
	require.NoError(t, err)
}
