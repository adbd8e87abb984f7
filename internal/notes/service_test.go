package notes

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randyrahmani/CareLogG8/internal/access"
	"github.com/randyrahmani/CareLogG8/internal/store"
	"github.com/randyrahmani/CareLogG8/pkg/encryption"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	crypto, err := encryption.NewCryptoStore(key)
	require.NoError(t, err)

	st := store.New(filepath.Join(t.TempDir(), "records.dat"), crypto, logger.New("error"), nil)
	require.NoError(t, st.Load())

	require.NoError(t, st.Update(func(doc *types.Document) error {
		h := store.EnsureHospital(doc, "mercy")
		alice := &types.UserRecord{Username: "alice", Role: types.RolePatient, Status: types.StatusApproved}
		alice.AddClinician("dr_jones")
		h.Users[alice.Key()] = alice
		h.Users[types.UserKey{Username: "dr_jones", Role: types.RoleClinician}] = &types.UserRecord{
			Username: "dr_jones", Role: types.RoleClinician, Status: types.StatusApproved,
		}
		return nil
	}))

	return NewService(st, logger.New("error"))
}

func addNote(t *testing.T, s *Service, req NewNoteRequest) *types.NoteRecord {
	t.Helper()
	note, err := s.AddNote(&req)
	require.NoError(t, err)
	return note
}

func patientNote(pain int) NewNoteRequest {
	return NewNoteRequest{
		HospitalID: "mercy",
		PatientID:  "alice",
		AuthorID:   "alice",
		Mood:       5,
		Pain:       pain,
		Appetite:   5,
		Notes:      "daily entry",
		Source:     types.SourcePatient,
	}
}

func TestAddNoteValidation(t *testing.T) {
	s := newTestService(t)

	req := patientNote(5)
	req.Mood = 11
	_, err := s.AddNote(&req)
	assert.Error(t, err)

	req = patientNote(5)
	req.Pain = -1
	_, err = s.AddNote(&req)
	assert.Error(t, err)

	req = patientNote(5)
	req.Source = "robot"
	_, err = s.AddNote(&req)
	assert.Error(t, err)

	req = patientNote(5)
	req.HospitalID = "nowhere"
	_, err = s.AddNote(&req)
	assert.Error(t, err)
}

func TestAddNotePrivacyOnlyForPatientSource(t *testing.T) {
	s := newTestService(t)

	req := patientNote(3)
	req.IsPrivate = true
	note := addNote(t, s, req)
	assert.True(t, note.IsPrivate)

	clinReq := NewNoteRequest{
		HospitalID: "mercy", PatientID: "alice", AuthorID: "dr_jones",
		Mood: 5, Pain: 5, Appetite: 5,
		Source: types.SourceClinician, IsPrivate: true,
	}
	note = addNote(t, s, clinReq)
	assert.False(t, note.IsPrivate, "clinician notes cannot be private")
}

func TestPainTenCreatesAlertSharingNoteID(t *testing.T) {
	s := newTestService(t)

	note := addNote(t, s, patientNote(10))

	alerts, err := s.PainAlerts("mercy")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, note.NoteID, alerts[0].AlertID)
	assert.Equal(t, "alice", alerts[0].PatientID)
	assert.Equal(t, types.AlertStatusActive, alerts[0].Status)
}

func TestEveryPainTenEntryAlertsAgain(t *testing.T) {
	s := newTestService(t)

	addNote(t, s, patientNote(10))
	addNote(t, s, patientNote(10))

	alerts, err := s.PainAlerts("mercy")
	require.NoError(t, err)
	assert.Len(t, alerts, 2, "repeated 10/10 entries are not deduplicated")
}

func TestNoAlertBelowTenOrFromClinician(t *testing.T) {
	s := newTestService(t)

	addNote(t, s, patientNote(9))
	addNote(t, s, NewNoteRequest{
		HospitalID: "mercy", PatientID: "alice", AuthorID: "dr_jones",
		Mood: 5, Pain: 10, Appetite: 5,
		Source: types.SourceClinician,
	})

	alerts, err := s.PainAlerts("mercy")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestUpdateNoteMergesOnlyProvidedFields(t *testing.T) {
	s := newTestService(t)
	note := addNote(t, s, patientNote(4))

	pain := 7
	text := "updated entry"
	require.NoError(t, s.UpdateNote("mercy", note.NoteID, &types.NoteUpdates{Pain: &pain, Notes: &text}))

	viewer := access.Viewer{Username: "alice", Role: types.RolePatient}
	visible, err := s.NotesForPatient("mercy", "alice", viewer)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, 7, visible[0].Pain)
	assert.Equal(t, "updated entry", visible[0].Notes)
	assert.Equal(t, 5, visible[0].Mood, "unspecified fields are untouched")
}

func TestUpdateUnknownNoteFails(t *testing.T) {
	s := newTestService(t)
	pain := 7
	err := s.UpdateNote("mercy", "ghost", &types.NoteUpdates{Pain: &pain})
	require.Error(t, err)
	var clErr *types.CareLogError
	require.ErrorAs(t, err, &clErr)
	assert.Equal(t, types.ErrorTypeNotFound, clErr.Type)
}

func TestDeleteNoteIsIdempotent(t *testing.T) {
	s := newTestService(t)
	note := addNote(t, s, patientNote(4))

	require.NoError(t, s.DeleteNote("mercy", note.NoteID))
	require.NoError(t, s.DeleteNote("mercy", note.NoteID), "second delete is a no-op")

	viewer := access.Viewer{Username: "alice", Role: types.RolePatient}
	visible, err := s.NotesForPatient("mercy", "alice", viewer)
	require.NoError(t, err)
	assert.Empty(t, visible)
}

func TestNotesForPatientNewestFirst(t *testing.T) {
	s := newTestService(t)
	first := addNote(t, s, patientNote(2))
	second := addNote(t, s, patientNote(3))

	// Force distinct timestamps; RFC 3339 strings compare chronologically.
	require.NoError(t, s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital("mercy")
		h.Note(first.NoteID).Timestamp = "2026-01-01T10:00:00Z"
		h.Note(second.NoteID).Timestamp = "2026-01-02T10:00:00Z"
		return nil
	}))

	viewer := access.Viewer{Username: "alice", Role: types.RolePatient}
	visible, err := s.NotesForPatient("mercy", "alice", viewer)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, second.NoteID, visible[0].NoteID)
	assert.Equal(t, first.NoteID, visible[1].NoteID)
}

func TestSearchMatchesNotesAndDiagnosesCaseInsensitively(t *testing.T) {
	s := newTestService(t)

	req := patientNote(4)
	req.Notes = "Slept badly, headache"
	addNote(t, s, req)

	addNote(t, s, NewNoteRequest{
		HospitalID: "mercy", PatientID: "alice", AuthorID: "dr_jones",
		Mood: 5, Pain: 5, Appetite: 5,
		Notes: "Follow-up visit", Diagnoses: "Migraine",
		Source: types.SourceClinician,
	})

	viewer := access.Viewer{Username: "alice", Role: types.RolePatient}

	hits, err := s.SearchNotes("mercy", "alice", "HEADACHE", viewer)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = s.SearchNotes("mercy", "alice", "migraine", viewer)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = s.SearchNotes("mercy", "alice", "", viewer)
	require.NoError(t, err)
	assert.Len(t, hits, 2, "empty term returns every visible note")
}

func TestSearchAppliesVisibilityBeforeMatching(t *testing.T) {
	s := newTestService(t)

	req := patientNote(4)
	req.Notes = "private thoughts about headaches"
	req.IsPrivate = true
	addNote(t, s, req)

	clinician := access.Viewer{Username: "dr_jones", Role: types.RoleClinician}
	hits, err := s.SearchNotes("mercy", "alice", "headaches", clinician)
	require.NoError(t, err)
	assert.Empty(t, hits, "private notes never surface through search")
}

func TestDismissAlertIsIdempotent(t *testing.T) {
	s := newTestService(t)
	note := addNote(t, s, patientNote(10))

	require.NoError(t, s.DismissAlert("mercy", note.NoteID))
	require.NoError(t, s.DismissAlert("mercy", note.NoteID))

	alerts, err := s.PainAlerts("mercy")
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
