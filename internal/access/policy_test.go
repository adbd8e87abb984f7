package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randyrahmani/CareLogG8/pkg/types"
)

func sampleHospital() *types.Hospital {
	h := types.NewHospital()

	alice := &types.UserRecord{Username: "alice", Role: types.RolePatient, PasswordHash: "hash", Salt: "salt"}
	alice.AddClinician("dr_jones")
	bob := &types.UserRecord{Username: "bob", Role: types.RolePatient}

	h.Users[alice.Key()] = alice
	h.Users[bob.Key()] = bob
	h.Users[types.UserKey{Username: "dr_jones", Role: types.RoleClinician}] = &types.UserRecord{Username: "dr_jones", Role: types.RoleClinician}
	h.Users[types.UserKey{Username: "dr_smith", Role: types.RoleClinician}] = &types.UserRecord{Username: "dr_smith", Role: types.RoleClinician}
	h.Users[types.UserKey{Username: "root", Role: types.RoleAdmin}] = &types.UserRecord{Username: "root", Role: types.RoleAdmin}

	h.Notes = []*types.NoteRecord{
		{NoteID: "n1", PatientID: "alice", AuthorID: "alice", Source: types.SourcePatient},
		{NoteID: "n2", PatientID: "alice", AuthorID: "alice", Source: types.SourcePatient, IsPrivate: true},
		{NoteID: "n3", PatientID: "alice", AuthorID: "dr_jones", Source: types.SourceClinician},
		{NoteID: "n4", PatientID: "bob", AuthorID: "bob", Source: types.SourcePatient,
			AIFeedback: &types.AIFeedback{Text: "rest", Status: types.FeedbackPending}},
		{NoteID: "n5", PatientID: "alice", AuthorID: "alice", Source: types.SourcePatient,
			AIFeedback: &types.AIFeedback{Text: "walk", Status: types.FeedbackPending}},
	}
	return h
}

func noteIDs(notes []types.NoteRecord) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.NoteID)
	}
	return out
}

func TestVisiblePatients(t *testing.T) {
	h := sampleHospital()

	admin := VisiblePatients(h, Viewer{Username: "root", Role: types.RoleAdmin})
	assert.Len(t, admin, 2)
	for _, u := range admin {
		assert.Empty(t, u.PasswordHash, "roster entries must not leak credentials")
		assert.Empty(t, u.Salt)
	}

	assigned := VisiblePatients(h, Viewer{Username: "dr_jones", Role: types.RoleClinician})
	require.Len(t, assigned, 1)
	assert.Equal(t, "alice", assigned[0].Username)

	unassigned := VisiblePatients(h, Viewer{Username: "dr_smith", Role: types.RoleClinician})
	assert.Empty(t, unassigned)

	patient := VisiblePatients(h, Viewer{Username: "alice", Role: types.RolePatient})
	assert.Empty(t, patient)

	assert.Empty(t, VisiblePatients(nil, Viewer{Username: "root", Role: types.RoleAdmin}))
}

func TestNotesForPatientVisibility(t *testing.T) {
	h := sampleHospital()

	// The patient sees everything they own, private included.
	own := NotesForPatient(h, Viewer{Username: "alice", Role: types.RolePatient}, "alice")
	assert.ElementsMatch(t, []string{"n1", "n2", "n3", "n5"}, noteIDs(own))

	// A patient cannot read another patient's notes.
	other := NotesForPatient(h, Viewer{Username: "bob", Role: types.RolePatient}, "alice")
	assert.Empty(t, other)

	// An admin sees everything.
	admin := NotesForPatient(h, Viewer{Username: "root", Role: types.RoleAdmin}, "alice")
	assert.ElementsMatch(t, []string{"n1", "n2", "n3", "n5"}, noteIDs(admin))

	// An assigned clinician sees everything except private patient notes.
	assigned := NotesForPatient(h, Viewer{Username: "dr_jones", Role: types.RoleClinician}, "alice")
	assert.ElementsMatch(t, []string{"n1", "n3", "n5"}, noteIDs(assigned))

	// An unassigned clinician sees nothing at all.
	unassigned := NotesForPatient(h, Viewer{Username: "dr_smith", Role: types.RoleClinician}, "alice")
	assert.Empty(t, unassigned)
}

func TestPendingFeedbackVisibility(t *testing.T) {
	h := sampleHospital()

	admin := PendingFeedback(h, Viewer{Username: "root", Role: types.RoleAdmin})
	assert.ElementsMatch(t, []string{"n4", "n5"}, noteIDs(admin))

	clinician := PendingFeedback(h, Viewer{Username: "dr_jones", Role: types.RoleClinician})
	assert.ElementsMatch(t, []string{"n5"}, noteIDs(clinician))

	patient := PendingFeedback(h, Viewer{Username: "alice", Role: types.RolePatient})
	assert.Empty(t, patient)
}

func TestCanReviewFeedback(t *testing.T) {
	h := sampleHospital()
	aliceNote := h.Notes[4] // alice's note with pending feedback
	bobNote := h.Notes[3]   // bob has no assigned clinicians

	assert.True(t, CanReviewFeedback(h, Viewer{"root", types.RoleAdmin}, aliceNote))
	assert.True(t, CanReviewFeedback(h, Viewer{"root", types.RoleAdmin}, bobNote))

	assert.True(t, CanReviewFeedback(h, Viewer{"dr_jones", types.RoleClinician}, aliceNote))
	assert.False(t, CanReviewFeedback(h, Viewer{"dr_smith", types.RoleClinician}, aliceNote))
	assert.False(t, CanReviewFeedback(h, Viewer{"dr_jones", types.RoleClinician}, bobNote))

	assert.False(t, CanReviewFeedback(h, Viewer{"alice", types.RolePatient}, aliceNote))
	assert.False(t, CanReviewFeedback(h, Viewer{"root", types.RoleAdmin}, nil))
}

func TestCanModifyNote(t *testing.T) {
	patientNote := &types.NoteRecord{NoteID: "n1", PatientID: "alice", AuthorID: "alice", Source: types.SourcePatient}
	clinicianNote := &types.NoteRecord{NoteID: "n3", PatientID: "alice", AuthorID: "dr_jones", Source: types.SourceClinician}

	tests := []struct {
		name   string
		viewer Viewer
		note   *types.NoteRecord
		want   bool
	}{
		{"patient edits own note", Viewer{"alice", types.RolePatient}, patientNote, true},
		{"other patient denied", Viewer{"bob", types.RolePatient}, patientNote, false},
		{"patient cannot touch clinician note about them", Viewer{"alice", types.RolePatient}, clinicianNote, false},
		{"clinician edits own note", Viewer{"dr_jones", types.RoleClinician}, clinicianNote, true},
		{"other clinician denied", Viewer{"dr_smith", types.RoleClinician}, clinicianNote, false},
		{"clinician cannot touch patient note", Viewer{"dr_jones", types.RoleClinician}, patientNote, false},
		{"admin denied", Viewer{"root", types.RoleAdmin}, patientNote, false},
		{"nil note denied", Viewer{"alice", types.RolePatient}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModifyNote(tt.viewer, tt.note))
		})
	}
}

func TestCopiesAreIndependent(t *testing.T) {
	h := sampleHospital()

	notes := NotesForPatient(h, Viewer{Username: "root", Role: types.RoleAdmin}, "alice")
	require.NotEmpty(t, notes)
	notes[0].Notes = "mutated"
	for _, n := range notes {
		if n.AIFeedback != nil {
			n.AIFeedback.Text = "mutated"
		}
	}

	assert.NotEqual(t, "mutated", h.Notes[0].Notes)
	assert.Equal(t, "walk", h.Notes[4].AIFeedback.Text)
}
