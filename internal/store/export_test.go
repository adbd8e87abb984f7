package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randyrahmani/CareLogG8/pkg/types"
)

func sampleDataset() *types.HospitalDataset {
	return &types.HospitalDataset{
		HospitalID: "mercy",
		Users: map[types.UserKey]*types.UserRecord{
			{Username: "zoe", Role: types.RolePatient}:       {Username: "zoe", Role: types.RolePatient},
			{Username: "alice", Role: types.RolePatient}:     {Username: "alice", Role: types.RolePatient},
			{Username: "dr_jones", Role: types.RoleClinician}: {Username: "dr_jones", Role: types.RoleClinician},
		},
		Notes: []*types.NoteRecord{
			{
				Timestamp: "2026-02-01T10:00:00Z",
				PatientID: "alice",
				AuthorID:  "dr_jones",
				Source:    types.SourceClinician,
				Mood:      6, Pain: 2, Appetite: 7,
				Notes:     "Recovering well",
				Diagnoses: "Post-op day 3",
			},
			{
				Timestamp: "2026-01-15T08:30:00Z",
				PatientID: "alice",
				AuthorID:  "alice",
				Source:    types.SourcePatient,
				Mood:      3, Pain: 8, Appetite: 4,
				Notes: "Rough night",
			},
		},
	}
}

func TestRenderUsersCSVSortedWithHeader(t *testing.T) {
	out, err := RenderUsersCSV(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "username,role", lines[0])
	assert.Equal(t, "alice,patient", lines[1])
	assert.Equal(t, "dr_jones,clinician", lines[2])
	assert.Equal(t, "zoe,patient", lines[3])
}

func TestRenderNotesCSV(t *testing.T) {
	out, err := RenderNotesCSV(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,patient_id,author_id,source,mood,pain,appetite,notes,diagnoses", lines[0])
	assert.Contains(t, lines[1], "2026-02-01T10:00:00Z")
	assert.Contains(t, lines[1], "Post-op day 3")
}

func TestRenderNotesReportFormat(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := RenderNotesReport(sampleDataset(), now)

	assert.Contains(t, out, "CareLog Notes Report - Generated on 2026-03-01 12:00:00")
	assert.Contains(t, out, strings.Repeat("=", 80))

	// Oldest note first, with the patient-facing section label.
	patientIdx := strings.Index(out, "Patient Wrote:")
	clinicianIdx := strings.Index(out, "Narrative Notes:")
	require.NotEqual(t, -1, patientIdx)
	require.NotEqual(t, -1, clinicianIdx)
	assert.Less(t, patientIdx, clinicianIdx)

	// Diagnoses section appears only for clinician entries.
	assert.Equal(t, 1, strings.Count(out, "Diagnoses/Medical Notes:"))
	assert.Contains(t, out, "Entry Source: Clinician")
	assert.Contains(t, out, "Entry Source: Patient")
}
