package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// RenderUsersCSV renders the users of an exported dataset as CSV, one row
// per account with username and role only.
func RenderUsersCSV(ds *types.HospitalDataset) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"username", "role"}); err != nil {
		return "", err
	}

	keys := make([]types.UserKey, 0, len(ds.Users))
	for k := range ds.Users {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Username != keys[j].Username {
			return keys[i].Username < keys[j].Username
		}
		return keys[i].Role < keys[j].Role
	})

	for _, k := range keys {
		u := ds.Users[k]
		if err := w.Write([]string{u.Username, string(u.Role)}); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// RenderNotesCSV renders the notes of an exported dataset as CSV.
func RenderNotesCSV(ds *types.HospitalDataset) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"timestamp", "patient_id", "author_id", "source", "mood", "pain", "appetite", "notes", "diagnoses"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, n := range ds.Notes {
		row := []string{
			n.Timestamp,
			n.PatientID,
			n.AuthorID,
			string(n.Source),
			fmt.Sprintf("%d", n.Mood),
			fmt.Sprintf("%d", n.Pain),
			fmt.Sprintf("%d", n.Appetite),
			n.Notes,
			n.Diagnoses,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}

// RenderNotesReport renders all notes as a human-readable text report,
// ordered by timestamp, for printing or offline review.
func RenderNotesReport(ds *types.HospitalDataset, now time.Time) string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	fmt.Fprintf(&b, "CareLog Notes Report - Generated on %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString(rule + "\n")

	notes := make([]*types.NoteRecord, len(ds.Notes))
	copy(notes, ds.Notes)
	sort.Slice(notes, func(i, j int) bool { return notes[i].Timestamp < notes[j].Timestamp })

	for _, n := range notes {
		fmt.Fprintf(&b, "Timestamp: %s\n", n.Timestamp)
		fmt.Fprintf(&b, "Patient ID: %s\n", n.PatientID)
		fmt.Fprintf(&b, "Author ID: %s\n", n.AuthorID)
		fmt.Fprintf(&b, "Entry Source: %s\n", title(string(n.Source)))
		fmt.Fprintf(&b, "Mood: %d/10 | Pain: %d/10 | Appetite: %d/10\n", n.Mood, n.Pain, n.Appetite)

		if n.Source == types.SourcePatient {
			b.WriteString("\nPatient Wrote:\n" + strings.Repeat("-", 15) + "\n")
		} else {
			b.WriteString("\nNarrative Notes:\n" + strings.Repeat("-", 18) + "\n")
		}
		if n.Notes != "" {
			b.WriteString(n.Notes + "\n")
		} else {
			b.WriteString("N/A\n")
		}

		if n.Source == types.SourceClinician {
			b.WriteString("\nDiagnoses/Medical Notes:\n" + strings.Repeat("-", 25) + "\n")
			if n.Diagnoses != "" {
				b.WriteString(n.Diagnoses + "\n")
			} else {
				b.WriteString("N/A\n")
			}
		}

		b.WriteString("\n" + rule + "\n")
	}

	return b.String()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
