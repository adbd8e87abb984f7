// Package access holds the visibility and authorization predicates shared
// by the roster, note, and feedback surfaces. Every predicate fails closed:
// a viewer without access gets an empty result, never an error the caller
// could mishandle into a leak.
package access

import (
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// Viewer identifies who is asking. Role and username come from the
// authenticated session.
type Viewer struct {
	Username string
	Role     types.Role
}

// VisiblePatients returns the patient roster the viewer may see: admins see
// every patient in the hospital, clinicians only patients that have them in
// their assigned set, everyone else nothing.
func VisiblePatients(h *types.Hospital, viewer Viewer) []types.UserRecord {
	if h == nil {
		return nil
	}

	var out []types.UserRecord
	for _, u := range h.Users {
		if u.Role != types.RolePatient {
			continue
		}
		switch viewer.Role {
		case types.RoleAdmin:
			out = append(out, copyUser(u))
		case types.RoleClinician:
			if u.HasClinician(viewer.Username) {
				out = append(out, copyUser(u))
			}
		}
	}
	return out
}

// NotesForPatient returns the notes of one patient filtered for the viewer:
//   - the patient sees all of their own notes, private ones included;
//   - an admin sees all notes for the patient;
//   - an assigned clinician sees everything except patient-authored notes
//     flagged private;
//   - an unassigned clinician sees nothing.
func NotesForPatient(h *types.Hospital, viewer Viewer, patientID string) []types.NoteRecord {
	if h == nil {
		return nil
	}

	var filter func(n *types.NoteRecord) bool
	switch viewer.Role {
	case types.RolePatient:
		if viewer.Username != patientID {
			return nil
		}
		filter = func(n *types.NoteRecord) bool { return true }
	case types.RoleAdmin:
		filter = func(n *types.NoteRecord) bool { return true }
	case types.RoleClinician:
		patient := h.User(patientID, types.RolePatient)
		if patient == nil || !patient.HasClinician(viewer.Username) {
			return nil
		}
		filter = func(n *types.NoteRecord) bool {
			return !(n.Source == types.SourcePatient && n.IsPrivate)
		}
	default:
		return nil
	}

	var out []types.NoteRecord
	for _, n := range h.Notes {
		if n.PatientID != patientID {
			continue
		}
		if filter(n) {
			out = append(out, copyNote(n))
		}
	}
	return out
}

// PendingFeedback returns the notes carrying feedback awaiting approval that
// the viewer may act on: all of them for an admin, only assigned patients'
// for a clinician, none for anyone else.
func PendingFeedback(h *types.Hospital, viewer Viewer) []types.NoteRecord {
	if h == nil {
		return nil
	}
	if viewer.Role != types.RoleAdmin && viewer.Role != types.RoleClinician {
		return nil
	}

	var out []types.NoteRecord
	for _, n := range h.Notes {
		if n.AIFeedback == nil || n.AIFeedback.Status != types.FeedbackPending {
			continue
		}
		if viewer.Role == types.RoleClinician {
			patient := h.User(n.PatientID, types.RolePatient)
			if patient == nil || !patient.HasClinician(viewer.Username) {
				continue
			}
		}
		out = append(out, copyNote(n))
	}
	return out
}

// CanReviewFeedback reports whether the viewer may approve or reject the
// feedback attached to a note: admins for any note, clinicians only for
// notes of patients assigned to them. Same rule as PendingFeedback, applied
// to a single note.
func CanReviewFeedback(h *types.Hospital, viewer Viewer, n *types.NoteRecord) bool {
	if n == nil {
		return false
	}
	switch viewer.Role {
	case types.RoleAdmin:
		return true
	case types.RoleClinician:
		patient := h.User(n.PatientID, types.RolePatient)
		return patient != nil && patient.HasClinician(viewer.Username)
	}
	return false
}

// CanModifyNote reports whether the viewer may edit or delete the note.
// A patient may touch only patient-authored notes about themself; a
// clinician only clinician-authored notes they wrote. Everyone else,
// admins included, is denied.
func CanModifyNote(viewer Viewer, n *types.NoteRecord) bool {
	if n == nil {
		return false
	}
	switch viewer.Role {
	case types.RolePatient:
		return n.Source == types.SourcePatient && n.PatientID == viewer.Username && n.AuthorID == viewer.Username
	case types.RoleClinician:
		return n.Source == types.SourceClinician && n.AuthorID == viewer.Username
	}
	return false
}

func copyUser(u *types.UserRecord) types.UserRecord {
	cu := *u
	cu.AssignedClinicians = append([]string(nil), u.AssignedClinicians...)
	cu.PasswordHash = ""
	cu.Salt = ""
	return cu
}

func copyNote(n *types.NoteRecord) types.NoteRecord {
	cn := *n
	if n.AIFeedback != nil {
		fb := *n.AIFeedback
		cn.AIFeedback = &fb
	}
	return cn
}
