package notes

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/randyrahmani/CareLogG8/internal/access"
	"github.com/randyrahmani/CareLogG8/internal/store"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

var errAbort = errors.New("notes: abort update")

// Service implements note CRUD, derived pain alerts, and search over the
// document store. All reads go through the access predicates so nothing a
// viewer cannot see ever leaves this package.
type Service struct {
	store  *store.Store
	logger *logger.Logger
}

// NewService creates a new note service instance
func NewService(st *store.Store, log *logger.Logger) *Service {
	return &Service{store: st, logger: log}
}

// NewNoteRequest carries the fields supplied by the author of a new note.
type NewNoteRequest struct {
	HospitalID string           `json:"hospital_id"`
	PatientID  string           `json:"patient_id"`
	AuthorID   string           `json:"author_id"`
	Mood       int              `json:"mood"`
	Pain       int              `json:"pain"`
	Appetite   int              `json:"appetite"`
	Notes      string           `json:"notes"`
	Diagnoses  string           `json:"diagnoses"`
	Source     types.NoteSource `json:"source"`
	IsPrivate  bool             `json:"is_private"`
}

// AddNote appends a note to the hospital's list. A patient-authored note
// with pain 10 synthesizes a pain alert sharing the note's id; repeated
// 10/10 entries each create their own alert.
func (s *Service) AddNote(req *NewNoteRequest) (*types.NoteRecord, error) {
	if req.Mood < 0 || req.Mood > 10 || req.Pain < 0 || req.Pain > 10 || req.Appetite < 0 || req.Appetite > 10 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "mood, pain and appetite must be within 0-10")
	}
	if req.Source != types.SourcePatient && req.Source != types.SourceClinician {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "unknown note source")
	}

	note := &types.NoteRecord{
		NoteID:     uuid.New().String(),
		HospitalID: req.HospitalID,
		PatientID:  req.PatientID,
		AuthorID:   req.AuthorID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Mood:       req.Mood,
		Pain:       req.Pain,
		Appetite:   req.Appetite,
		Notes:      req.Notes,
		Diagnoses:  req.Diagnoses,
		Source:     req.Source,
		IsPrivate:  req.Source == types.SourcePatient && req.IsPrivate,
	}

	err := s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(req.HospitalID)
		if h == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "hospital not found: "+req.HospitalID)
		}
		h.Notes = append(h.Notes, note)

		if note.Source == types.SourcePatient && note.Pain == 10 {
			h.Alerts = append(h.Alerts, &types.AlertRecord{
				AlertID:   note.NoteID,
				PatientID: note.PatientID,
				Timestamp: note.Timestamp,
				Status:    types.AlertStatusActive,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Note added", "hospital_id", req.HospitalID, "patient_id", req.PatientID, "source", req.Source)
	return note, nil
}

// UpdateNote merges the non-nil fields into an existing note. The caller's
// authorization must already be established via CanModify. Unknown note ids
// fail without mutating anything.
func (s *Service) UpdateNote(hospitalID, noteID string, updates *types.NoteUpdates) error {
	return s.store.Update(func(doc *types.Document) error {
		n := doc.Hospital(hospitalID).Note(noteID)
		if n == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "note not found: "+noteID)
		}

		if updates.Mood != nil {
			n.Mood = *updates.Mood
		}
		if updates.Pain != nil {
			n.Pain = *updates.Pain
		}
		if updates.Appetite != nil {
			n.Appetite = *updates.Appetite
		}
		if updates.Notes != nil {
			n.Notes = *updates.Notes
		}
		if updates.Diagnoses != nil {
			n.Diagnoses = *updates.Diagnoses
		}
		if updates.IsPrivate != nil && n.Source == types.SourcePatient {
			n.IsPrivate = *updates.IsPrivate
		}
		return nil
	})
}

// DeleteNote removes a note from the hospital's list. Deleting a missing
// note is a no-op.
func (s *Service) DeleteNote(hospitalID, noteID string) error {
	err := s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return errAbort
		}
		kept := h.Notes[:0]
		removed := false
		for _, n := range h.Notes {
			if n.NoteID == noteID {
				removed = true
				continue
			}
			kept = append(kept, n)
		}
		if !removed {
			return errAbort
		}
		h.Notes = kept
		return nil
	})
	if err == errAbort {
		return nil
	}
	return err
}

// CanModify reports whether the viewer is authorized to edit or delete the
// note.
func (s *Service) CanModify(hospitalID, noteID string, viewer access.Viewer) (bool, error) {
	allowed := false
	err := s.store.View(func(doc *types.Document) error {
		allowed = access.CanModifyNote(viewer, doc.Hospital(hospitalID).Note(noteID))
		return nil
	})
	return allowed, err
}

// NotesForPatient returns one patient's notes filtered for the viewer,
// newest first.
func (s *Service) NotesForPatient(hospitalID, patientID string, viewer access.Viewer) ([]types.NoteRecord, error) {
	var out []types.NoteRecord
	err := s.store.View(func(doc *types.Document) error {
		out = access.NotesForPatient(doc.Hospital(hospitalID), viewer, patientID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNotesNewestFirst(out)
	return out, nil
}

// SearchNotes returns the visible notes of a patient whose free text or
// diagnoses contain the term, case-insensitively. The visibility filter is
// applied before matching so search can never surface hidden content.
func (s *Service) SearchNotes(hospitalID, patientID, term string, viewer access.Viewer) ([]types.NoteRecord, error) {
	visible, err := s.NotesForPatient(hospitalID, patientID, viewer)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return visible, nil
	}

	var out []types.NoteRecord
	for _, n := range visible {
		if strings.Contains(strings.ToLower(n.Notes), needle) || strings.Contains(strings.ToLower(n.Diagnoses), needle) {
			out = append(out, n)
		}
	}
	return out, nil
}

// PainAlerts returns the hospital's active pain alerts, newest first.
func (s *Service) PainAlerts(hospitalID string) ([]types.AlertRecord, error) {
	var out []types.AlertRecord
	err := s.store.View(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return nil
		}
		for _, a := range h.Alerts {
			out = append(out, *a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DismissAlert removes an alert. Dismissing a missing alert is a no-op.
func (s *Service) DismissAlert(hospitalID, alertID string) error {
	err := s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return errAbort
		}
		kept := h.Alerts[:0]
		removed := false
		for _, a := range h.Alerts {
			if a.AlertID == alertID {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		if !removed {
			return errAbort
		}
		h.Alerts = kept
		return nil
	})
	if err == errAbort {
		return nil
	}
	return err
}

func sortNotesNewestFirst(notes []types.NoteRecord) {
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Timestamp > notes[j].Timestamp })
}
