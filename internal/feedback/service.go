package feedback

import (
	"context"
	"errors"

	"github.com/randyrahmani/CareLogG8/internal/access"
	"github.com/randyrahmani/CareLogG8/internal/store"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/monitoring"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

var errAbort = errors.New("feedback: abort update")

// Service runs the feedback approval workflow: generation, clinician
// review, and the pending/approved state machine attached to notes.
type Service struct {
	store     *store.Store
	generator Generator
	logger    *logger.Logger
	metrics   *monitoring.MetricsCollector
}

// NewService creates a new feedback service instance
func NewService(st *store.Store, gen Generator, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{store: st, generator: gen, logger: log, metrics: metrics}
}

// Request generates feedback for one of the viewer's own notes and attaches
// it in the pending state. A note belonging to anyone else reads as not
// found, so note ids cannot be probed across patients. Generation runs
// outside the store lock: the document is only locked twice, once to read
// the note's fields and once to attach the result. A generation failure
// leaves the note untouched.
func (s *Service) Request(ctx context.Context, hospitalID, noteID string, viewer access.Viewer) (*types.AIFeedback, error) {
	var (
		notesText            string
		mood, pain, appetite int
	)
	err := s.store.View(func(doc *types.Document) error {
		n := doc.Hospital(hospitalID).Note(noteID)
		if n == nil || viewer.Role != types.RolePatient || n.PatientID != viewer.Username {
			return types.NewNotFoundError(types.ErrCodeNotFound, "note not found: "+noteID)
		}
		notesText = n.Notes
		mood, pain, appetite = n.Mood, n.Pain, n.Appetite
		return nil
	})
	if err != nil {
		return nil, err
	}

	text, err := s.generator.GenerateFeedback(ctx, notesText, mood, pain, appetite)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordFeedbackRequest("error")
		}
		s.logger.Error("Feedback generation failed", "hospital_id", hospitalID, "note_id", noteID, "error", err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordFeedbackRequest("ok")
	}

	fb := &types.AIFeedback{Text: text, Status: types.FeedbackPending}
	err = s.store.Update(func(doc *types.Document) error {
		n := doc.Hospital(hospitalID).Note(noteID)
		if n == nil {
			// Note deleted while generation was in flight.
			return types.NewNotFoundError(types.ErrCodeNotFound, "note not found: "+noteID)
		}
		n.AIFeedback = &types.AIFeedback{Text: fb.Text, Status: fb.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Feedback attached pending approval", "hospital_id", hospitalID, "note_id", noteID)
	return fb, nil
}

// Approve marks a note's feedback as approved, storing the reviewer's
// possibly edited text. An empty text keeps the generated wording. A note
// without a feedback entry cannot be approved, and a reviewer outside the
// note's care team sees it as not found.
func (s *Service) Approve(hospitalID, noteID, editedText string, viewer access.Viewer) error {
	return s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		n := h.Note(noteID)
		if n == nil || !access.CanReviewFeedback(h, viewer, n) {
			return types.NewNotFoundError(types.ErrCodeNotFound, "note not found: "+noteID)
		}
		if n.AIFeedback == nil {
			return types.NewValidationError(types.ErrCodeFeedbackAbsent, "note has no feedback to approve")
		}
		if editedText != "" {
			n.AIFeedback.Text = editedText
		}
		n.AIFeedback.Status = types.FeedbackApproved
		return nil
	})
}

// Reject deletes a note's feedback entry outright. The note itself stays.
// Rejecting a note that has no feedback is a no-op; the same care-team rule
// as Approve applies.
func (s *Service) Reject(hospitalID, noteID string, viewer access.Viewer) error {
	err := s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		n := h.Note(noteID)
		if n == nil || !access.CanReviewFeedback(h, viewer, n) {
			return types.NewNotFoundError(types.ErrCodeNotFound, "note not found: "+noteID)
		}
		if n.AIFeedback == nil {
			return errAbort
		}
		n.AIFeedback = nil
		return nil
	})
	if err == errAbort {
		return nil
	}
	return err
}

// Pending lists the notes with feedback awaiting review that the viewer is
// entitled to act on.
func (s *Service) Pending(hospitalID string, viewer access.Viewer) ([]types.NoteRecord, error) {
	var out []types.NoteRecord
	err := s.store.View(func(doc *types.Document) error {
		out = access.PendingFeedback(doc.Hospital(hospitalID), viewer)
		return nil
	})
	return out, err
}
