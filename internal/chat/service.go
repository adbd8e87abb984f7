package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/randyrahmani/CareLogG8/internal/store"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// Service implements the two chat channels: a per-patient general thread
// visible to the care team, and direct patient-clinician threads.
type Service struct {
	store  *store.Store
	logger *logger.Logger
}

// NewService creates a new chat service instance
func NewService(st *store.Store, log *logger.Logger) *Service {
	return &Service{store: st, logger: log}
}

// SendGeneral appends a message to the patient's general thread. Messages
// blank after trimming are rejected without touching the store.
func (s *Service) SendGeneral(hospitalID, patientUsername string, sender string, senderRole types.Role, text string) (*types.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "message text must not be blank")
	}

	msg := &types.Message{
		MessageID:       uuid.New().String(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		Sender:          sender,
		SenderRole:      senderRole,
		Text:            text,
		Channel:         types.ChannelGeneral,
		PatientUsername: patientUsername,
	}

	err := s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "hospital not found: "+hospitalID)
		}
		h.Chats.General[patientUsername] = append(h.Chats.General[patientUsername], msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// SendDirect appends a message to the thread between a patient and a
// clinician. When the patient has a non-empty assigned set, only assigned
// clinicians may take part; a patient with no assignments yet may still be
// messaged, the thread simply exists ahead of the assignment.
func (s *Service) SendDirect(hospitalID, patientUsername, clinicianUsername string, sender string, senderRole types.Role, text string) (*types.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "message text must not be blank")
	}

	msg := &types.Message{
		MessageID:         uuid.New().String(),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		Sender:            sender,
		SenderRole:        senderRole,
		Text:              text,
		Channel:           types.ChannelDirect,
		PatientUsername:   patientUsername,
		ClinicianUsername: clinicianUsername,
	}

	err := s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "hospital not found: "+hospitalID)
		}
		patient := h.User(patientUsername, types.RolePatient)
		if patient == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "patient not found: "+patientUsername)
		}
		if len(patient.AssignedClinicians) > 0 && !patient.HasClinician(clinicianUsername) {
			return types.NewValidationError(types.ErrCodeInvalidInput, "clinician is not assigned to this patient")
		}
		threads := h.Chats.Direct[patientUsername]
		if threads == nil {
			threads = make(map[string][]*types.Message)
			h.Chats.Direct[patientUsername] = threads
		}
		threads[clinicianUsername] = append(threads[clinicianUsername], msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GeneralMessages returns the patient's general thread in timestamp order,
// oldest first. A positive limit keeps only the most recent messages.
func (s *Service) GeneralMessages(hospitalID, patientUsername string, limit int) ([]types.Message, error) {
	var out []types.Message
	err := s.store.View(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return nil
		}
		out = copyMessages(h.Chats.General[patientUsername])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trimOldest(sortByTimestamp(out), limit), nil
}

// DirectMessages returns one patient-clinician thread in timestamp order,
// oldest first. A positive limit keeps only the most recent messages.
func (s *Service) DirectMessages(hospitalID, patientUsername, clinicianUsername string, limit int) ([]types.Message, error) {
	var out []types.Message
	err := s.store.View(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return nil
		}
		out = copyMessages(h.Chats.Direct[patientUsername][clinicianUsername])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trimOldest(sortByTimestamp(out), limit), nil
}

// threadSummary pairs a thread key with its most recent activity for
// sorting.
type threadSummary struct {
	key      string
	lastSeen string
}

// GeneralPatients lists the patients with a non-empty general thread,
// most recently active first.
func (s *Service) GeneralPatients(hospitalID string) ([]string, error) {
	var threads []threadSummary
	err := s.store.View(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return nil
		}
		for patient, msgs := range h.Chats.General {
			if len(msgs) == 0 {
				continue
			}
			threads = append(threads, threadSummary{key: patient, lastSeen: latestTimestamp(msgs)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortSummaries(threads), nil
}

// DirectThreadsForClinician lists the patients holding a direct thread with
// the clinician, most recently active first.
func (s *Service) DirectThreadsForClinician(hospitalID, clinicianUsername string) ([]string, error) {
	var threads []threadSummary
	err := s.store.View(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return nil
		}
		for patient, byClinician := range h.Chats.Direct {
			msgs := byClinician[clinicianUsername]
			if len(msgs) == 0 {
				continue
			}
			threads = append(threads, threadSummary{key: patient, lastSeen: latestTimestamp(msgs)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortSummaries(threads), nil
}

func copyMessages(msgs []*types.Message) []types.Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, *m)
	}
	return out
}

func sortByTimestamp(msgs []types.Message) []types.Message {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp < msgs[j].Timestamp })
	return msgs
}

func trimOldest(msgs []types.Message, limit int) []types.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}

func latestTimestamp(msgs []*types.Message) string {
	latest := ""
	for _, m := range msgs {
		if m.Timestamp > latest {
			latest = m.Timestamp
		}
	}
	return latest
}

func sortSummaries(threads []threadSummary) []string {
	sort.SliceStable(threads, func(i, j int) bool {
		if threads[i].lastSeen != threads[j].lastSeen {
			return threads[i].lastSeen > threads[j].lastSeen
		}
		return threads[i].key < threads[j].key
	})
	out := make([]string, 0, len(threads))
	for _, t := range threads {
		out = append(out, t.key)
	}
	return out
}
