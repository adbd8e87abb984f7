package types

// NoteSource identifies who authored a note
type NoteSource string

const (
	SourcePatient   NoteSource = "patient"
	SourceClinician NoteSource = "clinician"
)

// FeedbackStatus tracks the approval state of AI-generated feedback
type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "pending"
	FeedbackApproved FeedbackStatus = "approved"
)

// AIFeedback is the generated feedback attached to a note while it moves
// through the pending/approved workflow. Rejection removes it entirely.
type AIFeedback struct {
	Text   string         `json:"text"`
	Status FeedbackStatus `json:"status"`
}

// NoteRecord represents a single journal entry or clinical note
type NoteRecord struct {
	NoteID     string      `json:"note_id"`
	HospitalID string      `json:"hospital_id"`
	PatientID  string      `json:"patient_id"`
	AuthorID   string      `json:"author_id"`
	Timestamp  string      `json:"timestamp"`
	Mood       int         `json:"mood"`
	Pain       int         `json:"pain"`
	Appetite   int         `json:"appetite"`
	Notes      string      `json:"notes"`
	Diagnoses  string      `json:"diagnoses"`
	Source     NoteSource  `json:"source"`
	IsPrivate  bool        `json:"is_private,omitempty"`
	AIFeedback *AIFeedback `json:"ai_feedback,omitempty"`
}

// NoteUpdates carries a partial update to a note. Nil fields preserve the
// existing values.
type NoteUpdates struct {
	Mood      *int    `json:"mood,omitempty"`
	Pain      *int    `json:"pain,omitempty"`
	Appetite  *int    `json:"appetite,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Diagnoses *string `json:"diagnoses,omitempty"`
	IsPrivate *bool   `json:"is_private,omitempty"`
}

// AlertRecord is a derived pain alert. AlertID equals the note_id of the
// triggering note; each qualifying AddNote creates its own alert.
type AlertRecord struct {
	AlertID   string `json:"alert_id"`
	PatientID string `json:"patient_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// AlertStatusActive is the status assigned to newly created pain alerts.
const AlertStatusActive = "active"
