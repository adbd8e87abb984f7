package types

// ChatChannel tags which channel kind a message was posted to
type ChatChannel string

const (
	ChannelGeneral ChatChannel = "general"
	ChannelDirect  ChatChannel = "direct"
)

// Message is a single chat entry. PatientUsername routes the message to a
// patient's channel; ClinicianUsername is set only for direct messages.
type Message struct {
	MessageID         string      `json:"message_id"`
	Timestamp         string      `json:"timestamp"`
	Sender            string      `json:"sender"`
	SenderRole        Role        `json:"sender_role"`
	Text              string      `json:"text"`
	Channel           ChatChannel `json:"channel"`
	PatientUsername   string      `json:"patient_username"`
	ClinicianUsername string      `json:"clinician_username,omitempty"`
}

// ChatStore holds both channel kinds for one hospital. General is keyed by
// patient username; Direct by patient username then clinician username.
type ChatStore struct {
	General map[string][]*Message            `json:"general"`
	Direct  map[string]map[string][]*Message `json:"direct"`
}
