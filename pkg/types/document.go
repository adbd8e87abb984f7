package types

// Document is the whole multi-tenant datastore: one instance per process,
// loaded once at startup and rewritten in full on every mutation.
type Document struct {
	Hospitals map[string]*Hospital `json:"hospitals"`
}

// Hospital is a tenant namespace. All users, notes, alerts and chats are
// scoped to one hospital.
type Hospital struct {
	Users  map[UserKey]*UserRecord `json:"users"`
	Notes  []*NoteRecord           `json:"notes"`
	Alerts []*AlertRecord          `json:"alerts"`
	Chats  ChatStore               `json:"chats"`
}

// NewDocument returns an empty, well-formed document.
func NewDocument() *Document {
	return &Document{Hospitals: make(map[string]*Hospital)}
}

// NewHospital returns a hospital entry with the full structural skeleton.
func NewHospital() *Hospital {
	return &Hospital{
		Users:  make(map[UserKey]*UserRecord),
		Notes:  []*NoteRecord{},
		Alerts: []*AlertRecord{},
		Chats: ChatStore{
			General: make(map[string][]*Message),
			Direct:  make(map[string]map[string][]*Message),
		},
	}
}

// Hospital returns the tenant entry for an id, or nil if it does not exist.
func (d *Document) Hospital(hospitalID string) *Hospital {
	if d.Hospitals == nil {
		return nil
	}
	return d.Hospitals[hospitalID]
}

// User returns the account for a (username, role) pair, or nil.
func (h *Hospital) User(username string, role Role) *UserRecord {
	if h == nil || h.Users == nil {
		return nil
	}
	return h.Users[UserKey{Username: username, Role: role}]
}

// Note returns the note with the given id, or nil.
func (h *Hospital) Note(noteID string) *NoteRecord {
	if h == nil {
		return nil
	}
	for _, n := range h.Notes {
		if n.NoteID == noteID {
			return n
		}
	}
	return nil
}

// HospitalDataset is the unfiltered users+notes view of one tenant, used by
// the admin export surface. The caller is responsible for restricting it to
// administrators.
type HospitalDataset struct {
	HospitalID string                  `json:"hospital_id"`
	Users      map[UserKey]*UserRecord `json:"users"`
	Notes      []*NoteRecord           `json:"notes"`
}
