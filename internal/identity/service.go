package identity

import (
	"errors"
	"sort"
	"strings"

	"github.com/randyrahmani/CareLogG8/internal/access"
	"github.com/randyrahmani/CareLogG8/internal/store"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/monitoring"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// errAbort rolls back an Update without persisting and without surfacing
// an error to the caller.
var errAbort = errors.New("identity: abort update")

// Service implements account registration, authentication, approval and
// deletion over the document store.
type Service struct {
	store   *store.Store
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

// NewService creates a new identity service instance
func NewService(st *store.Store, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{store: st, logger: log, metrics: metrics}
}

// Register creates a new account. Only an admin registration may create a
// hospital implicitly; the first admin of a new hospital and every patient
// start approved, while admin/clinician signups at an existing hospital
// start pending.
func (s *Service) Register(req *types.RegistrationRequest) (types.RegistrationOutcome, error) {
	if strings.TrimSpace(req.HospitalID) == "" || strings.TrimSpace(req.Username) == "" || req.Password == "" || !req.Role.Valid() {
		return types.RegistrationInvalid, nil
	}

	if !StrongPassword(req.Password) {
		return types.RegistrationWeakPassword, nil
	}

	salt, err := newSalt()
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to generate salt", err)
	}
	hash, err := hashPassword(salt, req.Password)
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to hash password", err)
	}

	outcome := types.RegistrationApproved
	err = s.store.Update(func(doc *types.Document) error {
		newHospital := false
		h := doc.Hospital(req.HospitalID)
		if h == nil {
			if req.Role != types.RoleAdmin {
				outcome = types.RegistrationHospitalNotFound
				return errAbort
			}
			h = store.EnsureHospital(doc, req.HospitalID)
			newHospital = true
		} else if h.User(req.Username, req.Role) != nil {
			outcome = types.RegistrationAlreadyExists
			return errAbort
		}

		status := types.StatusApproved
		if req.Role != types.RolePatient && !newHospital {
			// Admins and clinicians joining an existing hospital wait for
			// approval; the bootstrap admin and patients do not.
			status = types.StatusPending
		}

		rec := &types.UserRecord{
			Username:     req.Username,
			Role:         req.Role,
			PasswordHash: hash,
			Salt:         salt,
			Status:       status,
		}
		applyProfile(rec, req.Profile)
		h.Users[rec.Key()] = rec

		if status == types.StatusPending {
			outcome = types.RegistrationPending
		}
		return nil
	})
	if err != nil && err != errAbort {
		return "", err
	}

	s.logger.Audit(req.HospitalID, req.Username, "register", "user", outcome == types.RegistrationApproved || outcome == types.RegistrationPending)
	return outcome, nil
}

// Login authenticates a (hospital, username, role) triple. Pending accounts
// are rejected before any password check; a record without salt is a data
// integrity fault, not a credential failure.
func (s *Service) Login(creds *types.Credentials) (types.LoginResult, error) {
	result := types.LoginResult{Outcome: types.LoginInvalidCredentials}

	err := s.store.View(func(doc *types.Document) error {
		h := doc.Hospital(creds.HospitalID)
		u := h.User(creds.Username, creds.Role)
		if u == nil {
			return nil
		}

		if u.Status == types.StatusPending {
			result.Outcome = types.LoginPending
			return nil
		}

		if u.Salt == "" {
			result.Outcome = types.LoginIntegrityError
			return nil
		}

		hash, err := hashPassword(u.Salt, creds.Password)
		if err != nil {
			result.Outcome = types.LoginIntegrityError
			return nil
		}
		if hash != u.PasswordHash {
			return nil
		}

		cu := *u
		cu.PasswordHash = ""
		cu.Salt = ""
		cu.AssignedClinicians = append([]string(nil), u.AssignedClinicians...)
		result.Outcome = types.LoginOK
		result.User = &cu
		return nil
	})
	if err != nil {
		return result, err
	}

	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(string(result.Outcome))
	}
	if result.Outcome != types.LoginOK {
		s.logger.Security("login_rejected_"+string(result.Outcome), creds.HospitalID, creds.Username)
	}
	return result, nil
}

// UpdateProfile merges non-nil profile fields into an existing account and
// optionally rotates the password with a fresh salt.
func (s *Service) UpdateProfile(hospitalID, username string, role types.Role, profile types.Profile, newPassword string) error {
	if newPassword != "" && !StrongPassword(newPassword) {
		return types.NewValidationError(types.ErrCodeInvalidInput, "new password does not meet strength requirements")
	}

	return s.store.Update(func(doc *types.Document) error {
		u := doc.Hospital(hospitalID).User(username, role)
		if u == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "user not found")
		}

		applyProfile(u, profile)

		if newPassword != "" {
			salt, err := newSalt()
			if err != nil {
				return types.NewInternalError(types.ErrCodeInternalError, "failed to generate salt", err)
			}
			hash, err := hashPassword(salt, newPassword)
			if err != nil {
				return types.NewInternalError(types.ErrCodeInternalError, "failed to hash password", err)
			}
			u.Salt = salt
			u.PasswordHash = hash
		}
		return nil
	})
}

// Approve flips a pending account to approved. Approving an already
// approved or absent account is a no-op.
func (s *Service) Approve(hospitalID, username string, role types.Role) error {
	changed := false
	err := s.store.Update(func(doc *types.Document) error {
		u := doc.Hospital(hospitalID).User(username, role)
		if u == nil || u.Status == types.StatusApproved {
			return errAbort
		}
		u.Status = types.StatusApproved
		changed = true
		return nil
	})
	if err == errAbort {
		return nil
	}
	if err == nil && changed {
		s.logger.Audit(hospitalID, username, "approve", "user", true)
	}
	return err
}

// Delete removes an account and cascades over its data. It refuses to
// delete the caller's own identity and reports whether a record was
// actually removed.
func (s *Service) Delete(hospitalID string, actor access.Viewer, username string, role types.Role) (bool, error) {
	if actor.Username == username && actor.Role == role {
		return false, nil
	}

	deleted := false
	err := s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		key := types.UserKey{Username: username, Role: role}
		if h == nil || h.Users[key] == nil {
			return errAbort
		}

		delete(h.Users, key)
		switch role {
		case types.RolePatient:
			cascadePatient(h, username)
		case types.RoleClinician:
			cascadeClinician(h, username)
		default:
			stripMessages(h, username)
		}
		deleted = true
		return nil
	})
	if err == errAbort {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.Audit(hospitalID, actor.Username, "delete_user", username+"_"+string(role), true)
	}
	return deleted, nil
}

// cascadePatient removes everything scoped to a deleted patient: all notes
// about them and both of their chat channels.
func cascadePatient(h *types.Hospital, patient string) {
	notes := h.Notes[:0]
	for _, n := range h.Notes {
		if n.PatientID != patient {
			notes = append(notes, n)
		}
	}
	h.Notes = notes

	alerts := h.Alerts[:0]
	for _, a := range h.Alerts {
		if a.PatientID != patient {
			alerts = append(alerts, a)
		}
	}
	h.Alerts = alerts

	delete(h.Chats.General, patient)
	delete(h.Chats.Direct, patient)
}

// cascadeClinician unassigns a deleted clinician everywhere, removes the
// clinical notes they authored, drops their direct threads and strips their
// messages from general channels. Patient-authored notes stay untouched.
func cascadeClinician(h *types.Hospital, clinician string) {
	for _, u := range h.Users {
		if u.Role == types.RolePatient {
			u.RemoveClinician(clinician)
		}
	}

	notes := h.Notes[:0]
	for _, n := range h.Notes {
		if n.Source == types.SourceClinician && n.AuthorID == clinician {
			continue
		}
		notes = append(notes, n)
	}
	h.Notes = notes

	for _, threads := range h.Chats.Direct {
		delete(threads, clinician)
	}

	for patient, msgs := range h.Chats.General {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.Sender != clinician {
				kept = append(kept, m)
			}
		}
		h.Chats.General[patient] = kept
	}
}

// stripMessages removes a deleted user's messages from every chat channel.
func stripMessages(h *types.Hospital, username string) {
	for patient, msgs := range h.Chats.General {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.Sender != username {
				kept = append(kept, m)
			}
		}
		h.Chats.General[patient] = kept
	}
	for _, threads := range h.Chats.Direct {
		for clinician, msgs := range threads {
			kept := msgs[:0]
			for _, m := range msgs {
				if m.Sender != username {
					kept = append(kept, m)
				}
			}
			threads[clinician] = kept
		}
	}
}

// Users lists every account in a hospital with credentials stripped,
// ordered by username then role.
func (s *Service) Users(hospitalID string) ([]types.UserRecord, error) {
	var out []types.UserRecord
	err := s.store.View(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		if h == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "hospital not found: "+hospitalID)
		}
		for _, u := range h.Users {
			cu := *u
			cu.PasswordHash = ""
			cu.Salt = ""
			cu.AssignedClinicians = append([]string(nil), u.AssignedClinicians...)
			out = append(out, cu)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].Role < out[j].Role
	})
	return out, nil
}

// Patients returns the patient roster visible to the viewer.
func (s *Service) Patients(hospitalID string, viewer access.Viewer) ([]types.UserRecord, error) {
	var out []types.UserRecord
	err := s.store.View(func(doc *types.Document) error {
		out = access.VisiblePatients(doc.Hospital(hospitalID), viewer)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// AssignedClinicians returns the clinicians assigned to a patient.
func (s *Service) AssignedClinicians(hospitalID, patient string) ([]string, error) {
	var out []string
	err := s.store.View(func(doc *types.Document) error {
		u := doc.Hospital(hospitalID).User(patient, types.RolePatient)
		if u == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "patient not found: "+patient)
		}
		out = append([]string(nil), u.AssignedClinicians...)
		return nil
	})
	return out, err
}

// AssignClinician adds a clinician to a patient's care team. Both accounts
// must exist in the hospital.
func (s *Service) AssignClinician(hospitalID, patient, clinician string) error {
	return s.store.Update(func(doc *types.Document) error {
		h := doc.Hospital(hospitalID)
		p := h.User(patient, types.RolePatient)
		if p == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "patient not found: "+patient)
		}
		if h.User(clinician, types.RoleClinician) == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "clinician not found: "+clinician)
		}
		p.AddClinician(clinician)
		return nil
	})
}

// UnassignClinician removes a clinician from a patient's care team.
func (s *Service) UnassignClinician(hospitalID, patient, clinician string) error {
	return s.store.Update(func(doc *types.Document) error {
		p := doc.Hospital(hospitalID).User(patient, types.RolePatient)
		if p == nil {
			return types.NewNotFoundError(types.ErrCodeNotFound, "patient not found: "+patient)
		}
		p.RemoveClinician(clinician)
		return nil
	})
}

func applyProfile(u *types.UserRecord, p types.Profile) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.DOB != nil {
		u.DOB = *p.DOB
	}
	if p.Sex != nil {
		u.Sex = *p.Sex
	}
	if p.Pronouns != nil {
		u.Pronouns = *p.Pronouns
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
}
