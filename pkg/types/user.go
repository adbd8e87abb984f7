package types

import (
	"bytes"
	"fmt"
	"sort"
)

// Role represents the different user roles in the system
type Role string

const (
	RolePatient   Role = "patient"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleClinician, RoleAdmin:
		return true
	}
	return false
}

// AccountStatus represents the approval state of an account
type AccountStatus string

const (
	StatusApproved AccountStatus = "approved"
	StatusPending  AccountStatus = "pending"
)

// UserKey uniquely identifies an account within a hospital. The same
// username may hold several roles, each a separate account.
type UserKey struct {
	Username string
	Role     Role
}

// MarshalText serializes the key as "<username>_<role>" so it can be used
// as a JSON map key, matching the persisted document format.
func (k UserKey) MarshalText() ([]byte, error) {
	if !k.Role.Valid() {
		return nil, fmt.Errorf("invalid role in user key: %q", k.Role)
	}
	return []byte(k.Username + "_" + string(k.Role)), nil
}

// UnmarshalText parses "<username>_<role>". The split is on the last
// underscore: role names contain none, usernames may contain any number.
func (k *UserKey) UnmarshalText(text []byte) error {
	idx := bytes.LastIndexByte(text, '_')
	if idx < 0 {
		return fmt.Errorf("malformed user key: %q", text)
	}
	role := Role(text[idx+1:])
	if !role.Valid() {
		return fmt.Errorf("malformed user key %q: unknown role %q", text, role)
	}
	k.Username = string(text[:idx])
	k.Role = role
	return nil
}

// UserRecord represents a stored account with its credentials and profile
type UserRecord struct {
	Username     string        `json:"username"`
	Role         Role          `json:"role"`
	PasswordHash string        `json:"password_hash"`
	Salt         string        `json:"salt"`
	Status       AccountStatus `json:"status"`
	FullName     string        `json:"full_name,omitempty"`
	DOB          string        `json:"dob,omitempty"`
	Sex          string        `json:"sex,omitempty"`
	Pronouns     string        `json:"pronouns,omitempty"`
	Bio          string        `json:"bio,omitempty"`

	// AssignedClinicians is only meaningful for patient records.
	AssignedClinicians []string `json:"assigned_clinicians,omitempty"`
}

// Key returns the composite map key for this record.
func (u *UserRecord) Key() UserKey {
	return UserKey{Username: u.Username, Role: u.Role}
}

// HasClinician reports whether the named clinician is assigned to this patient.
func (u *UserRecord) HasClinician(clinician string) bool {
	for _, c := range u.AssignedClinicians {
		if c == clinician {
			return true
		}
	}
	return false
}

// AddClinician adds a clinician to the patient's assigned set, keeping the
// stored list sorted and duplicate-free.
func (u *UserRecord) AddClinician(clinician string) {
	if u.HasClinician(clinician) {
		return
	}
	u.AssignedClinicians = append(u.AssignedClinicians, clinician)
	sort.Strings(u.AssignedClinicians)
}

// RemoveClinician removes a clinician from the patient's assigned set.
func (u *UserRecord) RemoveClinician(clinician string) {
	out := u.AssignedClinicians[:0]
	for _, c := range u.AssignedClinicians {
		if c != clinician {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		u.AssignedClinicians = nil
		return
	}
	u.AssignedClinicians = out
}

// Profile carries the optional profile fields supplied at registration or
// profile update. Nil pointers leave existing values untouched on update.
type Profile struct {
	FullName *string `json:"full_name,omitempty"`
	DOB      *string `json:"dob,omitempty"`
	Sex      *string `json:"sex,omitempty"`
	Pronouns *string `json:"pronouns,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// RegistrationRequest represents user registration data
type RegistrationRequest struct {
	HospitalID string  `json:"hospital_id"`
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	Role       Role    `json:"role"`
	Profile    Profile `json:"profile"`
}

// Credentials represents user login credentials
type Credentials struct {
	HospitalID string `json:"hospital_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
}

// RegistrationOutcome is the tagged result of a registration attempt
type RegistrationOutcome string

const (
	RegistrationApproved         RegistrationOutcome = "approved"
	RegistrationPending          RegistrationOutcome = "pending"
	RegistrationAlreadyExists    RegistrationOutcome = "already_exists"
	RegistrationHospitalNotFound RegistrationOutcome = "hospital_not_found"
	RegistrationWeakPassword     RegistrationOutcome = "weak_password"
	RegistrationInvalid          RegistrationOutcome = "invalid_request"
)

// LoginOutcome is the tagged result of a login attempt
type LoginOutcome string

const (
	LoginOK                 LoginOutcome = "ok"
	LoginPending            LoginOutcome = "pending"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginIntegrityError     LoginOutcome = "integrity_error"
)

// LoginResult pairs a login outcome with the authenticated record. User is
// non-nil only when Outcome is LoginOK.
type LoginResult struct {
	Outcome LoginOutcome
	User    *UserRecord
}
