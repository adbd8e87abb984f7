package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserKeyTextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  UserKey
		text string
	}{
		{
			name: "simple username",
			key:  UserKey{Username: "alice", Role: RolePatient},
			text: "alice_patient",
		},
		{
			name: "username with underscore",
			key:  UserKey{Username: "dr_jones", Role: RoleClinician},
			text: "dr_jones_clinician",
		},
		{
			name: "username with several underscores",
			key:  UserKey{Username: "a_b_c", Role: RoleAdmin},
			text: "a_b_c_admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := tt.key.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.text, string(text))

			var parsed UserKey
			require.NoError(t, parsed.UnmarshalText(text))
			assert.Equal(t, tt.key, parsed)
		})
	}
}

func TestUserKeyUnmarshalRejectsMalformedInput(t *testing.T) {
	var k UserKey
	assert.Error(t, k.UnmarshalText([]byte("nounderscore")))
	assert.Error(t, k.UnmarshalText([]byte("alice_wizard")))
}

func TestUserKeyMarshalRejectsInvalidRole(t *testing.T) {
	k := UserKey{Username: "alice", Role: Role("wizard")}
	_, err := k.MarshalText()
	assert.Error(t, err)
}

func TestUserMapJSONRoundTrip(t *testing.T) {
	h := NewHospital()
	h.Users[UserKey{Username: "dr_jones", Role: RoleClinician}] = &UserRecord{
		Username: "dr_jones",
		Role:     RoleClinician,
		Status:   StatusApproved,
	}
	h.Users[UserKey{Username: "dr_jones", Role: RoleAdmin}] = &UserRecord{
		Username: "dr_jones",
		Role:     RoleAdmin,
		Status:   StatusPending,
	}

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var parsed Hospital
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed.Users, 2)

	clin := parsed.Users[UserKey{Username: "dr_jones", Role: RoleClinician}]
	require.NotNil(t, clin)
	assert.Equal(t, StatusApproved, clin.Status)

	admin := parsed.Users[UserKey{Username: "dr_jones", Role: RoleAdmin}]
	require.NotNil(t, admin)
	assert.Equal(t, StatusPending, admin.Status)
}

func TestAssignedClinicianSet(t *testing.T) {
	u := &UserRecord{Username: "alice", Role: RolePatient}

	u.AddClinician("zoe")
	u.AddClinician("bob")
	u.AddClinician("zoe") // duplicate is a no-op
	assert.Equal(t, []string{"bob", "zoe"}, u.AssignedClinicians)
	assert.True(t, u.HasClinician("bob"))

	u.RemoveClinician("bob")
	assert.Equal(t, []string{"zoe"}, u.AssignedClinicians)
	assert.False(t, u.HasClinician("bob"))

	u.RemoveClinician("zoe")
	assert.Empty(t, u.AssignedClinicians)
}

func TestCareLogErrorIs(t *testing.T) {
	err := NewNotFoundError(ErrCodeNotFound, "missing")
	assert.True(t, err.Is(&CareLogError{Type: ErrorTypeNotFound, Code: ErrCodeNotFound}))
	assert.True(t, err.Is(&CareLogError{Type: ErrorTypeNotFound}))
	assert.False(t, err.Is(&CareLogError{Type: ErrorTypeValidation}))
}
