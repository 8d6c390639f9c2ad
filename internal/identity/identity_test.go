package identity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Run("accepts known roles", func(t *testing.T) {
		for _, tc := range []struct {
			in   string
			want Role
		}{
			{"employer", RoleEmployer},
			{"broker", RoleBroker},
			{"admin", RoleAdmin},
			{" Admin ", RoleAdmin},
		} {
			got, err := ParseRole(tc.in)
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		}
	})

	t.Run("rejects anything else", func(t *testing.T) {
		for _, in := range []string{"", "superadmin", "worker", "employers"} {
			_, err := ParseRole(in)
			assert.ErrorIs(t, err, ErrInvalidRole, in)
		}
	})
}

func TestRoleFromName(t *testing.T) {
	for _, r := range Roles {
		got, err := RoleFromName(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	for _, in := range []string{" admin", "Admin", "ADMIN", "broker\n", ""} {
		_, err := RoleFromName(in)
		assert.ErrorIs(t, err, ErrInvalidRole, in)
	}
}

func TestRole_Valid(t *testing.T) {
	assert.False(t, Role(0).Valid())
	assert.False(t, Role(42).Valid())
	for _, r := range Roles {
		assert.True(t, r.Valid())
	}
}

func TestRole_HomePath(t *testing.T) {
	assert.Equal(t, "/employer", RoleEmployer.HomePath())
	assert.Equal(t, "/broker", RoleBroker.HomePath())
	assert.Equal(t, "/admin", RoleAdmin.HomePath())
}

func TestIdentity_JSON(t *testing.T) {
	buf, err := json.Marshal(Identity{Email: "a@x.com", Role: RoleBroker})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@x.com","role":"broker"}`, string(buf))

	var id Identity
	err = json.Unmarshal([]byte(`{"email":"a@x.com","role":"superadmin"}`), &id)
	assert.ErrorIs(t, err, ErrInvalidRole)

	err = json.Unmarshal([]byte(`{"email":"a@x.com","role":"Broker"}`), &id)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = json.Marshal(Identity{Email: "a@x.com"})
	assert.Error(t, err)
}

func TestIdentity_Validate(t *testing.T) {
	assert.NoError(t, Identity{Email: "a@x.com", Role: RoleAdmin}.Validate())
	assert.ErrorIs(t, Identity{Email: " ", Role: RoleAdmin}.Validate(), ErrEmptyEmail)
	assert.ErrorIs(t, Identity{Email: "a@x.com"}.Validate(), ErrInvalidRole)
}
