package users

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	r := Registration{
		Username:  " bob ",
		Email:     "bob@x.com",
		Password:  "pw",
		FirstName: "Bob",
		LastName:  "Builder",
	}.Normalize()

	assert.Equal(t, "bob", r.Username)
	assert.Equal(t, RoleBuyer, r.Role)
	assert.Empty(t, r.FirstName, "names are only kept for OWNER")
	assert.Empty(t, r.LastName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		reg    Registration
		fields []string
	}{
		{
			name: "buyer without names",
			reg:  Registration{Username: "b", Email: "b@x.com", Password: "pw"},
		},
		{
			name: "owner with names",
			reg:  Registration{Username: "o", Email: "o@x.com", Password: "pw", Role: "owner", FirstName: "O", LastName: "W"},
		},
		{
			name:   "owner missing last name reports both",
			reg:    Registration{Username: "o", Email: "o@x.com", Password: "pw", Role: RoleOwner, FirstName: "O"},
			fields: []string{"first_name", "last_name"},
		},
		{
			name:   "owner with blank names",
			reg:    Registration{Username: "o", Email: "o@x.com", Password: "pw", Role: RoleOwner, FirstName: "  ", LastName: " "},
			fields: []string{"first_name", "last_name"},
		},
		{
			name:   "bad email and unknown role",
			reg:    Registration{Username: "x", Email: "nope", Password: "pw", Role: "ADMIN"},
			fields: []string{"email", "role"},
		},
		{
			name:   "missing required",
			reg:    Registration{},
			fields: []string{"username", "email", "password"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.reg.Normalize().Validate()
			if len(tc.fields) == 0 {
				require.NoError(t, err)
				return
			}

			var verr ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			for _, f := range tc.fields {
				assert.Contains(t, verr, f)
			}
			assert.Len(t, verr, len(tc.fields))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{"last_name": "b", "first_name": "a"}
	assert.Equal(t, "invalid registration: first_name: a; last_name: b", err.Error())
}
