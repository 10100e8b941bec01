// Package users holds the user-registration contract accepted by the backend.
package users

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Role string

const (
	RoleOwner Role = "OWNER"
	RoleBuyer Role = "BUYER"
)

type Registration struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Role      Role   `json:"role" validate:"required,oneof=OWNER BUYER"`
	FirstName string `json:"first_name,omitempty" validate:"required_if=Role OWNER"`
	LastName  string `json:"last_name,omitempty" validate:"required_if=Role OWNER"`
}

// ValidationError maps a JSON field name to its message.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

var validate = validator.New()

// Normalize trims input, defaults the role to BUYER, and drops names
// for anything but OWNER.
func (r Registration) Normalize() Registration {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Role = Role(strings.ToUpper(strings.TrimSpace(string(r.Role))))
	if r.Role == "" {
		r.Role = RoleBuyer
	}
	if r.Role != RoleOwner {
		r.FirstName = ""
		r.LastName = ""
	}
	return r
}

// Validate checks a normalized registration.
func (r Registration) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := ValidationError{}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Username":
			out["username"] = "This field is required."
		case "Email":
			if fe.Tag() == "email" {
				out["email"] = "Enter a valid email address."
			} else {
				out["email"] = "This field is required."
			}
		case "Password":
			out["password"] = "This field is required."
		case "Role":
			out["role"] = "Role must be OWNER or BUYER."
		case "FirstName", "LastName":
			// OWNER needs both names, so report both together
			out["first_name"] = "First name is required for OWNER role."
			out["last_name"] = "Last name is required for OWNER role."
		}
	}
	return out
}
