package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRole = errors.New("role is not one of employer, broker or admin")
	ErrEmptyEmail  = errors.New("identity email is empty")
)

// Role is the closed set of portal roles. The zero value is not a valid role,
// so a Role that didn't come from ParseRole or one of the constants fails Valid.
type Role uint8

const (
	RoleEmployer Role = iota + 1
	RoleBroker
	RoleAdmin
)

// Roles lists every valid role, in the order the login form offers them.
var Roles = []Role{RoleEmployer, RoleBroker, RoleAdmin}

var roleNames = map[Role]string{
	RoleEmployer: "employer",
	RoleBroker:   "broker",
	RoleAdmin:    "admin",
}

// ParseRole is for human input: it ignores case and surrounding space.
func ParseRole(s string) (Role, error) {
	return RoleFromName(strings.ToLower(strings.TrimSpace(s)))
}

// RoleFromName only accepts the exact lower-case name, as written by
// MarshalText.
func RoleFromName(name string) (Role, error) {
	for role, roleName := range roleNames {
		if roleName == name {
			return role, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, name)
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// HomePath is the root of the guarded subtree for the role.
func (r Role) HomePath() string {
	return "/" + r.String()
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := RoleFromName(string(text))
	if err != nil {
		return err
	}

	*r = role
	return nil
}

// Identity is the authenticated principal. An Identity is either complete or
// absent; use Validate before trusting one built from outside input.
type Identity struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (i Identity) Validate() error {
	if strings.TrimSpace(i.Email) == "" {
		return ErrEmptyEmail
	}
	if !i.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
