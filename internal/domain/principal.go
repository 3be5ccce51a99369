package domain

import (
	"fmt"
	"strings"
)

const (
	RoleAdmin      = "Admin"
	RoleInstructor = "Instructor"
	RoleStudent    = "Student"
)

var roles = []string{RoleAdmin, RoleInstructor, RoleStudent}

// Principal is the already-authenticated caller. A zero Principal is anonymous.
type Principal struct {
	UserID string   `json:"user_id,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

func (p Principal) Authenticated() bool { return p.UserID != "" }

func (p Principal) IsInRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool      { return p.IsInRole(RoleAdmin) }
func (p Principal) IsInstructor() bool { return p.IsInRole(RoleInstructor) }
func (p Principal) IsStudent() bool    { return p.IsInRole(RoleStudent) }

// ParseRole canonicalizes a role name.
func ParseRole(s string) (string, error) {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(s), r) {
			return r, nil
		}
	}
	return "", BadRequest(CodeInvalidInput, fmt.Sprintf("unknown role %q; valid roles are: %s", s, strings.Join(roles, ", ")))
}
