package session

import (
	"fmt"
	"strings"
)

// Role is the account type chosen after signup.
type Role string

const (
	RoleLegalProfessional Role = "legal-professional"
	RoleIndividual        Role = "individual"
	RoleAdmin             Role = "admin"
)

// ParseRole accepts either the display role or the backend tag.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "legal-professional", "lawyer":
		return RoleLegalProfessional, nil
	case "individual", "client":
		return RoleIndividual, nil
	case "admin":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q (want legal-professional or individual)", raw)
}

// BackendTag is the role value the backend stores.
func (r Role) BackendTag() string {
	switch r {
	case RoleLegalProfessional:
		return "lawyer"
	case RoleIndividual:
		return "client"
	default:
		return string(r)
	}
}

// RoleFromTag maps a backend tag to a Role. Unknown tags pass through.
func RoleFromTag(tag string) Role {
	if r, err := ParseRole(tag); err == nil {
		return r
	}
	return Role(tag)
}
