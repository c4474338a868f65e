package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of application roles.
type Role string

const (
	RoleSuperAdmin  Role = "SuperAdmin"
	RoleAgencyAdmin Role = "AdminImobiliaria"
	RoleBroker      Role = "Corretor"
)

// ParseRole maps a stored role string to a Role, rejecting anything unknown.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleAgencyAdmin, RoleBroker:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Profile links an identity-provider subject to a role and, optionally, an agency.
type Profile struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Role     Role       `json:"role"`
	TenantID *uuid.UUID `json:"agency_id,omitempty"`
}

// UserSummary is a profile as listed to SuperAdmins.
type UserSummary struct {
	Profile
	AgencyName *string `json:"agency_name,omitempty"`
}

// IsSuperAdmin reports whether the profile bypasses tenant scoping.
func (p *Profile) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// Fields returns the projectable "agent" view of the profile.
func (p *Profile) Fields() Fields {
	return Fields{
		"id":    p.ID.String(),
		"email": p.Email,
		"role":  string(p.Role),
	}
}
