package domain

import "github.com/google/uuid"

// Action is a tenant-scoped operation subject to authorization.
type Action int

const (
	ActionManageWebhooks Action = iota + 1
	ActionCreateLead
	ActionViewLeads
	ActionManageAgencies
	ActionManageUsers
)

func (a Action) String() string {
	switch a {
	case ActionManageWebhooks:
		return "manage_webhooks"
	case ActionCreateLead:
		return "create_lead"
	case ActionViewLeads:
		return "view_leads"
	case ActionManageAgencies:
		return "manage_agencies"
	case ActionManageUsers:
		return "manage_users"
	default:
		return "unknown"
	}
}

// Authorize is the single permission check for every tenant-scoped operation.
// tenantID is the agency the action targets; uuid.Nil means "the actor's own agency".
func Authorize(actor *Profile, action Action, tenantID uuid.UUID) error {
	if actor == nil {
		return ErrForbidden
	}

	switch action {
	case ActionManageAgencies, ActionManageUsers:
		if actor.IsSuperAdmin() {
			return nil
		}
		return ErrForbidden

	case ActionManageWebhooks:
		switch actor.Role {
		case RoleSuperAdmin:
			if tenantID == uuid.Nil && actor.TenantID == nil {
				return ErrNoTenant
			}
			return nil
		case RoleAgencyAdmin:
			return ownTenant(actor, tenantID)
		}
		return ErrForbidden

	case ActionCreateLead:
		switch actor.Role {
		case RoleAgencyAdmin, RoleBroker:
			return ownTenant(actor, tenantID)
		}
		if actor.TenantID == nil {
			return ErrNoTenant
		}
		return ErrForbidden

	case ActionViewLeads:
		if actor.IsSuperAdmin() {
			return nil
		}
		return ownTenant(actor, tenantID)
	}
	return ErrForbidden
}

func ownTenant(actor *Profile, tenantID uuid.UUID) error {
	if actor.TenantID == nil {
		return ErrNoTenant
	}
	if tenantID != uuid.Nil && tenantID != *actor.TenantID {
		return ErrForbidden
	}
	return nil
}

// TargetTenant resolves the agency an action applies to: the requested one for
// SuperAdmin, otherwise the actor's own.
func TargetTenant(actor *Profile, requested uuid.UUID) (uuid.UUID, error) {
	if actor.IsSuperAdmin() && requested != uuid.Nil {
		return requested, nil
	}
	if actor.TenantID == nil {
		return uuid.Nil, ErrNoTenant
	}
	return *actor.TenantID, nil
}

// LeadScope returns the listing filter an actor is allowed to see.
func LeadScope(actor *Profile) (LeadFilter, error) {
	if err := Authorize(actor, ActionViewLeads, uuid.Nil); err != nil {
		return LeadFilter{}, err
	}
	switch actor.Role {
	case RoleSuperAdmin:
		return LeadFilter{}, nil
	case RoleBroker:
		id := actor.ID
		return LeadFilter{TenantID: actor.TenantID, AssignedTo: &id}, nil
	default:
		return LeadFilter{TenantID: actor.TenantID}, nil
	}
}
