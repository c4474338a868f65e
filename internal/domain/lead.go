package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NEW"
	LeadStatusContacted LeadStatus = "CONTACTED"
	LeadStatusQualified LeadStatus = "QUALIFIED"
	LeadStatusLost      LeadStatus = "LOST"
	LeadStatusWon       LeadStatus = "WON"
)

// Lead is a prospective customer owned by an agency.
type Lead struct {
	ID            uuid.UUID  `json:"id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone *string    `json:"customer_phone,omitempty"`
	CustomerEmail *string    `json:"customer_email,omitempty"`
	Source        *string    `json:"source,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Status        LeadStatus `json:"status"`
	TenantID      uuid.UUID  `json:"agency_id"`
	AssignedTo    *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Fields returns the projectable view of the lead. Absent optionals are left out.
func (l *Lead) Fields() Fields {
	f := Fields{
		"id":            l.ID.String(),
		"customer_name": l.CustomerName,
		"status":        string(l.Status),
		"agency_id":     l.TenantID.String(),
		"created_at":    l.CreatedAt.UTC().Format(time.RFC3339),
	}
	f.setString("customer_phone", l.CustomerPhone)
	f.setString("customer_email", l.CustomerEmail)
	f.setString("source", l.Source)
	f.setString("notes", l.Notes)
	if l.AssignedTo != nil {
		f["assigned_to"] = l.AssignedTo.String()
	}
	return f
}

// LeadFilter scopes a lead listing. Nil fields do not filter.
type LeadFilter struct {
	TenantID   *uuid.UUID
	AssignedTo *uuid.UUID
	Limit      int
}
