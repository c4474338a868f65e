package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a real-estate agency, the unit of data partitioning.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Fields returns the projectable view of the agency.
func (t *Tenant) Fields() Fields {
	return Fields{
		"id":         t.ID.String(),
		"name":       t.Name,
		"is_active":  t.IsActive,
		"created_at": t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
