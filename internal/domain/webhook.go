package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity keys used in projections and outbound payloads.
const (
	EntityLead   = "lead"
	EntityAgent  = "agent"
	EntityAgency = "agency"
)

// ProjectableFields lists, per entity, the field names a projection may select.
var ProjectableFields = map[string][]string{
	EntityLead: {
		"id", "customer_name", "customer_phone", "customer_email", "source",
		"notes", "status", "assigned_to", "agency_id", "created_at",
	},
	EntityAgent:  {"id", "email", "role"},
	EntityAgency: {"id", "name", "is_active", "created_at"},
}

// PayloadProjection is a tenant's allow-list of outbound fields per entity.
// Field order is significant: it is the order fields appear in the payload.
type PayloadProjection struct {
	IncludeEventType bool     `json:"include_event_type"`
	Lead             []string `json:"lead"`
	Agent            []string `json:"agent"`
	Agency           []string `json:"agency"`
}

// DefaultProjection is assigned to configs created on first access.
func DefaultProjection() PayloadProjection {
	return PayloadProjection{
		IncludeEventType: true,
		Lead:             []string{"id", "customer_name", "customer_phone", "customer_email", "status", "source"},
		Agent:            []string{"id", "email"},
		Agency:           []string{"id", "name"},
	}
}

// FieldsFor returns the configured field list for an entity key.
func (p PayloadProjection) FieldsFor(entity string) []string {
	switch entity {
	case EntityLead:
		return p.Lead
	case EntityAgent:
		return p.Agent
	case EntityAgency:
		return p.Agency
	}
	return nil
}

// Normalize rejects unknown field names and collapses duplicates, keeping the first occurrence.
func (p PayloadProjection) Normalize() (PayloadProjection, error) {
	verr := NewValidationError()
	out := PayloadProjection{IncludeEventType: p.IncludeEventType}
	out.Lead = normalizeFields(EntityLead, p.Lead, verr)
	out.Agent = normalizeFields(EntityAgent, p.Agent, verr)
	out.Agency = normalizeFields(EntityAgency, p.Agency, verr)
	if verr.HasErrors() {
		return PayloadProjection{}, verr
	}
	return out, nil
}

func normalizeFields(entity string, fields []string, verr *ValidationError) []string {
	allowed := make(map[string]struct{}, len(ProjectableFields[entity]))
	for _, f := range ProjectableFields[entity] {
		allowed[f] = struct{}{}
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := allowed[f]; !ok {
			verr.Add("payload_projection."+entity, "unknown field "+f)
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// WebhookConfig is the single per-agency webhook configuration row.
type WebhookConfig struct {
	ID           uuid.UUID         `json:"id"`
	TenantID     uuid.UUID         `json:"agency_id"`
	ReceiveToken string            `json:"receive_token"`
	SendURL      string            `json:"send_url"`
	Projection   PayloadProjection `json:"payload_projection"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// SendConfig is the mutable outbound part of a WebhookConfig.
type SendConfig struct {
	SendURL    string            `json:"send_url"`
	Projection PayloadProjection `json:"payload_projection"`
}

// Validate checks the URL and the projection, returning a normalized copy.
func (c SendConfig) Validate() (SendConfig, error) {
	verr := NewValidationError()
	c.SendURL = strings.TrimSpace(c.SendURL)
	if c.SendURL != "" {
		u, err := url.Parse(c.SendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			verr.Add("send_url", "must be an absolute http or https URL")
		}
	}

	projection, err := c.Projection.Normalize()
	if perr, ok := err.(*ValidationError); ok {
		for field, msgs := range perr.Fields {
			for _, m := range msgs {
				verr.Add(field, m)
			}
		}
	}
	if verr.HasErrors() {
		return SendConfig{}, verr
	}
	c.Projection = projection
	return c, nil
}
