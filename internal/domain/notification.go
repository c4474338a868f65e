package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types carried in outbound notifications.
const (
	EventLeadCreated = "lead_created"
	EventWebhookTest = "webhook_test"
)

// Fields is a flat, JSON-safe view of an entity keyed by field name.
type Fields map[string]any

func (f Fields) setString(key string, v *string) {
	if v != nil {
		f[key] = *v
	}
}

// Snapshot is the full entity state an outbound notification is projected from.
type Snapshot struct {
	EventType string
	Lead      Fields
	Agent     Fields
	Agency    Fields
}

// Entity returns the snapshot entity stored under an entity key.
func (s Snapshot) Entity(key string) Fields {
	switch key {
	case EntityLead:
		return s.Lead
	case EntityAgent:
		return s.Agent
	case EntityAgency:
		return s.Agency
	}
	return nil
}

// NotificationEvent is a queued request to notify an agency about a lead.
type NotificationEvent struct {
	ID        string    `json:"event_id"`
	TenantID  uuid.UUID `json:"agency_id"`
	LeadID    uuid.UUID `json:"lead_id"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`

	// StreamMessageID is the Redis Stream entry ID, set when read back from the queue.
	StreamMessageID string `json:"-"`
	// FailureReason is set when the event is dead-lettered.
	FailureReason string `json:"failure_reason,omitempty"`
}

// Notifier posts a JSON body to an agency's receiver. Failures are *DispatchError.
type Notifier interface {
	Post(ctx context.Context, url string, body []byte) error
}

// LeadPublisher fans newly created leads out to live subscribers of their agency.
type LeadPublisher interface {
	Publish(lead Lead)
}
