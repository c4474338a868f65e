package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantRepository reads and updates agencies.
type TenantRepository interface {
	// FindByID returns ErrNotFound when the agency does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// Create fills in the generated id and creation time.
	Create(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns every agency ordered by name.
	List(ctx context.Context) ([]Tenant, error)
}

// ProfileRepository reads and maintains application profiles.
type ProfileRepository interface {
	// FindByID returns ErrNotFound when no profile exists for the subject.
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	// UpdateAccess sets role and agency; a nil tenantID detaches the profile.
	UpdateAccess(ctx context.Context, id uuid.UUID, role Role, tenantID *uuid.UUID) error
	// List returns every profile with its agency name, ordered by email.
	List(ctx context.Context) ([]UserSummary, error)
}

// LeadRepository persists leads.
type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]Lead, error)
}

// WebhookConfigRepository stores per-agency webhook configurations.
// The backing table enforces uniqueness on both agency id and receive token.
type WebhookConfigRepository interface {
	// FindTenantIDByToken performs an exact, case-sensitive token match.
	FindTenantIDByToken(ctx context.Context, token string) (uuid.UUID, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*WebhookConfig, error)
	// Insert returns ErrConflict when a row for the agency (or the token) already exists.
	Insert(ctx context.Context, cfg *WebhookConfig) error
	// UpdateToken replaces the receive token in a single statement.
	UpdateToken(ctx context.Context, tenantID uuid.UUID, token string) error
	UpdateSendConfig(ctx context.Context, tenantID uuid.UUID, sc SendConfig) error
}

// NotificationQueue is the durable outbox for lead notifications.
type NotificationQueue interface {
	Enqueue(ctx context.Context, event NotificationEvent) error
	ReadBatch(ctx context.Context, group, consumer string, count int) ([]NotificationEvent, error)
	// ClaimStale takes over entries left pending by consumers that stopped.
	ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]NotificationEvent, error)
	Acknowledge(ctx context.Context, group string, messageIDs ...string) error
	MoveToDLQ(ctx context.Context, events []NotificationEvent) error
}

// WALRepository is the local failover log used while Redis is unreachable.
type WALRepository interface {
	Write(ctx context.Context, event NotificationEvent) error
	// Drain hands logged events to handler and removes them once handled,
	// stopping at the first handler error. Events written during a drain are kept.
	Drain(ctx context.Context, handler func(event NotificationEvent) error) error
}

// OutboxAdminRepository inspects and repairs the notification outbox.
type OutboxAdminRepository interface {
	StreamInfo(ctx context.Context) (*OutboxInfo, error)
	PendingSummary(ctx context.Context, group string) (*PendingSummary, error)
	ListDeadLetters(ctx context.Context, count int64) ([]DeadLetter, error)
	RequeueDeadLetters(ctx context.Context, ids ...string) (int, error)
	TrimDeadLetters(ctx context.Context, maxLen int64) (int64, error)
}
