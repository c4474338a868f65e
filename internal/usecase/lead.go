package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// LeadUseCase creates and lists leads and announces new ones.
type LeadUseCase struct {
	repo      domain.LeadRepository
	queue     domain.NotificationQueue
	publisher domain.LeadPublisher
	logger    *slog.Logger
}

// NewLeadUseCase creates a LeadUseCase. publisher may be nil.
func NewLeadUseCase(repo domain.LeadRepository, queue domain.NotificationQueue, publisher domain.LeadPublisher, logger *slog.Logger) *LeadUseCase {
	return &LeadUseCase{
		repo:      repo,
		queue:     queue,
		publisher: publisher,
		logger:    logger.With("component", "lead_usecase"),
	}
}

// IngestFromWebhook validates an inbound payload and stores it as a NEW,
// unassigned lead of the agency the receive token resolved to.
func (uc *LeadUseCase) IngestFromWebhook(ctx context.Context, tenantID uuid.UUID, p LeadPayload) (*domain.Lead, error) {
	return uc.create(ctx, tenantID, nil, p)
}

// CreateForActor stores a lead on behalf of an authenticated user. Brokers
// become the assignee of the leads they create.
func (uc *LeadUseCase) CreateForActor(ctx context.Context, actor *domain.Profile, p LeadPayload) (*domain.Lead, error) {
	if err := domain.Authorize(actor, domain.ActionCreateLead, uuid.Nil); err != nil {
		return nil, err
	}
	var assignee *uuid.UUID
	if actor.Role == domain.RoleBroker {
		id := actor.ID
		assignee = &id
	}
	return uc.create(ctx, *actor.TenantID, assignee, p)
}

// List returns the leads the actor may see, newest first.
func (uc *LeadUseCase) List(ctx context.Context, actor *domain.Profile, limit int) ([]domain.Lead, error) {
	filter, err := domain.LeadScope(actor)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	leads, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func (uc *LeadUseCase) create(ctx context.Context, tenantID uuid.UUID, assignee *uuid.UUID, p LeadPayload) (*domain.Lead, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	lead := &domain.Lead{
		ID:            uuid.New(),
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
		CustomerEmail: p.CustomerEmail,
		Source:        p.Source,
		Notes:         p.Notes,
		Status:        domain.LeadStatusNew,
		TenantID:      tenantID,
		AssignedTo:    assignee,
	}
	if err := uc.repo.Create(ctx, lead); err != nil {
		uc.logger.Error("Failed to store lead", "agency_id", tenantID, "error", err)
		return nil, fmt.Errorf("create lead: %w", err)
	}

	// The lead is committed; announcing it is best effort.
	if uc.publisher != nil {
		uc.publisher.Publish(*lead)
	}
	uc.enqueueCreated(ctx, lead)
	return lead, nil
}

func (uc *LeadUseCase) enqueueCreated(ctx context.Context, lead *domain.Lead) {
	if uc.queue == nil {
		return
	}
	event := domain.NotificationEvent{
		ID:        uuid.NewString(),
		TenantID:  lead.TenantID,
		LeadID:    lead.ID,
		EventType: domain.EventLeadCreated,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.queue.Enqueue(context.WithoutCancel(ctx), event); err != nil {
		uc.logger.Error("Failed to enqueue lead notification", "lead_id", lead.ID, "event_id", event.ID, "error", err)
	}
}
