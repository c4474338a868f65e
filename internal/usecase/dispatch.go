package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/adapter/projection"
	"github.com/V4T54L/leadhub/internal/domain"
)

// DispatchUseCase sends projected notifications to an agency's configured URL.
type DispatchUseCase struct {
	configs  domain.WebhookConfigRepository
	leads    domain.LeadRepository
	tenants  domain.TenantRepository
	profiles domain.ProfileRepository
	notifier domain.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewDispatchUseCase creates a DispatchUseCase.
func NewDispatchUseCase(
	configs domain.WebhookConfigRepository,
	leads domain.LeadRepository,
	tenants domain.TenantRepository,
	profiles domain.ProfileRepository,
	notifier domain.Notifier,
	logger *slog.Logger,
	m *metrics.Metrics,
) *DispatchUseCase {
	return &DispatchUseCase{
		configs:  configs,
		leads:    leads,
		tenants:  tenants,
		profiles: profiles,
		notifier: notifier,
		logger:   logger.With("component", "dispatcher"),
		metrics:  m,
	}
}

// SendNotification projects snap through the agency's payload projection and
// POSTs it once. Agencies without a send URL are skipped with a nil error.
// Delivery failures are returned as *domain.DispatchError and never retried here.
func (uc *DispatchUseCase) SendNotification(ctx context.Context, tenantID uuid.UUID, eventType string, snap domain.Snapshot) error {
	cfg, err := uc.configs.FindByTenant(ctx, tenantID)
	if errors.Is(err, domain.ErrNotFound) {
		uc.skip(tenantID, eventType)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load webhook config: %w", err)
	}
	if cfg.SendURL == "" {
		uc.skip(tenantID, eventType)
		return nil
	}

	snap.EventType = eventType
	body, err := json.Marshal(projection.Project(snap, cfg.Projection))
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	return uc.notifier.Post(ctx, cfg.SendURL, body)
}

// NotifyLead builds the snapshot for a queued event from current state and sends it.
func (uc *DispatchUseCase) NotifyLead(ctx context.Context, event domain.NotificationEvent) error {
	snap, err := uc.LeadSnapshot(ctx, event.LeadID)
	if err != nil {
		return err
	}
	return uc.SendNotification(ctx, event.TenantID, event.EventType, snap)
}

// LeadSnapshot loads a lead together with its agency and, when assigned, its agent.
func (uc *DispatchUseCase) LeadSnapshot(ctx context.Context, leadID uuid.UUID) (domain.Snapshot, error) {
	lead, err := uc.leads.FindByID(ctx, leadID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load lead %s: %w", leadID, err)
	}
	snap := domain.Snapshot{Lead: lead.Fields()}

	tenant, err := uc.tenants.FindByID(ctx, lead.TenantID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load agency %s: %w", lead.TenantID, err)
	}
	snap.Agency = tenant.Fields()

	if lead.AssignedTo != nil {
		agent, err := uc.profiles.FindByID(ctx, *lead.AssignedTo)
		switch {
		case err == nil:
			snap.Agent = agent.Fields()
		case errors.Is(err, domain.ErrNotFound):
			uc.logger.Warn("Assigned agent has no profile", "lead_id", leadID, "agent_id", *lead.AssignedTo)
		default:
			return domain.Snapshot{}, fmt.Errorf("load agent %s: %w", *lead.AssignedTo, err)
		}
	}
	return snap, nil
}

func (uc *DispatchUseCase) skip(tenantID uuid.UUID, eventType string) {
	if uc.metrics != nil {
		uc.metrics.DispatchTotal.WithLabelValues("skipped").Inc()
	}
	uc.logger.Debug("No send URL configured, skipping notification", "agency_id", tenantID, "event_type", eventType)
}
