package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// WebhookSettingsUseCase exposes the token store and the test send to
// authenticated users, enforcing who may manage which agency.
type WebhookSettingsUseCase struct {
	store    *TokenStore
	dispatch *DispatchUseCase
	tenants  domain.TenantRepository
}

func NewWebhookSettingsUseCase(store *TokenStore, dispatch *DispatchUseCase, tenants domain.TenantRepository) *WebhookSettingsUseCase {
	return &WebhookSettingsUseCase{store: store, dispatch: dispatch, tenants: tenants}
}

// target authorizes actor for agencyID (uuid.Nil meaning their own) and returns
// the agency. An explicitly named agency must exist.
func (uc *WebhookSettingsUseCase) target(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID) (uuid.UUID, error) {
	if err := domain.Authorize(actor, domain.ActionManageWebhooks, agencyID); err != nil {
		return uuid.Nil, err
	}
	tenantID, err := domain.TargetTenant(actor, agencyID)
	if err != nil {
		return uuid.Nil, err
	}
	if agencyID != uuid.Nil {
		if _, err := uc.tenants.FindByID(ctx, tenantID); err != nil {
			return uuid.Nil, fmt.Errorf("load agency %s: %w", tenantID, err)
		}
	}
	return tenantID, nil
}

func (uc *WebhookSettingsUseCase) Get(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID) (*domain.WebhookConfig, error) {
	tenantID, err := uc.target(ctx, actor, agencyID)
	if err != nil {
		return nil, err
	}
	return uc.store.GetOrCreateConfig(ctx, tenantID)
}

func (uc *WebhookSettingsUseCase) UpdateSend(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID, sc domain.SendConfig) (*domain.WebhookConfig, error) {
	tenantID, err := uc.target(ctx, actor, agencyID)
	if err != nil {
		return nil, err
	}
	return uc.store.UpdateSendConfig(ctx, tenantID, sc)
}

func (uc *WebhookSettingsUseCase) RotateToken(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID) (string, error) {
	tenantID, err := uc.target(ctx, actor, agencyID)
	if err != nil {
		return "", err
	}
	return uc.store.RotateToken(ctx, tenantID)
}

// SendTest POSTs a sample notification built from the actor and the agency to
// the configured URL once, returning the delivery outcome as is.
func (uc *WebhookSettingsUseCase) SendTest(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID) error {
	tenantID, err := uc.target(ctx, actor, agencyID)
	if err != nil {
		return err
	}
	cfg, err := uc.store.GetOrCreateConfig(ctx, tenantID)
	if err != nil {
		return err
	}
	if cfg.SendURL == "" {
		v := domain.NewValidationError()
		v.Add("send_url", "is not configured")
		return v
	}
	tenant, err := uc.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load agency: %w", err)
	}

	source, notes := "webhook_test", "Sample lead generated by the webhook test action."
	sample := domain.Lead{
		ID:           uuid.New(),
		CustomerName: "Test Lead",
		Source:       &source,
		Notes:        &notes,
		Status:       domain.LeadStatusNew,
		TenantID:     tenantID,
		AssignedTo:   &actor.ID,
		CreatedAt:    time.Now().UTC(),
	}
	snap := domain.Snapshot{
		Lead:   sample.Fields(),
		Agent:  actor.Fields(),
		Agency: tenant.Fields(),
	}
	return uc.dispatch.SendNotification(ctx, tenantID, domain.EventWebhookTest, snap)
}
