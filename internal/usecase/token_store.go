package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// maxTokenAttempts bounds retries after a receive-token collision.
const maxTokenAttempts = 3

// TokenStore owns the per-agency webhook configuration and its receive token.
type TokenStore struct {
	repo     domain.WebhookConfigRepository
	logger   *slog.Logger
	newToken func() string
}

// NewTokenStore creates a TokenStore issuing random UUID tokens.
func NewTokenStore(repo domain.WebhookConfigRepository, logger *slog.Logger) *TokenStore {
	return &TokenStore{
		repo:     repo,
		logger:   logger.With("component", "token_store"),
		newToken: uuid.NewString,
	}
}

// ResolveTenantByToken maps a receive token to its agency using an exact,
// case-sensitive match. Unknown tokens yield domain.ErrNotFound.
func (s *TokenStore) ResolveTenantByToken(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, domain.ErrNotFound
	}
	return s.repo.FindTenantIDByToken(ctx, token)
}

// GetOrCreateConfig returns the agency's config, creating it with a fresh token
// and the default projection on first access. Concurrent first accesses converge
// on the single row the unique constraint lets through.
func (s *TokenStore) GetOrCreateConfig(ctx context.Context, tenantID uuid.UUID) (*domain.WebhookConfig, error) {
	cfg, err := s.repo.FindByTenant(ctx, tenantID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load webhook config: %w", err)
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		cfg = &domain.WebhookConfig{
			ID:           uuid.New(),
			TenantID:     tenantID,
			ReceiveToken: s.newToken(),
			Projection:   domain.DefaultProjection(),
		}
		err = s.repo.Insert(ctx, cfg)
		if err == nil {
			s.logger.Info("Created webhook config", "agency_id", tenantID)
			return cfg, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("create webhook config: %w", err)
		}

		// Lost a race for this agency: the winner's row is authoritative.
		winner, ferr := s.repo.FindByTenant(ctx, tenantID)
		if ferr == nil {
			return winner, nil
		}
		if !errors.Is(ferr, domain.ErrNotFound) {
			return nil, fmt.Errorf("load webhook config after conflict: %w", ferr)
		}
		// No row for this agency, so the conflict was on the token itself.
		s.logger.Warn("Receive token collision, regenerating", "agency_id", tenantID, "attempt", attempt)
	}
	return nil, fmt.Errorf("create webhook config: %w", domain.ErrConflict)
}

// RotateToken replaces the agency's receive token and returns the new one.
// The previous token stops authenticating once the update commits.
func (s *TokenStore) RotateToken(ctx context.Context, tenantID uuid.UUID) (string, error) {
	if _, err := s.GetOrCreateConfig(ctx, tenantID); err != nil {
		return "", err
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token := s.newToken()
		err := s.repo.UpdateToken(ctx, tenantID, token)
		if err == nil {
			s.logger.Info("Rotated receive token", "agency_id", tenantID)
			return token, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return "", fmt.Errorf("rotate receive token: %w", err)
		}
	}
	return "", fmt.Errorf("rotate receive token: %w", domain.ErrConflict)
}

// UpdateSendConfig validates and stores the outbound URL and payload projection.
func (s *TokenStore) UpdateSendConfig(ctx context.Context, tenantID uuid.UUID, sc domain.SendConfig) (*domain.WebhookConfig, error) {
	valid, err := sc.Validate()
	if err != nil {
		return nil, err
	}
	if _, err := s.GetOrCreateConfig(ctx, tenantID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSendConfig(ctx, tenantID, valid); err != nil {
		return nil, fmt.Errorf("update send config: %w", err)
	}
	return s.repo.FindByTenant(ctx, tenantID)
}
