package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// UserAdminUseCase lets SuperAdmins list profiles and change their access.
type UserAdminUseCase struct {
	profiles domain.ProfileRepository
	tenants  domain.TenantRepository
	sessions SessionRevalidator
	logger   *slog.Logger
}

// NewUserAdminUseCase creates a UserAdminUseCase. sessions may be nil.
func NewUserAdminUseCase(profiles domain.ProfileRepository, tenants domain.TenantRepository, sessions SessionRevalidator, logger *slog.Logger) *UserAdminUseCase {
	return &UserAdminUseCase{
		profiles: profiles,
		tenants:  tenants,
		sessions: sessions,
		logger:   logger.With("component", "user_admin_usecase"),
	}
}

func (uc *UserAdminUseCase) List(ctx context.Context, actor *domain.Profile) ([]domain.UserSummary, error) {
	if err := domain.Authorize(actor, domain.ActionManageUsers, uuid.Nil); err != nil {
		return nil, err
	}
	return uc.profiles.List(ctx)
}

// UpdateAccess sets a profile's role and agency. A nil agencyID detaches the
// profile from any agency. The profile's live session is resolved again so the
// change applies to its next request.
func (uc *UserAdminUseCase) UpdateAccess(ctx context.Context, actor *domain.Profile, id uuid.UUID, role domain.Role, agencyID *uuid.UUID) (*domain.Profile, error) {
	if err := domain.Authorize(actor, domain.ActionManageUsers, uuid.Nil); err != nil {
		return nil, err
	}
	if agencyID != nil {
		if _, err := uc.tenants.FindByID(ctx, *agencyID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				v := domain.NewValidationError()
				v.Add("agency_id", "does not exist")
				return nil, v
			}
			return nil, fmt.Errorf("load agency %s: %w", *agencyID, err)
		}
	}

	if err := uc.profiles.UpdateAccess(ctx, id, role, agencyID); err != nil {
		return nil, fmt.Errorf("update profile %s: %w", id, err)
	}
	uc.logger.Info("Profile access changed", "profile_id", id, "role", role, "agency_id", agencyID, "by", actor.ID)

	if uc.sessions != nil {
		uc.sessions.Revalidate(ctx, id)
	}
	return uc.profiles.FindByID(ctx, id)
}
