package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// AccountProvisioner creates and removes login accounts at the identity provider.
type AccountProvisioner interface {
	CreateUser(ctx context.Context, email, password string) (uuid.UUID, error)
	DeleteUser(ctx context.Context, subject uuid.UUID) error
}

// SessionRevalidator resolves live sessions again after access changes.
type SessionRevalidator interface {
	Revalidate(ctx context.Context, subject uuid.UUID)
	RevalidateTenant(ctx context.Context, tenantID uuid.UUID)
}

// NewAgency is an agency together with its first admin account.
type NewAgency struct {
	Name          string `json:"name" validate:"required,max=255"`
	AdminEmail    string `json:"admin_email" validate:"required,email,max=255"`
	AdminPassword string `json:"admin_password" validate:"required,min=6,max=72"`
}

// AgencyWithAdmin is the result of CreateAgency.
type AgencyWithAdmin struct {
	Agency *domain.Tenant  `json:"agency"`
	Admin  *domain.Profile `json:"admin"`
}

// AgencyUseCase manages agencies on behalf of SuperAdmins.
type AgencyUseCase struct {
	tenants  domain.TenantRepository
	profiles domain.ProfileRepository
	accounts AccountProvisioner
	sessions SessionRevalidator
	logger   *slog.Logger
}

// NewAgencyUseCase creates an AgencyUseCase. accounts and sessions may be nil:
// without accounts CreateAgency is unavailable, without sessions suspensions
// take effect on each user's next request.
func NewAgencyUseCase(tenants domain.TenantRepository, profiles domain.ProfileRepository, accounts AccountProvisioner, sessions SessionRevalidator, logger *slog.Logger) *AgencyUseCase {
	return &AgencyUseCase{
		tenants:  tenants,
		profiles: profiles,
		accounts: accounts,
		sessions: sessions,
		logger:   logger.With("component", "agency_usecase"),
	}
}

// SetActive suspends or reactivates an agency. Live sessions of a suspended
// agency's users are resolved again, which rejects them.
func (uc *AgencyUseCase) SetActive(ctx context.Context, actor *domain.Profile, id uuid.UUID, active bool) (*domain.Tenant, error) {
	if err := domain.Authorize(actor, domain.ActionManageAgencies, id); err != nil {
		return nil, err
	}
	if err := uc.tenants.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("set agency %s active=%t: %w", id, active, err)
	}
	uc.logger.Info("Agency status changed", "agency_id", id, "is_active", active, "by", actor.ID)
	if !active && uc.sessions != nil {
		uc.sessions.RevalidateTenant(ctx, id)
	}
	return uc.tenants.FindByID(ctx, id)
}

// List returns every agency.
func (uc *AgencyUseCase) List(ctx context.Context, actor *domain.Profile) ([]domain.Tenant, error) {
	if err := domain.Authorize(actor, domain.ActionManageAgencies, uuid.Nil); err != nil {
		return nil, err
	}
	return uc.tenants.List(ctx)
}

// CreateAgency creates an active agency, an identity account for its admin and
// the admin's profile. A failed step undoes the steps before it.
func (uc *AgencyUseCase) CreateAgency(ctx context.Context, actor *domain.Profile, in NewAgency) (*AgencyWithAdmin, error) {
	if err := domain.Authorize(actor, domain.ActionManageAgencies, uuid.Nil); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.AdminEmail = strings.TrimSpace(in.AdminEmail)
	if err := validationError(validate.Struct(in)); err != nil {
		return nil, err
	}
	if uc.accounts == nil {
		return nil, fmt.Errorf("create agency admin account: %w", domain.ErrUnavailable)
	}

	tenant := &domain.Tenant{Name: in.Name, IsActive: true}
	if err := uc.tenants.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("create agency: %w", err)
	}

	subject, err := uc.accounts.CreateUser(ctx, in.AdminEmail, in.AdminPassword)
	if err != nil {
		uc.undoAgency(ctx, tenant.ID)
		return nil, fmt.Errorf("create agency admin account: %w", err)
	}

	admin := &domain.Profile{ID: subject, Email: in.AdminEmail, Role: domain.RoleAgencyAdmin, TenantID: &tenant.ID}
	if err := uc.profiles.Create(ctx, admin); err != nil {
		if derr := uc.accounts.DeleteUser(ctx, subject); derr != nil {
			uc.logger.Error("Failed to remove admin account after profile error", "sub", subject, "error", derr)
		}
		uc.undoAgency(ctx, tenant.ID)
		return nil, fmt.Errorf("create agency admin profile: %w", err)
	}

	uc.logger.Info("Agency created", "agency_id", tenant.ID, "admin", subject, "by", actor.ID)
	return &AgencyWithAdmin{Agency: tenant, Admin: admin}, nil
}

func (uc *AgencyUseCase) undoAgency(ctx context.Context, id uuid.UUID) {
	if err := uc.tenants.Delete(ctx, id); err != nil {
		uc.logger.Error("Failed to remove agency after a failed creation", "agency_id", id, "error", err)
	}
}
