package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/domain/mocks"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
)

type fakeAccounts struct {
	mu        sync.Mutex
	createErr error
	created   []string
	deleted   []uuid.UUID
	next      uuid.UUID
}

func (a *fakeAccounts) CreateUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return uuid.Nil, a.createErr
	}
	a.created = append(a.created, email)
	if a.next == uuid.Nil {
		return uuid.New(), nil
	}
	return a.next, nil
}

func (a *fakeAccounts) DeleteUser(ctx context.Context, subject uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, subject)
	return nil
}

type fakeRevalidator struct {
	mu       sync.Mutex
	subjects []uuid.UUID
	tenants  []uuid.UUID
}

func (r *fakeRevalidator) Revalidate(ctx context.Context, subject uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
}

func (r *fakeRevalidator) RevalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, tenantID)
}

var superAdmin = &domain.Profile{ID: uuid.New(), Email: "root@leadhub.com", Role: domain.RoleSuperAdmin}

func TestAgencyUseCase_CreateAgency(t *testing.T) {
	valid := NewAgency{Name: "  Casa Nova ", AdminEmail: "admin@casanova.com", AdminPassword: "secret1"}

	tests := []struct {
		name       string
		actor      *domain.Profile
		in         NewAgency
		createErr  error
		profileErr error
		noAccounts bool
		wantErr    func(error) bool
		wantDelete int // identity accounts removed during rollback
	}{
		{
			name:  "creates agency and admin",
			actor: superAdmin,
			in:    valid,
		},
		{
			name:    "agency admin is forbidden",
			actor:   &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin},
			in:      valid,
			wantErr: func(err error) bool { return errors.Is(err, domain.ErrForbidden) },
		},
		{
			name:  "invalid payload",
			actor: superAdmin,
			in:    NewAgency{Name: "", AdminEmail: "nope", AdminPassword: "123"},
			wantErr: func(err error) bool {
				var v *domain.ValidationError
				return errors.As(err, &v) && len(v.Fields["name"]) == 1 && len(v.Fields["admin_email"]) == 1 && len(v.Fields["admin_password"]) == 1
			},
		},
		{
			name:       "no identity admin client",
			actor:      superAdmin,
			in:         valid,
			noAccounts: true,
			wantErr:    func(err error) bool { return errors.Is(err, domain.ErrUnavailable) },
		},
		{
			name:      "account creation fails",
			actor:     superAdmin,
			in:        valid,
			createErr: domain.ErrConflict,
			wantErr:   func(err error) bool { return errors.Is(err, domain.ErrConflict) },
		},
		{
			name:       "profile creation fails",
			actor:      superAdmin,
			in:         valid,
			profileErr: errors.New("insert failed"),
			wantErr:    func(err error) bool { return err != nil },
			wantDelete: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenants := mocks.NewMockTenantRepository()
			profiles := mocks.NewMockProfileRepository()
			profiles.CreateErr = tt.profileErr
			accounts := &fakeAccounts{createErr: tt.createErr}

			var provisioner AccountProvisioner = accounts
			if tt.noAccounts {
				provisioner = nil
			}
			uc := NewAgencyUseCase(tenants, profiles, provisioner, nil, logger.Discard())

			got, err := uc.CreateAgency(context.Background(), tt.actor, tt.in)

			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("unexpected error %v", err)
				}
				if n := len(tenants.Tenants); n != 0 {
					t.Errorf("expected no agency left behind, got %d", n)
				}
				if len(accounts.deleted) != tt.wantDelete {
					t.Errorf("expected %d removed accounts, got %d", tt.wantDelete, len(accounts.deleted))
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.Agency.Name != "Casa Nova" || !got.Agency.IsActive || got.Agency.ID == uuid.Nil {
				t.Errorf("unexpected agency %+v", got.Agency)
			}
			if got.Admin.Role != domain.RoleAgencyAdmin || got.Admin.TenantID == nil || *got.Admin.TenantID != got.Agency.ID {
				t.Errorf("unexpected admin %+v", got.Admin)
			}
			if _, err := profiles.FindByID(context.Background(), got.Admin.ID); err != nil {
				t.Errorf("expected admin profile to be stored, got %v", err)
			}
		})
	}
}

func TestAgencyUseCase_SuspendRevalidatesSessions(t *testing.T) {
	tenant := &domain.Tenant{ID: uuid.New(), Name: "Casa", IsActive: true}
	sessions := &fakeRevalidator{}
	uc := NewAgencyUseCase(mocks.NewMockTenantRepository(tenant), mocks.NewMockProfileRepository(), nil, sessions, logger.Discard())

	if _, err := uc.SetActive(context.Background(), superAdmin, tenant.ID, true); err != nil {
		t.Fatal(err)
	}
	if len(sessions.tenants) != 0 {
		t.Errorf("reactivation must not revalidate, got %v", sessions.tenants)
	}
	if _, err := uc.SetActive(context.Background(), superAdmin, tenant.ID, false); err != nil {
		t.Fatal(err)
	}
	if len(sessions.tenants) != 1 || sessions.tenants[0] != tenant.ID {
		t.Errorf("expected agency sessions to be revalidated, got %v", sessions.tenants)
	}
}

func TestAgencyUseCase_List(t *testing.T) {
	uc := NewAgencyUseCase(mocks.NewMockTenantRepository(
		&domain.Tenant{ID: uuid.New(), Name: "Zeta"},
		&domain.Tenant{ID: uuid.New(), Name: "Alfa"},
	), mocks.NewMockProfileRepository(), nil, nil, logger.Discard())

	got, err := uc.List(context.Background(), superAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Alfa" {
		t.Errorf("unexpected agencies %+v", got)
	}

	broker := &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker}
	if _, err := uc.List(context.Background(), broker); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
