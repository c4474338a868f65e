package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/domain/mocks"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
)

func TestUserAdminUseCase_UpdateAccess(t *testing.T) {
	agency := &domain.Tenant{ID: uuid.New(), Name: "Casa", IsActive: true}
	missing := uuid.New()

	tests := []struct {
		name     string
		actor    *domain.Profile
		target   uuid.UUID
		role     domain.Role
		agencyID *uuid.UUID
		wantErr  func(error) bool
	}{
		{name: "promote broker to agency admin", actor: superAdmin, role: domain.RoleAgencyAdmin, agencyID: &agency.ID},
		{name: "detach from agency", actor: superAdmin, role: domain.RoleSuperAdmin},
		{
			name:     "agency admin is forbidden",
			actor:    &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin, TenantID: &agency.ID},
			role:     domain.RoleAgencyAdmin,
			agencyID: &agency.ID,
			wantErr:  func(err error) bool { return errors.Is(err, domain.ErrForbidden) },
		},
		{
			name:     "unknown agency",
			actor:    superAdmin,
			role:     domain.RoleBroker,
			agencyID: &missing,
			wantErr: func(err error) bool {
				var v *domain.ValidationError
				return errors.As(err, &v) && len(v.Fields["agency_id"]) == 1
			},
		},
		{
			name:    "unknown user",
			actor:   superAdmin,
			target:  uuid.New(),
			role:    domain.RoleBroker,
			wantErr: func(err error) bool { return errors.Is(err, domain.ErrNotFound) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := &domain.Profile{ID: uuid.New(), Email: "corretor@casa.com", Role: domain.RoleBroker, TenantID: &agency.ID}
			profiles := mocks.NewMockProfileRepository(broker)
			sessions := &fakeRevalidator{}
			uc := NewUserAdminUseCase(profiles, mocks.NewMockTenantRepository(agency), sessions, logger.Discard())

			target := broker.ID
			if tt.target != uuid.Nil {
				target = tt.target
			}
			got, err := uc.UpdateAccess(context.Background(), tt.actor, target, tt.role, tt.agencyID)

			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("unexpected error %v", err)
				}
				if len(sessions.subjects) != 0 {
					t.Errorf("no session may be revalidated on failure, got %v", sessions.subjects)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.Role != tt.role {
				t.Errorf("expected role %s, got %s", tt.role, got.Role)
			}
			if (tt.agencyID == nil) != (got.TenantID == nil) || (tt.agencyID != nil && *got.TenantID != *tt.agencyID) {
				t.Errorf("expected agency %v, got %v", tt.agencyID, got.TenantID)
			}
			if len(sessions.subjects) != 1 || sessions.subjects[0] != broker.ID {
				t.Errorf("expected the user's session to be revalidated, got %v", sessions.subjects)
			}
		})
	}
}

func TestUserAdminUseCase_List(t *testing.T) {
	profiles := mocks.NewMockProfileRepository(
		&domain.Profile{ID: uuid.New(), Email: "b@casa.com", Role: domain.RoleBroker},
		&domain.Profile{ID: uuid.New(), Email: "a@casa.com", Role: domain.RoleAgencyAdmin},
	)
	uc := NewUserAdminUseCase(profiles, mocks.NewMockTenantRepository(), nil, logger.Discard())

	got, err := uc.List(context.Background(), superAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Email != "a@casa.com" {
		t.Errorf("unexpected users %+v", got)
	}

	admin := &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin}
	if _, err := uc.List(context.Background(), admin); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
