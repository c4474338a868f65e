package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/domain/mocks"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
)

func newTestResolver(profiles domain.ProfileRepository, tenants domain.TenantRepository) *Resolver {
	r := NewResolver(profiles, tenants, DefaultRetryPolicy(), logger.Discard(), metrics.NewNop())
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func TestResolver_Resolve(t *testing.T) {
	activeID, inactiveID := uuid.New(), uuid.New()
	tenants := mocks.NewMockTenantRepository(
		&domain.Tenant{ID: activeID, Name: "Casa Nova", IsActive: true},
		&domain.Tenant{ID: inactiveID, Name: "Suspensa", IsActive: false},
	)

	testCases := []struct {
		name       string
		profile    *domain.Profile
		wantErr    error
		wantTenant bool
	}{
		{
			name:       "broker of active agency",
			profile:    &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker, TenantID: &activeID},
			wantTenant: true,
		},
		{
			name:    "admin of inactive agency is rejected",
			profile: &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin, TenantID: &inactiveID},
			wantErr: domain.ErrTenantInactive,
		},
		{
			name:       "super admin of inactive agency is allowed",
			profile:    &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin, TenantID: &inactiveID},
			wantTenant: true,
		},
		{
			name:    "profile without agency",
			profile: &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestResolver(mocks.NewMockProfileRepository(tc.profile), tenants)

			res := r.Resolve(context.Background(), tc.profile.ID)

			if tc.wantErr != nil {
				if !res.Rejected() || !errors.Is(res.Err, tc.wantErr) {
					t.Fatalf("expected rejection with %v, got %v", tc.wantErr, res.Err)
				}
				if res.Profile != nil {
					t.Error("rejected resolution must not carry a profile")
				}
				return
			}
			if res.Rejected() {
				t.Fatalf("unexpected rejection: %v", res.Err)
			}
			if res.Profile == nil || res.Profile.ID != tc.profile.ID {
				t.Fatalf("expected profile %s, got %+v", tc.profile.ID, res.Profile)
			}
			if (res.Tenant != nil) != tc.wantTenant {
				t.Errorf("tenant attached = %v, want %v", res.Tenant != nil, tc.wantTenant)
			}
		})
	}
}

func TestResolver_ProfileMissing(t *testing.T) {
	profiles := mocks.NewMockProfileRepository()
	r := newTestResolver(profiles, mocks.NewMockTenantRepository())

	res := r.Resolve(context.Background(), uuid.New())

	if !errors.Is(res.Err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", res.Err)
	}
	if profiles.Calls != 4 {
		t.Errorf("expected 4 lookups, got %d", profiles.Calls)
	}
}

func TestResolver_TenantLookupFails(t *testing.T) {
	tenantID := uuid.New()
	profile := &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker, TenantID: &tenantID}
	tenants := mocks.NewMockTenantRepository()
	tenants.FindErr = errors.New("timeout")
	r := newTestResolver(mocks.NewMockProfileRepository(profile), tenants)

	res := r.Resolve(context.Background(), profile.ID)

	if !errors.Is(res.Err, tenants.FindErr) {
		t.Fatalf("expected tenant lookup error, got %v", res.Err)
	}
}
