package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
)

type stubUsers struct {
	id       uuid.UUID
	role     domain.Role
	agencyID *uuid.UUID
	calls    int
}

func (s *stubUsers) List(ctx context.Context, actor *domain.Profile) ([]domain.UserSummary, error) {
	return nil, nil
}

func (s *stubUsers) UpdateAccess(ctx context.Context, actor *domain.Profile, id uuid.UUID, role domain.Role, agencyID *uuid.UUID) (*domain.Profile, error) {
	if err := domain.Authorize(actor, domain.ActionManageUsers, uuid.Nil); err != nil {
		return nil, err
	}
	s.calls++
	s.id, s.role, s.agencyID = id, role, agencyID
	return &domain.Profile{ID: id, Role: role, TenantID: agencyID}, nil
}

func TestUserHandler_Update(t *testing.T) {
	userID := uuid.New()
	agencyID := uuid.New()
	super := &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin}
	admin := &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin, TenantID: &agencyID}

	tests := []struct {
		name           string
		actor          *domain.Profile
		path           string
		body           string
		expectedStatus int
		expectedAgency *uuid.UUID
	}{
		{"assign agency", super, userID.String(), fmt.Sprintf(`{"role":"Corretor","agency_id":%q}`, agencyID), http.StatusOK, &agencyID},
		{"detach agency", super, userID.String(), `{"role":"SuperAdmin","agency_id":null}`, http.StatusOK, nil},
		{"omitted agency", super, userID.String(), `{"role":"SuperAdmin"}`, http.StatusOK, nil},
		{"unknown role", super, userID.String(), `{"role":"Owner"}`, http.StatusBadRequest, nil},
		{"bad agency id", super, userID.String(), `{"role":"Corretor","agency_id":"nope"}`, http.StatusBadRequest, nil},
		{"bad user id", super, "nope", `{"role":"Corretor"}`, http.StatusBadRequest, nil},
		{"invalid json", super, userID.String(), `{`, http.StatusBadRequest, nil},
		{"agency admin", admin, userID.String(), `{"role":"Corretor"}`, http.StatusForbidden, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubUsers{}
			r := chi.NewRouter()
			r.Patch("/api/admin/users/{id}", NewUserHandler(stub, logger.Discard()).Update)

			req := httptest.NewRequest(http.MethodPatch, "/api/admin/users/"+tt.path, strings.NewReader(tt.body))
			req = req.WithContext(middleware.WithProfile(req.Context(), tt.actor))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedStatus == http.StatusBadRequest && stub.calls != 0 {
				t.Error("a rejected payload must not reach the use case")
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if stub.id != userID {
				t.Errorf("updated %s, want %s", stub.id, userID)
			}
			if (tt.expectedAgency == nil) != (stub.agencyID == nil) || (tt.expectedAgency != nil && *stub.agencyID != *tt.expectedAgency) {
				t.Errorf("agency = %v, want %v", stub.agencyID, tt.expectedAgency)
			}
		})
	}
}

func TestUserHandler_UnknownRoleDetails(t *testing.T) {
	h := NewUserHandler(&stubUsers{}, logger.Discard())
	r := chi.NewRouter()
	r.Patch("/api/admin/users/{id}", h.Update)

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/users/"+uuid.NewString(), strings.NewReader(`{"role":"Owner","agency_id":"nope"}`))
	req = req.WithContext(middleware.WithProfile(req.Context(), &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin}))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	body := rr.Body.String()
	if !strings.Contains(body, `"role":["must be one of SuperAdmin, AdminImobiliaria, Corretor"]`) || !strings.Contains(body, `"agency_id":["must be a UUID or null"]`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestUserHandler_List(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req = req.WithContext(middleware.WithProfile(req.Context(), &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin}))
	NewUserHandler(&stubUsers{}, logger.Discard()).List(rr, req)

	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"users":[]}` {
		t.Errorf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}

func TestAgencyHandler_Create(t *testing.T) {
	super := &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin}

	tests := []struct {
		name           string
		body           string
		err            error
		expectedStatus int
	}{
		{"created", `{"name":"Casa","admin_email":"a@casa.com","admin_password":"secret1"}`, nil, http.StatusCreated},
		{"invalid json", `{"name":`, nil, http.StatusBadRequest},
		{"identity admin missing", `{"name":"Casa","admin_email":"a@casa.com","admin_password":"secret1"}`, fmt.Errorf("create: %w", domain.ErrUnavailable), http.StatusServiceUnavailable},
		{"email taken", `{"name":"Casa","admin_email":"a@casa.com","admin_password":"secret1"}`, domain.ErrConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAgencies{err: tt.err}
			req := httptest.NewRequest(http.MethodPost, "/api/admin/agencies", strings.NewReader(tt.body))
			req = req.WithContext(middleware.WithProfile(req.Context(), super))
			rr := httptest.NewRecorder()
			NewAgencyHandler(stub, logger.Discard()).Create(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedStatus == http.StatusCreated && (stub.created == nil || stub.created.AdminEmail != "a@casa.com") {
				t.Errorf("unexpected payload %+v", stub.created)
			}
		})
	}
}

func TestAgencyHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		actor          *domain.Profile
		expectedStatus int
	}{
		{"super admin", &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin}, http.StatusOK},
		{"broker", &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/agencies", nil)
			req = req.WithContext(middleware.WithProfile(req.Context(), tt.actor))
			rr := httptest.NewRecorder()
			NewAgencyHandler(&stubAgencies{}, logger.Discard()).List(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusOK && strings.TrimSpace(rr.Body.String()) != `{"agencies":[]}` {
				t.Errorf("unexpected body %s", rr.Body.String())
			}
		})
	}
}
