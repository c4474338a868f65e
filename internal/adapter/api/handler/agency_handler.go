package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/usecase"
)

// AgencyService manages agencies.
type AgencyService interface {
	CreateAgency(ctx context.Context, actor *domain.Profile, in usecase.NewAgency) (*usecase.AgencyWithAdmin, error)
	List(ctx context.Context, actor *domain.Profile) ([]domain.Tenant, error)
	SetActive(ctx context.Context, actor *domain.Profile, id uuid.UUID, active bool) (*domain.Tenant, error)
}

// AgencyHandler serves SuperAdmin agency management.
type AgencyHandler struct {
	uc     AgencyService
	logger *slog.Logger
}

// NewAgencyHandler creates a new AgencyHandler.
func NewAgencyHandler(uc AgencyService, logger *slog.Logger) *AgencyHandler {
	return &AgencyHandler{uc: uc, logger: logger.With("component", "agency_handler")}
}

// Create handles POST /api/admin/agencies.
func (h *AgencyHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())

	var in usecase.NewAgency
	if status, msg, ok := decodeJSON(w, r, 8<<10, &in); !ok {
		httpx.WriteError(w, status, msg)
		return
	}
	created, err := h.uc.CreateAgency(r.Context(), actor, in)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to create agency.")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

// List handles GET /api/admin/agencies.
func (h *AgencyHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())

	agencies, err := h.uc.List(r.Context(), actor)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to list agencies.")
		return
	}
	if agencies == nil {
		agencies = []domain.Tenant{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"agencies": agencies})
}

// SetStatus handles PATCH /api/admin/agencies/{id}/status.
func (h *AgencyHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid agency id")
		return
	}

	var payload struct {
		IsActive *bool `json:"is_active"`
	}
	if status, msg, ok := decodeJSON(w, r, 4<<10, &payload); !ok {
		httpx.WriteError(w, status, msg)
		return
	}
	if payload.IsActive == nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{
			Error:   "Invalid request.",
			Details: map[string][]string{"is_active": {"is required"}},
		})
		return
	}

	tenant, err := h.uc.SetActive(r.Context(), actor, id, *payload.IsActive)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to update agency status.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tenant)
}
