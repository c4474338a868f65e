package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/domain"
)

// UserAdminService lists profiles and changes their access.
type UserAdminService interface {
	List(ctx context.Context, actor *domain.Profile) ([]domain.UserSummary, error)
	UpdateAccess(ctx context.Context, actor *domain.Profile, id uuid.UUID, role domain.Role, agencyID *uuid.UUID) (*domain.Profile, error)
}

// UserHandler serves SuperAdmin user management.
type UserHandler struct {
	uc     UserAdminService
	logger *slog.Logger
}

func NewUserHandler(uc UserAdminService, logger *slog.Logger) *UserHandler {
	return &UserHandler{uc: uc, logger: logger.With("component", "user_handler")}
}

// List handles GET /api/admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())

	users, err := h.uc.List(r.Context(), actor)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to list users.")
		return
	}
	if users == nil {
		users = []domain.UserSummary{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// Update handles PATCH /api/admin/users/{id}. agency_id may be null to detach
// the user from any agency.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var payload struct {
		Role     string          `json:"role"`
		AgencyID json.RawMessage `json:"agency_id"`
	}
	if status, msg, ok := decodeJSON(w, r, 4<<10, &payload); !ok {
		httpx.WriteError(w, status, msg)
		return
	}

	details := map[string][]string{}
	role, err := domain.ParseRole(payload.Role)
	if err != nil {
		details["role"] = []string{"must be one of SuperAdmin, AdminImobiliaria, Corretor"}
	}
	var agencyID *uuid.UUID
	if len(payload.AgencyID) > 0 && string(payload.AgencyID) != "null" {
		var parsed uuid.UUID
		if err := json.Unmarshal(payload.AgencyID, &parsed); err != nil {
			details["agency_id"] = []string{"must be a UUID or null"}
		} else {
			agencyID = &parsed
		}
	}
	if len(details) > 0 {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "Invalid request.", Details: details})
		return
	}

	profile, err := h.uc.UpdateAccess(r.Context(), actor, id, role, agencyID)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to update user.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}
