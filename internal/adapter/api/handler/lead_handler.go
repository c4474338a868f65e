package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/usecase"
)

// LeadService is the authenticated side of the lead use case.
type LeadService interface {
	CreateForActor(ctx context.Context, actor *domain.Profile, p usecase.LeadPayload) (*domain.Lead, error)
	List(ctx context.Context, actor *domain.Profile, limit int) ([]domain.Lead, error)
}

// LeadHandler serves /api/leads for signed-in users.
type LeadHandler struct {
	uc       LeadService
	logger   *slog.Logger
	maxBytes int64
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(uc LeadService, logger *slog.Logger, maxBytes int64) *LeadHandler {
	return &LeadHandler{uc: uc, logger: logger.With("component", "lead_handler"), maxBytes: maxBytes}
}

// Create handles POST /api/leads.
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())

	var payload usecase.LeadPayload
	if status, msg, ok := decodeJSON(w, r, h.maxBytes, &payload); !ok {
		httpx.WriteError(w, status, msg)
		return
	}

	lead, err := h.uc.CreateForActor(r.Context(), actor, payload)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to create lead.")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, lead)
}

// List handles GET /api/leads?limit=N.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())

	limit, err := intParam(r, "limit", 0)
	if err != nil || limit < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	leads, err := h.uc.List(r.Context(), actor, int(limit))
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to list leads.")
		return
	}
	if leads == nil {
		leads = []domain.Lead{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"leads": leads})
}
