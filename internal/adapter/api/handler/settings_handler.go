package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/domain"
)

// WebhookSettingsService manages an agency's webhook configuration.
type WebhookSettingsService interface {
	Get(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID) (*domain.WebhookConfig, error)
	UpdateSend(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID, sc domain.SendConfig) (*domain.WebhookConfig, error)
	RotateToken(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID) (string, error)
	SendTest(ctx context.Context, actor *domain.Profile, agencyID uuid.UUID) error
}

// SettingsHandler serves /api/settings/webhook. SuperAdmins pick the agency
// with ?agency_id=, everyone else acts on their own.
type SettingsHandler struct {
	uc     WebhookSettingsService
	logger *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(uc WebhookSettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{uc: uc, logger: logger.With("component", "settings_handler")}
}

// Get handles GET /api/settings/webhook.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, agencyID, ok := h.target(w, r)
	if !ok {
		return
	}
	cfg, err := h.uc.Get(r.Context(), actor, agencyID)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to load webhook settings.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cfg)
}

// Update handles PUT /api/settings/webhook.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, agencyID, ok := h.target(w, r)
	if !ok {
		return
	}
	var sc domain.SendConfig
	if status, msg, ok := decodeJSON(w, r, 64<<10, &sc); !ok {
		httpx.WriteError(w, status, msg)
		return
	}
	cfg, err := h.uc.UpdateSend(r.Context(), actor, agencyID, sc)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to update webhook settings.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cfg)
}

// RotateToken handles POST /api/settings/webhook/token.
func (h *SettingsHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	actor, agencyID, ok := h.target(w, r)
	if !ok {
		return
	}
	token, err := h.uc.RotateToken(r.Context(), actor, agencyID)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "Failed to rotate token.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"receive_token": token})
}

// SendTest handles POST /api/settings/webhook/test. Delivery failures are
// reported to the caller and never retried.
func (h *SettingsHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	actor, agencyID, ok := h.target(w, r)
	if !ok {
		return
	}
	err := h.uc.SendTest(r.Context(), actor, agencyID)

	var dispatchErr *domain.DispatchError
	switch {
	case err == nil:
		httpx.WriteMessage(w, http.StatusOK, "Test notification sent.")
	case errors.As(err, &dispatchErr):
		h.logger.Warn("Test notification failed", "agency_id", agencyID, "error", err)
		httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorBody{Error: dispatchErr.Error(), Status: dispatchErr.Status})
	default:
		writeUseCaseError(w, h.logger, err, "Failed to send test notification.")
	}
}

func (h *SettingsHandler) target(w http.ResponseWriter, r *http.Request) (*domain.Profile, uuid.UUID, bool) {
	actor, _ := middleware.ProfileFromContext(r.Context())
	agencyID, err := agencyParam(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid agency_id parameter")
		return nil, uuid.Nil, false
	}
	return actor, agencyID, true
}
