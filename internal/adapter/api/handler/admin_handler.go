package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/domain"
)

// OutboxAdmin inspects and repairs the notification outbox.
type OutboxAdmin interface {
	Info(ctx context.Context) (*domain.OutboxInfo, error)
	Pending(ctx context.Context) (*domain.PendingSummary, error)
	DeadLetters(ctx context.Context, count int64) ([]domain.DeadLetter, error)
	Requeue(ctx context.Context, ids ...string) (int, error)
	TrimDeadLetters(ctx context.Context, maxLen int64) (int64, error)
}

// AdminHandler handles HTTP requests for outbox administration.
type AdminHandler struct {
	uc     OutboxAdmin
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(uc OutboxAdmin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{uc: uc, logger: logger.With("component", "admin_handler")}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /admin/outbox.
func (h *AdminHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.uc.Info(r.Context())
	if err != nil {
		writeUseCaseError(w, h.logger, err, "failed to get outbox info")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

// GetPendingSummary handles GET /admin/outbox/pending.
func (h *AdminHandler) GetPendingSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.uc.Pending(r.Context())
	if err != nil {
		writeUseCaseError(w, h.logger, err, "failed to get pending summary")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}

// ListDeadLetters handles GET /admin/outbox/dlq?count={count}.
func (h *AdminHandler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", 0)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid count parameter")
		return
	}
	letters, err := h.uc.DeadLetters(r.Context(), count)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "failed to list dead letters")
		return
	}
	if letters == nil {
		letters = []domain.DeadLetter{}
	}
	httpx.WriteJSON(w, http.StatusOK, letters)
}

// RequeueDeadLetters handles POST /admin/outbox/dlq/requeue.
func (h *AdminHandler) RequeueDeadLetters(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := h.uc.Requeue(r.Context(), payload.IDs...)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "failed to requeue dead letters")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"requeued": n})
}

// TrimDeadLetters handles POST /admin/outbox/dlq/trim.
func (h *AdminHandler) TrimDeadLetters(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MaxLen int64 `json:"maxlen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trimmed, err := h.uc.TrimDeadLetters(r.Context(), payload.MaxLen)
	if err != nil {
		writeUseCaseError(w, h.logger, err, "failed to trim dead letters")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"trimmed": trimmed})
}
