package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/usecase"
)

// LeadIngester stores leads received through the inbound webhook.
type LeadIngester interface {
	IngestFromWebhook(ctx context.Context, tenantID uuid.UUID, p usecase.LeadPayload) (*domain.Lead, error)
}

// LeadWebhookHandler handles POST /api/webhooks/leads. It runs behind
// middleware.WebhookAuth, which has already resolved the agency.
type LeadWebhookHandler struct {
	useCase  LeadIngester
	logger   *slog.Logger
	maxBytes int64
	metrics  *metrics.Metrics
}

// NewLeadWebhookHandler creates a new LeadWebhookHandler.
func NewLeadWebhookHandler(uc LeadIngester, logger *slog.Logger, maxBytes int64, m *metrics.Metrics) *LeadWebhookHandler {
	return &LeadWebhookHandler{
		useCase:  uc,
		logger:   logger.With("component", "lead_webhook_handler"),
		maxBytes: maxBytes,
		metrics:  m,
	}
}

// ServeHTTP parses, validates and stores one lead.
func (h *LeadWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		h.fail(w, http.StatusUnauthorized, "unauthenticated", "Authorization header is missing or invalid.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.fail(w, http.StatusRequestEntityTooLarge, "bad_request", "Request body too large.")
			return
		}
		h.fail(w, http.StatusBadRequest, "bad_request", "Invalid JSON body.")
		return
	}
	if !json.Valid(raw) {
		h.fail(w, http.StatusBadRequest, "bad_request", "Invalid JSON body.")
		return
	}

	var payload usecase.LeadPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Well-formed JSON of the wrong shape is a validation failure.
		h.invalid(w, typeErrorDetails(err))
		return
	}

	if _, err := h.useCase.IngestFromWebhook(r.Context(), tenantID, payload); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			h.invalid(w, verr.Fields)
			return
		}
		h.logger.Error("Failed to create lead", "agency_id", tenantID, "error", err)
		h.fail(w, http.StatusInternalServerError, "error", "Failed to create lead.")
		return
	}

	h.metrics.InboundLeadsTotal.WithLabelValues("created").Inc()
	httpx.WriteMessage(w, http.StatusCreated, "Lead created successfully.")
}

func (h *LeadWebhookHandler) fail(w http.ResponseWriter, status int, outcome, message string) {
	h.metrics.InboundLeadsTotal.WithLabelValues(outcome).Inc()
	httpx.WriteError(w, status, message)
}

func (h *LeadWebhookHandler) invalid(w http.ResponseWriter, details map[string][]string) {
	h.metrics.InboundLeadsTotal.WithLabelValues("bad_request").Inc()
	httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "Invalid lead data.", Details: details})
}

func typeErrorDetails(err error) map[string][]string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string][]string{typeErr.Field: {"must be a " + typeErr.Type.String()}}
	}
	return map[string][]string{"body": {"must be a JSON object"}}
}
