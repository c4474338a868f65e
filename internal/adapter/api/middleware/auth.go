package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
)

// TenantResolver maps a receive token to its agency.
type TenantResolver interface {
	ResolveTenantByToken(ctx context.Context, token string) (uuid.UUID, error)
}

// WebhookAuth is a middleware factory that authenticates inbound webhook calls.
// It expects "Authorization: Bearer <receive token>" and stores the agency in the context.
func WebhookAuth(tokens TenantResolver, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := httpx.BearerToken(r)
			if !ok {
				logger.Warn("Receive token missing from request", "remote_addr", r.RemoteAddr)
				m.InboundLeadsTotal.WithLabelValues("unauthenticated").Inc()
				httpx.WriteError(w, http.StatusUnauthorized, "Authorization header is missing or invalid.")
				return
			}

			tenantID, err := tokens.ResolveTenantByToken(r.Context(), token)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Invalid receive token provided", "remote_addr", r.RemoteAddr)
				m.InboundLeadsTotal.WithLabelValues("forbidden").Inc()
				httpx.WriteError(w, http.StatusForbidden, "Invalid token.")
				return
			}
			if err != nil {
				logger.Error("Failed to resolve receive token", "error", err)
				m.InboundLeadsTotal.WithLabelValues("error").Inc()
				httpx.WriteError(w, http.StatusInternalServerError, "Failed to create lead.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenantID(r.Context(), tenantID)))
		})
	}
}
