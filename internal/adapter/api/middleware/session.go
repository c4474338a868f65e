package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/identity"
	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/session"
)

// TokenVerifier validates identity-provider access tokens.
type TokenVerifier interface {
	Verify(token string) (identity.Principal, error)
}

// SessionGate resolves a principal for an auth event.
type SessionGate interface {
	Handle(ctx context.Context, event domain.AuthEvent) (session.Snapshot, error)
}

// Session authenticates application API calls. Each request counts as a
// token refresh for its principal, so the profile and agency status are
// resolved again before the handler runs.
func Session(verifier TokenVerifier, gate SessionGate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := httpx.BearerToken(r)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "Authorization header is missing or invalid.")
				return
			}
			principal, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("Rejected access token", "remote_addr", r.RemoteAddr, "error", err)
				httpx.WriteError(w, http.StatusUnauthorized, "Invalid or expired session.")
				return
			}

			snap, err := gate.Handle(r.Context(), domain.AuthEvent{
				Kind:    domain.AuthTokenRefreshed,
				Subject: principal.Subject,
				Email:   principal.Email,
				At:      time.Now().UTC(),
			})
			if err != nil {
				logger.Error("Session resolution did not complete", "sub", principal.Subject, "error", err)
				httpx.WriteError(w, http.StatusUnauthorized, "Could not resolve session.")
				return
			}

			switch {
			case snap.State == session.Resolved:
				next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), snap.Profile)))
			case errors.Is(snap.Err, domain.ErrTenantInactive):
				httpx.WriteError(w, http.StatusForbidden, "Your agency is inactive. Please contact support.")
			case errors.Is(snap.Err, session.ErrProfileNotFound):
				httpx.WriteError(w, http.StatusUnauthorized, "Profile not found.")
			default:
				httpx.WriteError(w, http.StatusUnauthorized, "Could not resolve session.")
			}
		})
	}
}
