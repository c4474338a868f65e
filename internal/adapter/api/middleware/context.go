package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

type contextKey int

const (
	tenantKey contextKey = iota
	profileKey
)

// WithTenantID stores the agency resolved from a receive token.
func WithTenantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantKey, id)
}

// TenantIDFromContext returns the agency set by WebhookAuth.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantKey).(uuid.UUID)
	return id, ok
}

// WithProfile stores the resolved profile of the calling principal.
func WithProfile(ctx context.Context, p *domain.Profile) context.Context {
	return context.WithValue(ctx, profileKey, p)
}

// ProfileFromContext returns the profile set by Session.
func ProfileFromContext(ctx context.Context) (*domain.Profile, bool) {
	p, ok := ctx.Value(profileKey).(*domain.Profile)
	return p, ok && p != nil
}
