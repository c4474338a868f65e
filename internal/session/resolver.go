package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
)

// ErrProfileNotFound rejects principals whose profile never appeared.
var ErrProfileNotFound = errors.New("profile not found")

// Resolution is the result of resolving one principal.
type Resolution struct {
	Profile *domain.Profile
	// Tenant is nil for profiles without an agency.
	Tenant *domain.Tenant
	// Err is non-nil when the principal must be rejected. It wraps
	// ErrProfileNotFound, domain.ErrTenantInactive or a lookup failure.
	Err error
}

// Rejected reports whether the principal must be signed out.
func (r Resolution) Rejected() bool { return r.Err != nil }

// Resolver turns an identity subject into a profile and agency status.
type Resolver struct {
	profiles domain.ProfileRepository
	tenants  domain.TenantRepository
	policy   RetryPolicy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	sleep    sleepFunc
}

// NewResolver creates a Resolver. m may be nil.
func NewResolver(profiles domain.ProfileRepository, tenants domain.TenantRepository, policy RetryPolicy, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		profiles: profiles,
		tenants:  tenants,
		policy:   policy,
		logger:   logger.With("component", "session_resolver"),
		metrics:  m,
		sleep:    sleepCtx,
	}
}

// Resolve fetches the subject's profile with the retry policy, attaches its
// agency and decides whether the session may proceed.
func (r *Resolver) Resolve(ctx context.Context, subject uuid.UUID) Resolution {
	lookup := r.policy.FetchProfile(ctx, r.profiles, subject, r.sleep)
	if r.metrics != nil && lookup.Attempts > 0 {
		r.metrics.ProfileLookupAttempts.Observe(float64(lookup.Attempts))
	}

	switch lookup.Outcome {
	case NotFoundAfterRetries:
		r.logger.Warn("Profile not found after retries", "sub", subject, "attempts", lookup.Attempts)
		return r.done("profile_not_found", Resolution{Err: ErrProfileNotFound})
	case Failed:
		r.logger.Error("Profile lookup failed", "sub", subject, "error", lookup.Err)
		return r.done("error", Resolution{Err: fmt.Errorf("load profile: %w", lookup.Err)})
	}

	res := Resolution{Profile: lookup.Profile}
	if lookup.Profile.TenantID != nil {
		tenant, err := r.tenants.FindByID(ctx, *lookup.Profile.TenantID)
		if err != nil {
			r.logger.Error("Agency lookup failed", "sub", subject, "agency_id", *lookup.Profile.TenantID, "error", err)
			return r.done("error", Resolution{Err: fmt.Errorf("load agency: %w", err)})
		}
		res.Tenant = tenant
	}

	if !lookup.Profile.IsSuperAdmin() && res.Tenant != nil && !res.Tenant.IsActive {
		r.logger.Info("Rejecting session of inactive agency", "sub", subject, "agency_id", res.Tenant.ID)
		return r.done("tenant_inactive", Resolution{Err: domain.ErrTenantInactive})
	}
	return r.done("resolved", res)
}

func (r *Resolver) done(outcome string, res Resolution) Resolution {
	if r.metrics != nil {
		r.metrics.SessionResolutionsTotal.WithLabelValues(outcome).Inc()
	}
	return res
}
