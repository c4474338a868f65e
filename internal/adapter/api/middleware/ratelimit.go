package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/metrics"
)

// TenantRateLimiter hands out one token bucket per agency. Idle buckets expire.
type TenantRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *cache.Cache
}

// NewTenantRateLimiter returns nil when rps is not positive, which disables limiting.
func NewTenantRateLimiter(rps float64, burst int) *TenantRateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &TenantRateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: cache.New(10*time.Minute, 20*time.Minute),
	}
}

// Allow reports whether the agency may make another request now.
func (l *TenantRateLimiter) Allow(tenantID uuid.UUID) bool {
	key := tenantID.String()

	l.mu.Lock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	l.limiters.SetDefault(key, lim)
	l.mu.Unlock()

	return lim.(*rate.Limiter).Allow()
}

// RateLimit throttles requests per agency. It must run after WebhookAuth.
func RateLimit(l *TenantRateLimiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := TenantIDFromContext(r.Context())
			if ok && !l.Allow(tenantID) {
				m.InboundLeadsTotal.WithLabelValues("rate_limited").Inc()
				w.Header().Set("Retry-After", "1")
				httpx.WriteError(w, http.StatusTooManyRequests, "Too many requests.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
