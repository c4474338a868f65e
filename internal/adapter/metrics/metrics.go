package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for leadhub.
type Metrics struct {
	InboundLeadsTotal       *prometheus.CounterVec
	TokenLookupsTotal       *prometheus.CounterVec
	TokenNegativeCacheHits  prometheus.Counter
	DispatchTotal           *prometheus.CounterVec
	DispatchDuration        prometheus.Histogram
	OutboxEnqueuedTotal     *prometheus.CounterVec
	OutboxDeadLetteredTotal prometheus.Counter
	WALActive               prometheus.Gauge
	SessionResolutionsTotal *prometheus.CounterVec
	ProfileLookupAttempts   prometheus.Histogram
}

// New initializes the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		InboundLeadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadhub",
			Subsystem: "inbound",
			Name:      "leads_total",
			Help:      "Inbound webhook lead requests by outcome.",
		}, []string{"outcome"}), // created, unauthenticated, forbidden, bad_request, rate_limited, error
		TokenLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadhub",
			Subsystem: "tokens",
			Name:      "lookups_total",
			Help:      "Receive token lookups by result.",
		}, []string{"result"}), // found, not_found, error
		TokenNegativeCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "leadhub",
			Subsystem: "tokens",
			Name:      "negative_cache_hits_total",
			Help:      "Unknown-token lookups answered from the negative cache.",
		}),
		DispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadhub",
			Subsystem: "dispatch",
			Name:      "notifications_total",
			Help:      "Outbound notifications by outcome.",
		}, []string{"outcome"}), // delivered, skipped, remote_rejected, unreachable
		DispatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadhub",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Outbound notification POST latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		OutboxEnqueuedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadhub",
			Subsystem: "outbox",
			Name:      "enqueued_total",
			Help:      "Notification events written to the outbox by destination.",
		}, []string{"destination"}), // redis, wal
		OutboxDeadLetteredTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "leadhub",
			Subsystem: "outbox",
			Name:      "dead_lettered_total",
			Help:      "Notification events moved to the dead-letter stream.",
		}),
		WALActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadhub",
			Subsystem: "outbox",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the outbox is writing to the WAL (1 for active, 0 for inactive).",
		}),
		SessionResolutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadhub",
			Subsystem: "session",
			Name:      "resolutions_total",
			Help:      "Session resolutions by outcome.",
		}, []string{"outcome"}), // resolved, profile_not_found, tenant_inactive, error
		ProfileLookupAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadhub",
			Subsystem: "session",
			Name:      "profile_lookup_attempts",
			Help:      "Attempts needed to fetch a profile.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8},
		}),
	}
}

// NewNop returns metrics bound to a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
