package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
)

// WebhookConfigRepository implements domain.WebhookConfigRepository on PostgreSQL.
// Unknown receive tokens are remembered in a short-lived in-process cache so that
// credential probing does not reach the database. Known tokens are never cached:
// a rotated-out token must stop authenticating immediately on every instance.
type WebhookConfigRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	negative *gocache.Cache
	metrics  *metrics.Metrics
}

// NewWebhookConfigRepository creates the repository. A non-positive negativeTTL disables the cache.
func NewWebhookConfigRepository(db *sql.DB, logger *slog.Logger, negativeTTL time.Duration, m *metrics.Metrics) *WebhookConfigRepository {
	r := &WebhookConfigRepository{
		db:      db,
		logger:  logger.With("component", "webhook_config_repository"),
		metrics: m,
	}
	if negativeTTL > 0 {
		r.negative = gocache.New(negativeTTL, 2*negativeTTL)
	}
	return r
}

const selectConfigColumns = `id, real_estate_agency_id, receive_token, send_url, payload_projection, created_at, updated_at`

// FindTenantIDByToken resolves an agency from its receive token.
func (r *WebhookConfigRepository) FindTenantIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	if r.negative != nil {
		if _, found := r.negative.Get(token); found {
			if r.metrics != nil {
				r.metrics.TokenNegativeCacheHits.Inc()
			}
			return uuid.Nil, domain.ErrNotFound
		}
	}

	var tenantID uuid.UUID
	err := r.db.QueryRowContext(ctx,
		`SELECT real_estate_agency_id FROM webhook_configs WHERE receive_token = $1`, token,
	).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.observeLookup("not_found")
			if r.negative != nil {
				r.negative.SetDefault(token, struct{}{})
			}
			return uuid.Nil, domain.ErrNotFound
		}
		r.observeLookup("error")
		// Don't cache errors, let the next request retry from the DB
		return uuid.Nil, fmt.Errorf("find tenant by receive token: %w", err)
	}

	r.observeLookup("found")
	return tenantID, nil
}

// FindByTenant returns the agency's config or domain.ErrNotFound.
func (r *WebhookConfigRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.WebhookConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectConfigColumns+` FROM webhook_configs WHERE real_estate_agency_id = $1`, tenantID)

	cfg, err := scanConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find webhook config: %w", err)
	}
	return cfg, nil
}

// Insert creates the agency's config row. A concurrent insert for the same
// agency surfaces as domain.ErrConflict through the unique constraint.
func (r *WebhookConfigRepository) Insert(ctx context.Context, cfg *domain.WebhookConfig) error {
	projection, err := json.Marshal(cfg.Projection)
	if err != nil {
		return fmt.Errorf("marshal payload projection: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO webhook_configs (id, real_estate_agency_id, receive_token, send_url, payload_projection)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5::jsonb)
		RETURNING created_at, updated_at`,
		cfg.ID, cfg.TenantID, cfg.ReceiveToken, cfg.SendURL, string(projection),
	).Scan(&cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert webhook config: %w", err)
	}
	return nil
}

// UpdateToken swaps the receive token in one statement; the old token stops
// matching as soon as the statement commits.
func (r *WebhookConfigRepository) UpdateToken(ctx context.Context, tenantID uuid.UUID, token string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE webhook_configs SET receive_token = $2, updated_at = NOW() WHERE real_estate_agency_id = $1`,
		tenantID, token)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("update receive token: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	if r.negative != nil {
		r.negative.Delete(token)
	}
	return nil
}

// UpdateSendConfig stores the outbound URL and payload projection.
func (r *WebhookConfigRepository) UpdateSendConfig(ctx context.Context, tenantID uuid.UUID, sc domain.SendConfig) error {
	projection, err := json.Marshal(sc.Projection)
	if err != nil {
		return fmt.Errorf("marshal payload projection: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE webhook_configs
		SET send_url = NULLIF($2, ''), payload_projection = $3::jsonb, updated_at = NOW()
		WHERE real_estate_agency_id = $1`,
		tenantID, sc.SendURL, string(projection))
	if err != nil {
		return fmt.Errorf("update send config: %w", err)
	}
	return expectOneRow(res)
}

func (r *WebhookConfigRepository) observeLookup(result string) {
	if r.metrics != nil {
		r.metrics.TokenLookupsTotal.WithLabelValues(result).Inc()
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*domain.WebhookConfig, error) {
	var (
		cfg        domain.WebhookConfig
		sendURL    sql.NullString
		projection []byte
	)
	if err := row.Scan(&cfg.ID, &cfg.TenantID, &cfg.ReceiveToken, &sendURL, &projection, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	cfg.SendURL = sendURL.String
	if len(projection) > 0 {
		if err := json.Unmarshal(projection, &cfg.Projection); err != nil {
			return nil, fmt.Errorf("decode payload projection: %w", err)
		}
	}
	return &cfg, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
