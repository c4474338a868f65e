package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// TenantRepository implements domain.TenantRepository over real_estate_agencies.
type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
        SELECT id, name, is_active, created_at
        FROM real_estate_agencies
        WHERE id = $1
    `

	var tenant domain.Tenant
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.IsActive,
		&tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find agency by ID: %w", err)
	}

	return &tenant, nil
}

func (r *TenantRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE real_estate_agencies SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set agency active: %w", err)
	}
	return expectOneRow(res)
}

func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
        INSERT INTO real_estate_agencies (name, is_active)
        VALUES ($1, $2)
        RETURNING id, created_at
    `
	if err := r.db.QueryRowContext(ctx, query, tenant.Name, tenant.IsActive).Scan(&tenant.ID, &tenant.CreatedAt); err != nil {
		return fmt.Errorf("create agency: %w", err)
	}
	return nil
}

func (r *TenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM real_estate_agencies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agency: %w", err)
	}
	return expectOneRow(res)
}

func (r *TenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	query := `
        SELECT id, name, is_active, created_at
        FROM real_estate_agencies
        ORDER BY name, created_at
    `
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	defer rows.Close()

	tenants := []domain.Tenant{}
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agencies: %w", err)
	}
	return tenants, nil
}
