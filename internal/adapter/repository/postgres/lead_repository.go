package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// LeadRepository implements domain.LeadRepository for PostgreSQL.
type LeadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLeadRepository creates a new PostgreSQL lead repository.
func NewLeadRepository(db *sql.DB, logger *slog.Logger) *LeadRepository {
	return &LeadRepository{db: db, logger: logger.With("component", "lead_repository")}
}

const selectLeadColumns = `id, customer_name, customer_phone, customer_email, source, notes, status, real_estate_agency_id, assigned_to, created_at`

// Create inserts a lead in a single statement and fills CreatedAt from the database.
func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	var assignedTo uuid.NullUUID
	if lead.AssignedTo != nil {
		assignedTo = uuid.NullUUID{UUID: *lead.AssignedTo, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO leads (id, customer_name, customer_phone, customer_email, source, notes, status, real_estate_agency_id, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		lead.ID, lead.CustomerName, lead.CustomerPhone, lead.CustomerEmail, lead.Source, lead.Notes,
		string(lead.Status), lead.TenantID, assignedTo,
	).Scan(&lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// FindByID returns a lead or domain.ErrNotFound.
func (r *LeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectLeadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

// List returns leads matching the filter, newest first.
func (r *LeadRepository) List(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.TenantID != nil {
		args = append(args, *filter.TenantID)
		where = append(where, "real_estate_agency_id = $"+strconv.Itoa(len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		where = append(where, "assigned_to = $"+strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)

	query := `SELECT ` + selectLeadColumns + ` FROM leads`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var (
		lead                        domain.Lead
		phone, email, source, notes sql.NullString
		status                      string
		assignedTo                  uuid.NullUUID
	)
	err := row.Scan(&lead.ID, &lead.CustomerName, &phone, &email, &source, &notes,
		&status, &lead.TenantID, &assignedTo, &lead.CreatedAt)
	if err != nil {
		return nil, err
	}
	lead.CustomerPhone = nullString(phone)
	lead.CustomerEmail = nullString(email)
	lead.Source = nullString(source)
	lead.Notes = nullString(notes)
	lead.Status = domain.LeadStatus(status)
	if assignedTo.Valid {
		id := assignedTo.UUID
		lead.AssignedTo = &id
	}
	return &lead, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
