package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID loads a profile by identity subject id. Stored roles outside the
// known set are rejected rather than passed through.
func (r *ProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `
        SELECT id, email, role, real_estate_agency_id
        FROM profiles
        WHERE id = $1
    `

	var (
		profile  domain.Profile
		role     string
		tenantID uuid.NullUUID
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&profile.ID, &profile.Email, &role, &tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find profile by ID: %w", err)
	}

	profile.Role, err = domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}
	if tenantID.Valid {
		tid := tenantID.UUID
		profile.TenantID = &tid
	}
	return &profile, nil
}

// Create inserts a profile. An existing profile for the subject is ErrConflict.
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `
        INSERT INTO profiles (id, email, role, real_estate_agency_id)
        VALUES ($1, $2, $3, $4)
    `
	_, err := r.db.ExecContext(ctx, query, profile.ID, profile.Email, string(profile.Role), nullUUID(profile.TenantID))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) UpdateAccess(ctx context.Context, id uuid.UUID, role domain.Role, tenantID *uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET role = $2, real_estate_agency_id = $3 WHERE id = $1`,
		id, string(role), nullUUID(tenantID))
	if err != nil {
		return fmt.Errorf("update profile access: %w", err)
	}
	return expectOneRow(res)
}

// List returns every profile joined with its agency name. A stored role
// outside the known set fails the whole listing.
func (r *ProfileRepository) List(ctx context.Context) ([]domain.UserSummary, error) {
	query := `
        SELECT p.id, p.email, p.role, p.real_estate_agency_id, a.name
        FROM profiles p
        LEFT JOIN real_estate_agencies a ON a.id = p.real_estate_agency_id
        ORDER BY p.email
    `
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	users := []domain.UserSummary{}
	for rows.Next() {
		var (
			u          domain.UserSummary
			role       string
			tenantID   uuid.NullUUID
			agencyName sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &role, &tenantID, &agencyName); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if u.Role, err = domain.ParseRole(role); err != nil {
			return nil, fmt.Errorf("profile %s: %w", u.ID, err)
		}
		if tenantID.Valid {
			tid := tenantID.UUID
			u.TenantID = &tid
		}
		if agencyName.Valid {
			name := agencyName.String
			u.AgencyName = &name
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return users, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
