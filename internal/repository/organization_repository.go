package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examportal/backend/internal/model"
)

var ErrDuplicateOrgCode = errors.New("organization code already exists")

// OrganizationRepository handles organization data access.
type OrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository creates a new OrganizationRepository.
func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

// GetByID retrieves an organization by ID.
func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	o := &model.Organization{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, created_at, updated_at
		 FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.Code, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetByCode retrieves an organization by its join code.
func (r *OrganizationRepository) GetByCode(ctx context.Context, code string) (*model.Organization, error) {
	o := &model.Organization{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, created_at, updated_at
		 FROM organizations WHERE code = $1`, code,
	).Scan(&o.ID, &o.Name, &o.Code, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// List retrieves all organizations ordered by name.
func (r *OrganizationRepository) List(ctx context.Context) ([]model.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, code, created_at, updated_at
		 FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []model.Organization
	for rows.Next() {
		var o model.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Code, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// Create inserts a new organization.
func (r *OrganizationRepository) Create(ctx context.Context, o *model.Organization) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO organizations (name, code)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		o.Name, o.Code,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOrgCode
		}
		return err
	}
	return nil
}

// Update modifies an organization's name. The join code is immutable.
func (r *OrganizationRepository) Update(ctx context.Context, o *model.Organization) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organizations SET name = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2`,
		o.Name, o.ID,
	)
	return err
}

// Delete removes an organization by ID.
func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	return err
}
