package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examportal/backend/internal/model"
)

var ErrDuplicateStudentEmail = errors.New("student with this email already exists in the organization")

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, org_id, name, roll_no, email_id, phone_number, section, year, created_at, updated_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.OrgID, &s.Name, &s.RollNo, &s.EmailID, &s.PhoneNumber, &s.Section, &s.Year, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByOrgAndEmail retrieves a student by organization and email,
// case-insensitively on the email.
func (r *StudentRepository) GetByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, org_id, name, roll_no, email_id, phone_number, section, year, created_at, updated_at
		 FROM students WHERE org_id = $1 AND LOWER(email_id) = LOWER($2)`, orgID, email,
	).Scan(&s.ID, &s.OrgID, &s.Name, &s.RollNo, &s.EmailID, &s.PhoneNumber, &s.Section, &s.Year, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByOrg retrieves students in an organization with pagination.
func (r *StudentRepository) ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]model.Student, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE org_id = $1`, orgID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, org_id, name, roll_no, email_id, phone_number, section, year, created_at, updated_at
		 FROM students WHERE org_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Name, &s.RollNo, &s.EmailID, &s.PhoneNumber, &s.Section, &s.Year, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (org_id, name, roll_no, email_id, phone_number, section, year)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		s.OrgID, s.Name, s.RollNo, s.EmailID, s.PhoneNumber, s.Section, s.Year,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateStudentEmail
		}
		return err
	}
	return nil
}

// Update modifies a student's profile.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET name = $1, roll_no = $2, email_id = $3, phone_number = $4, section = $5, year = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $7`,
		s.Name, s.RollNo, s.EmailID, s.PhoneNumber, s.Section, s.Year, s.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateStudentEmail
		}
		return err
	}
	return nil
}

// Delete removes a student by ID.
func (r *StudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}
