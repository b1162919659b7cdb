package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examportal/backend/internal/model"
)

var ErrDuplicateExamCode = errors.New("exam code already exists")

// ExamRepository handles exam data access. Questions live in a jsonb
// column and travel with the exam row.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, org_id, name, exam_code, duration_minutes, exam_date, start_time, end_time,
	 total_marks, snapshot_interval, proctoring_enabled, questions, created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.OrgID, &e.Name, &e.ExamCode, &e.DurationMinutes,
		&e.ExamDate, &e.StartTime, &e.EndTime, &e.TotalMarks, &e.SnapshotInterval,
		&e.ProctoringEnabled, &e.Questions, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by ID, including its questions.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// GetByCode retrieves an exam by its exam code.
func (r *ExamRepository) GetByCode(ctx context.Context, examCode string) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE exam_code = $1`, examCode))
}

// ListByOrg retrieves all exams for an organization, newest first.
func (r *ExamRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exams (org_id, name, exam_code, duration_minutes, exam_date, start_time, end_time,
		                    total_marks, snapshot_interval, proctoring_enabled, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		e.OrgID, e.Name, e.ExamCode, e.DurationMinutes, e.ExamDate, e.StartTime, e.EndTime,
		e.TotalMarks, e.SnapshotInterval, e.ProctoringEnabled, e.Questions,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateExamCode
		}
		return err
	}
	return nil
}

// Update modifies an exam, replacing its questions wholesale.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET name = $1, duration_minutes = $2, exam_date = $3, start_time = $4, end_time = $5,
		        total_marks = $6, snapshot_interval = $7, proctoring_enabled = $8, questions = $9,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = $10`,
		e.Name, e.DurationMinutes, e.ExamDate, e.StartTime, e.EndTime,
		e.TotalMarks, e.SnapshotInterval, e.ProctoringEnabled, e.Questions, e.ID,
	)
	return err
}

// Delete removes an exam by ID.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
