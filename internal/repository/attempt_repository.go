package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examportal/backend/internal/model"
)

// ErrAttemptCompleted is returned when a write targets an attempt that has
// already been submitted. Completed attempts are immutable.
var ErrAttemptCompleted = errors.New("attempt already completed")

// AttemptRepository handles attempt data access. Saves replace the answer
// and warning state wholesale; nothing is merged server-side.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, exam_id, student_id, status, answers, warnings, current_index,
	 started_at, submitted_at, score, created_at, updated_at`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Status, &a.Answers, &a.Warnings,
		&a.CurrentIndex, &a.StartedAt, &a.SubmittedAt, &a.Score, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get retrieves a student's attempt for an exam, or pgx.ErrNoRows.
func (r *AttemptRepository) Get(ctx context.Context, examID, studentID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID))
}

// GetByID retrieves an attempt by its own ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// ListByExam retrieves all attempts for an exam, most recent first.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE exam_id = $1 ORDER BY started_at DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Upsert applies one full-snapshot save for the (exam, student) pair inside
// a transaction:
//
//   - No row yet: the row is created and started_at is stamped now. This is
//     the one and only place started_at is ever written.
//   - Existing pending row: answers, warnings, current index and status are
//     replaced. started_at is left untouched.
//   - Existing completed row: ErrAttemptCompleted, regardless of the
//     incoming status. A stale session cannot reopen or mutate a submitted
//     attempt.
//
// A completing save additionally stamps submitted_at. The returned count is
// the number of warnings the row held before this save; callers use it to
// pick out the newly appended events.
func (r *AttemptRepository) Upsert(ctx context.Context, examID uuid.UUID, req model.AttemptUpsertRequest) (*model.AttemptUpsertResult, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	var (
		id           uuid.UUID
		status       model.AttemptStatus
		startedAt    time.Time
		prevWarnings int
	)
	err = tx.QueryRow(ctx,
		`SELECT id, status, started_at, jsonb_array_length(warnings) FROM attempts
		 WHERE exam_id = $1 AND student_id = $2 FOR UPDATE`,
		examID, req.StudentID,
	).Scan(&id, &status, &startedAt, &prevWarnings)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx,
			`INSERT INTO attempts (exam_id, student_id, status, answers, warnings, current_index, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, $6,
			         CASE WHEN $3 = 'completed' THEN CURRENT_TIMESTAMP ELSE NULL END)
			 RETURNING started_at`,
			examID, req.StudentID, req.Status, req.Answers, req.Warnings, req.CurrentIndex,
		).Scan(&startedAt)
		if err != nil {
			return nil, 0, err
		}
	case err != nil:
		return nil, 0, err
	case status == model.AttemptStatusCompleted:
		return nil, 0, ErrAttemptCompleted
	default:
		_, err = tx.Exec(ctx,
			`UPDATE attempts
			 SET status = $1, answers = $2, warnings = $3, current_index = $4,
			     submitted_at = CASE WHEN $1 = 'completed' THEN CURRENT_TIMESTAMP ELSE submitted_at END,
			     updated_at = CURRENT_TIMESTAMP
			 WHERE id = $5`,
			req.Status, req.Answers, req.Warnings, req.CurrentIndex, id,
		)
		if err != nil {
			return nil, 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return &model.AttemptUpsertResult{
		Status:    req.Status,
		StartedAt: startedAt,
	}, prevWarnings, nil
}

// SetScore records the grading result for an attempt.
func (r *AttemptRepository) SetScore(ctx context.Context, id uuid.UUID, score float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET score = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		score, id,
	)
	return err
}
