package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examportal/backend/internal/config"
	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

// ErrAttemptCompleted re-exports the repository sentinel for handlers.
var ErrAttemptCompleted = repository.ErrAttemptCompleted

// AttemptService applies full-snapshot saves and fans violation and
// scoring work out to the Redis queues.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	examRepo    *repository.ExamRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(attemptRepo *repository.AttemptRepository, examRepo *repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// Upsert applies one save. Answer and warning state replaces whatever was
// stored before; newly appended warnings are queued for the audit worker
// and published for live monitors, and a completing save queues a scoring
// task.
func (s *AttemptService) Upsert(ctx context.Context, examID uuid.UUID, req model.AttemptUpsertRequest) (*model.AttemptUpsertResult, error) {
	if _, err := s.examRepo.GetByID(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	// jsonb columns must hold arrays, never JSON null.
	if req.Answers == nil {
		req.Answers = []model.AnswerEntry{}
	}
	if req.Warnings == nil {
		req.Warnings = []model.Warning{}
	}

	result, prevWarnings, err := s.attemptRepo.Upsert(ctx, examID, req)
	if err != nil {
		return nil, err
	}

	if len(req.Warnings) > prevWarnings {
		s.dispatchViolations(ctx, examID, req.StudentID, req.Warnings[prevWarnings:])
	}

	if req.Status == model.AttemptStatusCompleted {
		s.enqueueScoring(ctx, examID, req.StudentID)
	}

	// Cache the authoritative start time so monitors can compute
	// countdowns without hitting Postgres.
	startKey := config.CacheKey.AttemptStartKey(examID.String(), req.StudentID.String())
	if err := s.rdb.Set(ctx, startKey, result.StartedAt.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache attempt start time")
	}

	return result, nil
}

// Get retrieves a student's attempt for an exam.
func (s *AttemptService) Get(ctx context.Context, examID, studentID uuid.UUID) (*model.Attempt, error) {
	return s.attemptRepo.Get(ctx, examID, studentID)
}

// ListByExam retrieves all attempts for an exam. Admin surface only.
func (s *AttemptService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	return s.attemptRepo.ListByExam(ctx, examID)
}

// dispatchViolations pushes each new warning onto the audit queue and the
// exam's live channel. Queue failures are logged and dropped; the warning
// is already persisted inside the attempt row.
func (s *AttemptService) dispatchViolations(ctx context.Context, examID, studentID uuid.UUID, warnings []model.Warning) {
	pipe := s.rdb.Pipeline()
	channel := config.CacheKey.ViolationChannel(examID.String())

	for _, w := range warnings {
		event := model.ViolationEvent{
			ExamID:     examID,
			StudentID:  studentID,
			Reason:     w.Reason,
			Message:    w.Message,
			OccurredAt: w.At,
		}
		data, err := json.Marshal(event)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to encode violation event")
			continue
		}
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
		pipe.Publish(ctx, channel, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to dispatch violation events")
	}
}

func (s *AttemptService) enqueueScoring(ctx context.Context, examID, studentID uuid.UUID) {
	attempt, err := s.attemptRepo.Get(ctx, examID, studentID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load attempt for scoring")
		return
	}
	task := model.ScoreTask{AttemptID: attempt.ID, ExamID: examID}
	data, err := json.Marshal(task)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode scoring task")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.ScoreAttemptsQueue, data).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to enqueue scoring task")
	}
}
