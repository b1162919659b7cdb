package worker

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examportal/backend/internal/config"
	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

const (
	ScoreBatchSize    = 20
	ScorePollTimeout  = 1 * time.Second
	ScoreBatchTimeout = 2 * time.Second
)

// ScoringWorker grades completed attempts from the scoring queue. Only
// auto-gradable question types count toward the score; text and formula
// answers are left for manual review.
type ScoringWorker struct {
	rdb         *redis.Client
	examRepo    *repository.ExamRepository
	attemptRepo *repository.AttemptRepository
	log         zerolog.Logger
}

// NewScoringWorker creates a new ScoringWorker.
func NewScoringWorker(rdb *redis.Client, examRepo *repository.ExamRepository, attemptRepo *repository.AttemptRepository, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		rdb:         rdb,
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		log:         log.With().Str("component", "scoring_worker").Logger(),
	}
}

// Start runs the grading loop until ctx is cancelled.
func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	batch := make([]*model.ScoreTask, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {
			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flush(shutdownCtx, batch)
			cancel()
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.ScoreAttemptsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var task model.ScoreTask
			if err := json.Unmarshal([]byte(item[1]), &task); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			batch = append(batch, &task)
		}
	}
}

func (w *ScoringWorker) flush(ctx context.Context, batch []*model.ScoreTask) {
	for _, task := range batch {
		if err := w.gradeOne(ctx, task); err != nil {
			w.log.Error().Err(err).Str("attempt_id", task.AttemptID.String()).Msg("Grading failed, requeueing")
			raw, _ := json.Marshal(task)
			w.rdb.RPush(ctx, config.WorkerKey.ScoreAttemptsQueue, raw)
		}
	}
}

func (w *ScoringWorker) gradeOne(ctx context.Context, task *model.ScoreTask) error {
	exam, err := w.examRepo.GetByID(ctx, task.ExamID)
	if err != nil {
		return err
	}
	attempt, err := w.attemptRepo.GetByID(ctx, task.AttemptID)
	if err != nil {
		return err
	}

	score := Grade(exam.Questions, attempt.Answers)
	if err := w.attemptRepo.SetScore(ctx, attempt.ID, score); err != nil {
		return err
	}

	// The cached start time is dead weight once the attempt is graded.
	startKey := config.CacheKey.AttemptStartKey(task.ExamID.String(), attempt.StudentID.String())
	w.rdb.Del(ctx, startKey)

	w.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Float64("score", score).
		Msg("Attempt graded")
	return nil
}

// Grade computes the auto-graded score for an attempt: one point per
// correct single-choice answer, one point per multi-select whose chosen
// set exactly matches the key. Text and formula questions score zero here.
func Grade(questions []model.Question, answers []model.AnswerEntry) float64 {
	answerByIndex := model.AnswerMap(answers)

	var score float64
	for i, q := range questions {
		raw, answered := answerByIndex[i]
		if !answered || q.Answer == "" {
			continue
		}

		switch q.QuestionType {
		case model.QuestionTypeOption:
			given := model.ParseAnswer(raw)
			if given.Kind == model.AnswerSingle && given.Value == q.Answer {
				score++
			}
		case model.QuestionTypeMultiSelect:
			if sameSet(model.ParseAnswer(raw), model.ParseAnswer(q.Answer)) {
				score++
			}
		}
	}
	return score
}

// sameSet reports set equality of two answers' option letters, order and
// duplicates ignored.
func sameSet(a, b model.Answer) bool {
	av := normalizeSet(a)
	bv := normalizeSet(b)
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if av[i] != bv[i] {
			return false
		}
	}
	return true
}

func normalizeSet(a model.Answer) []string {
	var values []string
	if a.Kind == model.AnswerMulti {
		values = a.Values
	} else if a.Value != "" {
		values = []string{a.Value}
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
