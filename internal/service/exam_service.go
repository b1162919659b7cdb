package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

var ErrInvalidQuestion = errors.New("question is missing required fields")

// ExamService handles exam lifecycle. Answer keys never leave this layer
// except through the admin surface.
type ExamService struct {
	examRepo *repository.ExamRepository
	orgRepo  *repository.OrganizationRepository
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, orgRepo *repository.OrganizationRepository, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		orgRepo:  orgRepo,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

func validateQuestions(questions []model.Question) error {
	for i, q := range questions {
		if q.Question == "" {
			return fmt.Errorf("question %d: %w", i, ErrInvalidQuestion)
		}
		switch q.QuestionType {
		case model.QuestionTypeOption, model.QuestionTypeMultiSelect:
			if len(q.Options) < 2 {
				return fmt.Errorf("question %d: choice questions need at least two options: %w", i, ErrInvalidQuestion)
			}
		case model.QuestionTypeText, model.QuestionTypeFormula:
		default:
			return fmt.Errorf("question %d: unknown type %q: %w", i, q.QuestionType, ErrInvalidQuestion)
		}
	}
	return nil
}

// Create makes a new exam under an organization with a fresh exam code.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	if _, err := s.orgRepo.GetByID(ctx, req.OrgID); err != nil {
		return nil, err
	}
	if err := validateQuestions(req.Questions); err != nil {
		return nil, err
	}

	snapshotInterval := req.SnapshotInterval
	if snapshotInterval == 0 {
		snapshotInterval = 30
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCode(examCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		exam := &model.Exam{
			OrgID:             req.OrgID,
			Name:              req.Name,
			ExamCode:          code,
			DurationMinutes:   req.DurationMinutes,
			ExamDate:          req.ExamDate,
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			TotalMarks:        req.TotalMarks,
			SnapshotInterval:  snapshotInterval,
			ProctoringEnabled: req.ProctoringEnabled,
			Questions:         req.Questions,
		}
		err = s.examRepo.Create(ctx, exam)
		if errors.Is(err, repository.ErrDuplicateExamCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("exam_id", exam.ID.String()).Str("org_id", req.OrgID.String()).Msg("Exam created")
		return exam, nil
	}
	return nil, errors.New("could not allocate a unique exam code")
}

// Get retrieves an exam with its full question set, keys included. Admin
// surface only.
func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListByOrg retrieves an organization's exams.
func (s *ExamService) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]model.Exam, error) {
	return s.examRepo.ListByOrg(ctx, orgID)
}

// Update applies a partial update; nil and zero fields keep their current
// values, a non-nil question list replaces the set wholesale.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		exam.Name = req.Name
	}
	if req.DurationMinutes != 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.ExamDate != nil {
		exam.ExamDate = req.ExamDate
	}
	if req.StartTime != nil {
		exam.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = req.EndTime
	}
	if req.TotalMarks != nil {
		exam.TotalMarks = *req.TotalMarks
	}
	if req.SnapshotInterval != nil {
		exam.SnapshotInterval = *req.SnapshotInterval
	}
	if req.ProctoringEnabled != nil {
		exam.ProctoringEnabled = *req.ProctoringEnabled
	}
	if req.Questions != nil {
		if err := validateQuestions(req.Questions); err != nil {
			return nil, err
		}
		exam.Questions = req.Questions
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Delete removes an exam and its attempts.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.examRepo.Delete(ctx, id)
}
