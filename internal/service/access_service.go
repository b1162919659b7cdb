package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

// Access gate errors.
var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrInvalidExamCode    = errors.New("exam code does not match")
	ErrStudentNotEnrolled = errors.New("student is not enrolled for this exam")
)

// AccessService is the exam access gate. It validates exam code + student
// email and returns the key-stripped exam payload together with any
// resumable attempt. A completed attempt closes the gate.
type AccessService struct {
	examRepo    *repository.ExamRepository
	studentRepo *repository.StudentRepository
	attemptRepo *repository.AttemptRepository
	orgRepo     *repository.OrganizationRepository
	log         zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(
	examRepo *repository.ExamRepository,
	studentRepo *repository.StudentRepository,
	attemptRepo *repository.AttemptRepository,
	orgRepo *repository.OrganizationRepository,
	log zerolog.Logger,
) *AccessService {
	return &AccessService{
		examRepo:    examRepo,
		studentRepo: studentRepo,
		attemptRepo: attemptRepo,
		orgRepo:     orgRepo,
		log:         log.With().Str("component", "access_service").Logger(),
	}
}

// Validate checks the access triple and assembles the student's exam view.
// All three failure modes (unknown exam, wrong code, unknown email) are
// deliberately distinct errors so the portal can tell the student which
// field to fix.
func (s *AccessService) Validate(ctx context.Context, req model.AccessRequest) (*model.AccessResponse, error) {
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		return nil, ErrExamNotFound
	}

	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(req.ExamCode))
	if code != exam.ExamCode {
		return nil, ErrInvalidExamCode
	}

	student, err := s.studentRepo.GetByOrgAndEmail(ctx, exam.OrgID, strings.TrimSpace(req.StudentEmail))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotEnrolled
		}
		return nil, err
	}

	resp := &model.AccessResponse{
		Exam: model.AccessExam{
			ID:                exam.ID,
			Name:              exam.Name,
			DurationMinutes:   exam.DurationMinutes,
			TotalMarks:        exam.TotalMarks,
			ProctoringEnabled: exam.ProctoringEnabled,
			QuestionCount:     len(exam.Questions),
		},
		Student: model.AccessStudent{
			ID:      student.ID,
			Name:    student.Name,
			EmailID: student.EmailID,
			RollNo:  student.RollNo,
			Section: student.Section,
			Year:    student.Year,
		},
		Questions: make([]model.QuestionForStudent, 0, len(exam.Questions)),
	}
	if org, err := s.orgRepo.GetByID(ctx, exam.OrgID); err == nil {
		resp.Exam.OrganizationName = org.Name
	}
	for _, q := range exam.Questions {
		resp.Questions = append(resp.Questions, q.ForStudent())
	}

	attempt, err := s.attemptRepo.Get(ctx, exam.ID, student.ID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return resp, nil
	}

	// A completed attempt is terminal: the gate refuses entry instead of
	// handing out a resumable snapshot.
	if attempt.Status == model.AttemptStatusCompleted {
		return nil, ErrAttemptCompleted
	}

	remaining := computeRemaining(attempt.StartedAt, exam.DurationMinutes*60, time.Now())
	resp.Attempt = &model.AttemptSnapshot{
		Status:           attempt.Status,
		StartedAt:        &attempt.StartedAt,
		Answers:          attempt.Answers,
		Warnings:         attempt.Warnings,
		CurrentIndex:     attempt.CurrentIndex,
		RemainingSeconds: &remaining,
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("student_id", student.ID.String()).
		Str("status", string(attempt.Status)).
		Msg("Access granted with prior attempt")
	return resp, nil
}

// computeRemaining derives the countdown from the persisted start time,
// clamped at zero. The server, not the portal, owns elapsed time.
func computeRemaining(startedAt time.Time, totalSeconds int, now time.Time) int {
	elapsed := int(now.Sub(startedAt) / time.Second)
	remaining := totalSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
