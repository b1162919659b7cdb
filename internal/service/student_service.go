package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examportal/backend/internal/model"
	"github.com/examportal/backend/internal/repository"
)

var ErrMalformedCSV = errors.New("malformed CSV file")

// StudentService handles roster management, including bulk CSV import.
type StudentService struct {
	studentRepo *repository.StudentRepository
	orgRepo     *repository.OrganizationRepository
	log         zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, orgRepo *repository.OrganizationRepository, log zerolog.Logger) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		orgRepo:     orgRepo,
		log:         log.With().Str("component", "student_service").Logger(),
	}
}

// Create registers a single student.
func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	if _, err := s.orgRepo.GetByID(ctx, req.OrgID); err != nil {
		return nil, err
	}
	student := &model.Student{
		OrgID:       req.OrgID,
		Name:        req.Name,
		RollNo:      req.RollNo,
		EmailID:     strings.TrimSpace(req.EmailID),
		PhoneNumber: req.PhoneNumber,
		Section:     req.Section,
		Year:        req.Year,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Get retrieves a student by ID.
func (s *StudentService) Get(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// ListByOrg retrieves an organization's roster page.
func (s *StudentService) ListByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]model.Student, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.studentRepo.ListByOrg(ctx, orgID, limit, offset)
}

// Update modifies a roster entry.
func (s *StudentService) Update(ctx context.Context, id uuid.UUID, req model.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	student.Name = req.Name
	student.RollNo = req.RollNo
	student.EmailID = strings.TrimSpace(req.EmailID)
	student.PhoneNumber = req.PhoneNumber
	student.Section = req.Section
	student.Year = req.Year
	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.studentRepo.Delete(ctx, id)
}

// csvColumns maps recognized header names to field positions. Headers are
// matched case-insensitively with surrounding whitespace ignored.
var csvColumns = map[string]int{
	"name":         0,
	"roll_no":      1,
	"email_id":     2,
	"phone_number": 3,
	"section":      4,
	"year":         5,
}

// ImportCSV bulk-loads a roster from CSV. The first row must be a header
// containing at least name, roll_no and email_id. Rows that fail to insert
// (typically duplicate emails) are skipped and reported, not fatal.
func (s *StudentService) ImportCSV(ctx context.Context, orgID uuid.UUID, r io.Reader) (*model.ImportReport, error) {
	if _, err := s.orgRepo.GetByID(ctx, orgID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedCSV)
	}

	// Resolve each recognized column to its index in this file.
	index := make(map[string]int, len(csvColumns))
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		if _, known := csvColumns[name]; known {
			index[name] = i
		}
	}
	for _, required := range []string{"name", "roll_no", "email_id"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing required column %q", ErrMalformedCSV, required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	report := &model.ImportReport{}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, line, err)
		}

		student := &model.Student{
			OrgID:       orgID,
			Name:        field(row, "name"),
			RollNo:      field(row, "roll_no"),
			EmailID:     field(row, "email_id"),
			PhoneNumber: field(row, "phone_number"),
			Section:     field(row, "section"),
			Year:        field(row, "year"),
		}
		if student.Name == "" || student.EmailID == "" {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: name and email_id are required", line))
			continue
		}

		if err := s.studentRepo.Create(ctx, student); err != nil {
			report.Skipped++
			if errors.Is(err, repository.ErrDuplicateStudentEmail) {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: duplicate email %s", line, student.EmailID))
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		report.Imported++
	}

	s.log.Info().
		Str("org_id", orgID.String()).
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Msg("Roster import finished")
	return report, nil
}
