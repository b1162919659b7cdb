package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeText        QuestionType = "text"
	QuestionTypeOption      QuestionType = "option"
	QuestionTypeMultiSelect QuestionType = "multi_select"
	QuestionTypeFormula     QuestionType = "formula"
)

// Question is one exam item, including the answer key. The key is stored
// server-side only and must be stripped before a question reaches a student.
type Question struct {
	Question     string       `json:"question"`
	QuestionType QuestionType `json:"questionType"`
	Answer       string       `json:"answer,omitempty"`
	Options      []string     `json:"options,omitempty"`
	ImageSrc     string       `json:"imageSrc,omitempty"`
}

// QuestionForStudent is a question with the answer key stripped.
type QuestionForStudent struct {
	Question     string       `json:"question"`
	QuestionType QuestionType `json:"questionType"`
	Options      []string     `json:"options"`
	ImageSrc     string       `json:"imageSrc,omitempty"`
}

// ForStudent returns the key-stripped view of a question.
func (q Question) ForStudent() QuestionForStudent {
	opts := q.Options
	if opts == nil {
		opts = []string{}
	}
	return QuestionForStudent{
		Question:     q.Question,
		QuestionType: q.QuestionType,
		Options:      opts,
		ImageSrc:     q.ImageSrc,
	}
}

// Exam represents an exam entity, questions embedded.
type Exam struct {
	ID                uuid.UUID  `json:"id"`
	OrgID             uuid.UUID  `json:"org_id"`
	Name              string     `json:"name"`
	ExamCode          string     `json:"exam_code,omitempty"`
	DurationMinutes   int        `json:"duration"`
	ExamDate          *string    `json:"exam_date,omitempty"`
	StartTime         *string    `json:"start_time,omitempty"`
	EndTime           *string    `json:"end_time,omitempty"`
	TotalMarks        int        `json:"total_marks"`
	SnapshotInterval  int        `json:"snapshot_interval"`
	ProctoringEnabled bool       `json:"proctoring_enabled"`
	Questions         []Question `json:"questions,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	OrgID             uuid.UUID  `json:"org_id" binding:"required"`
	Name              string     `json:"name" binding:"required,min=3,max=255"`
	DurationMinutes   int        `json:"duration" binding:"required,min=1,max=480"`
	ExamDate          *string    `json:"exam_date" binding:"omitempty"`
	StartTime         *string    `json:"start_time" binding:"omitempty"`
	EndTime           *string    `json:"end_time" binding:"omitempty"`
	TotalMarks        int        `json:"total_marks" binding:"omitempty,min=0"`
	SnapshotInterval  int        `json:"snapshot_interval" binding:"omitempty,min=0"`
	ProctoringEnabled bool       `json:"proctoring_enabled"`
	Questions         []Question `json:"questions" binding:"omitempty,dive"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Name              string     `json:"name" binding:"omitempty,min=3,max=255"`
	DurationMinutes   int        `json:"duration" binding:"omitempty,min=1,max=480"`
	ExamDate          *string    `json:"exam_date" binding:"omitempty"`
	StartTime         *string    `json:"start_time" binding:"omitempty"`
	EndTime           *string    `json:"end_time" binding:"omitempty"`
	TotalMarks        *int       `json:"total_marks" binding:"omitempty,min=0"`
	SnapshotInterval  *int       `json:"snapshot_interval" binding:"omitempty,min=0"`
	ProctoringEnabled *bool      `json:"proctoring_enabled" binding:"omitempty"`
	Questions         []Question `json:"questions" binding:"omitempty,dive"`
}

// AccessRequest is the student-facing exam access payload. The exam code is
// normalized to uppercase and the email matched case-insensitively.
type AccessRequest struct {
	ExamID       string `json:"examId" binding:"required"`
	ExamCode     string `json:"examCode" binding:"required,min=4,max=20"`
	StudentEmail string `json:"studentEmail" binding:"required,email"`
}

// AccessExam is the exam metadata returned to a validated student.
type AccessExam struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	DurationMinutes   int       `json:"duration"`
	TotalMarks        int       `json:"totalMarks"`
	ProctoringEnabled bool      `json:"proctoringEnabled"`
	QuestionCount     int       `json:"questionCount"`
	OrganizationName  string    `json:"organizationName,omitempty"`
}

// AccessStudent is the student identity returned by the access gate.
type AccessStudent struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	EmailID string    `json:"emailId"`
	RollNo  string    `json:"rollNo,omitempty"`
	Section string    `json:"section,omitempty"`
	Year    string    `json:"year,omitempty"`
}

// AccessResponse is the full access-gate response: exam metadata, the
// key-stripped question list and, if present, the prior attempt snapshot.
type AccessResponse struct {
	Exam      AccessExam           `json:"exam"`
	Student   AccessStudent        `json:"student"`
	Questions []QuestionForStudent `json:"questions"`
	Attempt   *AttemptSnapshot     `json:"attempt"`
}
