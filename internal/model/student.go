package model

import (
	"time"

	"github.com/google/uuid"
)

// Student represents one roster entry. Students never authenticate with a
// password; exam access is gated by exam code + registered email instead.
type Student struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	Name        string    `json:"name"`
	RollNo      string    `json:"roll_no"`
	EmailID     string    `json:"email_id"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Section     string    `json:"section,omitempty"`
	Year        string    `json:"year,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateStudentRequest is the payload for registering a single student.
type CreateStudentRequest struct {
	OrgID       uuid.UUID `json:"org_id" binding:"required"`
	Name        string    `json:"name" binding:"required,min=2,max=120"`
	RollNo      string    `json:"roll_no" binding:"required,min=1,max=40"`
	EmailID     string    `json:"email_id" binding:"required,email"`
	PhoneNumber string    `json:"phone_number" binding:"omitempty,max=20"`
	Section     string    `json:"section" binding:"omitempty,max=20"`
	Year        string    `json:"year" binding:"omitempty,max=10"`
}

// UpdateStudentRequest is the payload for updating a roster entry.
type UpdateStudentRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=120"`
	RollNo      string `json:"roll_no" binding:"required,min=1,max=40"`
	EmailID     string `json:"email_id" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
	Section     string `json:"section" binding:"omitempty,max=20"`
	Year        string `json:"year" binding:"omitempty,max=10"`
}

// ImportReport summarizes one CSV roster import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
