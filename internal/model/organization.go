package model

import (
	"time"

	"github.com/google/uuid"
)

// Organization groups exams and the student roster that may sit them.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateOrganizationRequest is the payload for creating a new organization.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,min=2,max=120"`
}

// UpdateOrganizationRequest is the payload for renaming an organization.
type UpdateOrganizationRequest struct {
	Name string `json:"name" binding:"required,min=2,max=120"`
}
