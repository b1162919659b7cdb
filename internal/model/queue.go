package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationEvent is the queue and pub/sub payload for one proctoring
// violation on its way to the audit table and the live monitor.
type ViolationEvent struct {
	ExamID     uuid.UUID       `json:"exam_id"`
	StudentID  uuid.UUID       `json:"student_id"`
	Reason     ViolationReason `json:"reason"`
	Message    string          `json:"message"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ScoreTask is the queue payload asking the scoring worker to grade one
// completed attempt.
type ScoreTask struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	ExamID    uuid.UUID `json:"exam_id"`
}
