package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states. The transition is
// monotonic: once completed an attempt never returns to pending.
type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"
	AttemptStatusCompleted AttemptStatus = "completed"
)

// ViolationReason is the closed tag set for recorded integrity events.
type ViolationReason string

const (
	ViolationEscapeClick    ViolationReason = "escape-click"
	ViolationEscapeHold     ViolationReason = "escape-hold"
	ViolationTabSwitch      ViolationReason = "tab-switch"
	ViolationWindowBlur     ViolationReason = "window-blur"
	ViolationFullscreenExit ViolationReason = "fullscreen-exit"
	ViolationBackNavigation ViolationReason = "back-navigation"
	// Composite tags attribute a fullscreen exit to the Escape gesture
	// that caused it.
	ViolationEscapeClickFullscreenExit ViolationReason = "escape-click-fullscreen-exit"
	ViolationEscapeHoldFullscreenExit  ViolationReason = "escape-hold-fullscreen-exit"
)

// Warning is one recorded integrity event. Warnings are write-once: they are
// appended during a session and never edited or deleted afterwards.
type Warning struct {
	Reason  ViolationReason `json:"reason"`
	Message string          `json:"message"`
	At      time.Time       `json:"at"`
}

// AnswerEntry is the wire form of one answered question: a dense 0-based
// question index and a string-encoded answer. Multi-select answers carry a
// JSON array of option letters inside the string slot.
type AnswerEntry struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

// Attempt is the durable unit of student progress. Exactly one attempt may
// exist per (exam, student) pair.
type Attempt struct {
	ID           uuid.UUID     `json:"id"`
	ExamID       uuid.UUID     `json:"exam_id"`
	StudentID    uuid.UUID     `json:"student_id"`
	Status       AttemptStatus `json:"status"`
	Answers      []AnswerEntry `json:"answers"`
	Warnings     []Warning     `json:"warnings"`
	CurrentIndex int           `json:"current_index"`
	StartedAt    time.Time     `json:"started_at"`
	SubmittedAt  *time.Time    `json:"submitted_at,omitempty"`
	Score        *float64      `json:"score,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AttemptSnapshot is the attempt view returned by the access gate. For a
// pending attempt it carries everything needed to resume: saved answers,
// warnings, position and server-derived remaining time. The canonical source
// of truth for remaining time stays (duration − elapsed since startedAt).
type AttemptSnapshot struct {
	Status           AttemptStatus `json:"status"`
	StartedAt        *time.Time    `json:"startedAt"`
	Answers          []AnswerEntry `json:"answers"`
	Warnings         []Warning     `json:"warnings"`
	CurrentIndex     int           `json:"currentIndex"`
	RemainingSeconds *int          `json:"remainingSeconds"`
}

// AttemptUpsertRequest is the full-snapshot save payload. Every save carries
// the complete answer and warning state; the store replaces, never merges.
type AttemptUpsertRequest struct {
	StudentID    uuid.UUID     `json:"studentId" binding:"required"`
	Answers      []AnswerEntry `json:"answers"`
	Warnings     []Warning     `json:"warnings"`
	Status       AttemptStatus `json:"status" binding:"required,oneof=pending completed"`
	CurrentIndex int           `json:"currentIndex" binding:"min=0"`
}

// AttemptUpsertResult is returned by the attempt store after an upsert.
type AttemptUpsertResult struct {
	Status    AttemptStatus `json:"status"`
	StartedAt time.Time     `json:"startedAt"`
}

// ─── Answer encoding ─────────────────────────────────────────────────

// AnswerKind distinguishes single-valued from multi-select answers.
type AnswerKind string

const (
	AnswerSingle AnswerKind = "single"
	AnswerMulti  AnswerKind = "multi"
)

// Answer is the explicit tagged answer type. The wire format stays the
// historical one: a plain string for single answers, a JSON array of option
// letters packed into the same string slot for multi-select. Stored attempts
// stay readable, and in-process code never branches on raw string sniffing.
type Answer struct {
	Kind   AnswerKind
	Value  string
	Values []string
}

// ParseAnswer decodes a wire answer string into its tagged form. A string
// that parses as a JSON array of strings is a multi-select answer; anything
// else is a single answer taken verbatim.
func ParseAnswer(raw string) Answer {
	if len(raw) > 1 && raw[0] == '[' {
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err == nil {
			return Answer{Kind: AnswerMulti, Values: values}
		}
	}
	return Answer{Kind: AnswerSingle, Value: raw}
}

// Wire encodes the answer back to its wire string. ParseAnswer and Wire are
// symmetric: Wire(ParseAnswer(s)) == s for any valid stored answer.
func (a Answer) Wire() string {
	if a.Kind == AnswerMulti {
		raw, err := json.Marshal(a.Values)
		if err != nil {
			return "[]"
		}
		return string(raw)
	}
	return a.Value
}

// Contains reports whether a multi-select answer includes the given option
// letter. Single answers match only on equality.
func (a Answer) Contains(letter string) bool {
	if a.Kind == AnswerSingle {
		return a.Value == letter
	}
	for _, v := range a.Values {
		if v == letter {
			return true
		}
	}
	return false
}

// AnswerMap converts wire entries to an index-keyed map.
func AnswerMap(entries []AnswerEntry) map[int]string {
	m := make(map[int]string, len(entries))
	for _, e := range entries {
		m[e.QuestionIndex] = e.Answer
	}
	return m
}
