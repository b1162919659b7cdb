// Package proctor implements the client-resident attempt controller for a
// proctored exam session: lockdown enforcement, violation recording,
// debounced autosave, countdown timing and at-most-once submission.
//
// The engine is written against narrow capability interfaces so the whole
// state machine runs unmodified against a real browser bridge or against
// fakes in tests.
package proctor

import (
	"context"
	"errors"
	"time"

	"github.com/examportal/backend/internal/model"
)

// Platform is the lockdown capability surface: fullscreen, keyboard lock,
// visibility/focus queries and history pinning. All calls are non-blocking
// from the session's point of view except RequestFullscreen, which may wait
// on a user-agent permission decision.
type Platform interface {
	RequestFullscreen(ctx context.Context) error
	ExitFullscreen()
	IsFullscreen() bool

	// LockKeyboard is best-effort: not every platform supports it, and a
	// failure never aborts the session.
	LockKeyboard(ctx context.Context) error
	UnlockKeyboard()

	IsVisible() bool
	HasFocus() bool

	// PushHistoryState re-pins the current location so back-navigation
	// lands on the exam again.
	PushHistoryState()
}

// Speaker synthesizes the audible warning cues. Cancel interrupts any
// utterance still in flight.
type Speaker interface {
	Speak(text string)
	Cancel()
}

// Store is the Attempt Store collaborator consumed by the session. The
// production implementation is an HTTP client against the portal API.
type Store interface {
	ValidateAccess(ctx context.Context, req model.AccessRequest) (*model.AccessResponse, error)
	UpsertAttempt(ctx context.Context, examID string, req model.AttemptUpsertRequest) (*model.AttemptUpsertResult, error)
}

// Timer is a stoppable one-shot timer handle.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall-clock reads and timer scheduling so every cooldown,
// debounce and backoff in the engine is deterministic under test.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewClock returns the wall-clock implementation.
func NewClock() Clock { return realClock{} }

// Config carries every tuning constant of the controller.
type Config struct {
	// EscapeLongPress separates an Escape click from a hold.
	EscapeLongPress time.Duration
	// ExitAttribution is the window after an Escape release during which a
	// fullscreen exit is attributed to that Escape gesture.
	ExitAttribution time.Duration
	// RecoveryBackoff is the retry interval for fullscreen re-acquisition.
	RecoveryBackoff time.Duration
	// AutosaveDebounce coalesces state changes into one save.
	AutosaveDebounce time.Duration
	// ViolationCooldown suppresses counting of violation storms.
	ViolationCooldown time.Duration
	// SpeechCooldown suppresses repeating the same spoken phrase.
	SpeechCooldown time.Duration
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{
		EscapeLongPress:   700 * time.Millisecond,
		ExitAttribution:   600 * time.Millisecond,
		RecoveryBackoff:   250 * time.Millisecond,
		AutosaveDebounce:  600 * time.Millisecond,
		ViolationCooldown: 1500 * time.Millisecond,
		SpeechCooldown:    2500 * time.Millisecond,
	}
}

// ErrConflict reports that the server-side attempt is already completed and
// refused the write. Terminal for this session.
var ErrConflict = errors.New("attempt already completed")

// ErrSessionActive reports an access attempt on a session that has already
// entered the exam. The running session must be closed first.
var ErrSessionActive = errors.New("session already in progress")

// PortalError carries a rejection from the portal API. Its message is shown
// to the student verbatim when a submission is refused.
type PortalError struct {
	Code    string
	Message string
}

func (e *PortalError) Error() string {
	return e.Message
}

// StartError reports that the secured session could not start because the
// platform denied fullscreen. The session must not start unsecured.
type StartError struct {
	Cause error
}

func (e *StartError) Error() string {
	return "Please allow fullscreen to start the exam."
}

func (e *StartError) Unwrap() error { return e.Cause }
