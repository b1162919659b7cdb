package proctor

import (
	"context"
	"errors"

	"github.com/examportal/backend/internal/model"
)

// RequestSubmit opens the manual submission dialog. Nothing is sent until
// the student confirms.
func (s *Session) RequestSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam || s.submitting || s.confirm != nil {
		return
	}
	s.confirm = &Confirmation{
		Mode:    ConfirmManualSubmit,
		Title:   "Submit Exam",
		Message: "Submit the exam now? You cannot change answers after submission.",
	}
}

// openFocusLossConfirmationLocked opens the focus-loss submission dialog.
// At most one focus-loss dialog exists at a time; repeated blur and
// visibility events while it is open change nothing. A manual-submit dialog
// in flight is replaced, since the focus loss is the more urgent event.
// Callers must hold s.mu.
func (s *Session) openFocusLossConfirmationLocked(reason model.ViolationReason, message string) {
	if s.submitting || s.focusLossOpen {
		return
	}
	s.focusLossOpen = true
	s.confirm = &Confirmation{
		Mode:    ConfirmFocusLossSubmit,
		Title:   "App Switch Detected",
		Message: message,
		Reason:  reason,
	}
	s.speakWarningLocked(reason, message)
}

// CancelConfirmation dismisses the open dialog and resumes the exam.
// Closing the focus-loss dialog re-arms it for the next focus loss.
func (s *Session) CancelConfirmation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirm == nil {
		return
	}
	s.confirm = nil
	s.focusLossOpen = false
}

// ConfirmSubmission submits the exam through whichever dialog is open. The
// focus-loss path appends one extra warning marking that the student chose
// to submit after the focus loss.
func (s *Session) ConfirmSubmission(ctx context.Context) error {
	s.mu.Lock()
	if s.confirm == nil || s.phase != PhaseExam {
		s.mu.Unlock()
		return nil
	}
	confirm := *s.confirm
	s.confirm = nil
	s.focusLossOpen = false
	s.mu.Unlock()

	if confirm.Mode == ConfirmFocusLossSubmit {
		extra := &model.Warning{
			Reason:  confirm.Reason,
			Message: "Student confirmed submission after focus loss.",
			At:      s.clock.Now(),
		}
		return s.submit(ctx, extra, "Exam submitted after app switch confirmation.")
	}
	return s.submit(ctx, nil, "Exam submitted successfully.")
}

// submit posts the completed snapshot exactly once. The submitting flag is
// claimed synchronously under the lock, so a timeout tick and a manual
// confirmation racing each other produce a single completed write. Failure
// releases the flag and leaves the exam phase intact so the student can
// retry; the stale-session conflict is surfaced with its own message.
func (s *Session) submit(ctx context.Context, extraWarning *model.Warning, successMsg string) error {
	s.mu.Lock()
	if s.phase != PhaseExam || s.submitting {
		s.mu.Unlock()
		return nil
	}
	s.submitting = true
	s.confirm = nil
	s.focusLossOpen = false

	warnings := s.snapshotWarningsLocked()
	if extraWarning != nil {
		warnings = append(warnings, *extraWarning)
		s.warnings = append(s.warnings, *extraWarning)
	}
	req := model.AttemptUpsertRequest{
		StudentID:    s.access.Student.ID,
		Answers:      s.snapshotAnswersLocked(),
		Warnings:     warnings,
		Status:       model.AttemptStatusCompleted,
		CurrentIndex: s.currentIndex,
	}
	examID := s.examID
	s.mu.Unlock()

	_, err := s.store.UpsertAttempt(ctx, examID, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.submitting = false
		var portalErr *PortalError
		switch {
		case errors.Is(err, ErrConflict):
			s.submitMsg = "This attempt was already submitted elsewhere."
		case errors.As(err, &portalErr) && portalErr.Message != "":
			s.submitMsg = portalErr.Message
		default:
			s.submitMsg = "Submission failed. Please try again."
		}
		s.log.Error().Err(err).Msg("Submission failed")
		return err
	}

	s.gen++
	s.stopTimersLocked()
	s.phase = PhaseSubmitted
	s.submitting = false
	s.submitMsg = successMsg
	s.recovery = nil
	s.recovering = false

	s.speaker.Cancel()
	s.platform.UnlockKeyboard()
	if s.platform.IsFullscreen() {
		s.platform.ExitFullscreen()
	}

	s.log.Info().Str("exam_id", examID).Msg("Attempt submitted")
	return nil
}
