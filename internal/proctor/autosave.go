package proctor

import (
	"context"

	"github.com/examportal/backend/internal/model"
)

// scheduleAutosaveLocked (re)arms the debounced snapshot save. Every answer
// edit, index change and recorded violation lands here; only the timer armed
// by the most recent mutation fires, and it posts the state read at fire
// time, not at schedule time. Callers must hold s.mu.
func (s *Session) scheduleAutosaveLocked() {
	if s.phase != PhaseExam || s.submitting {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	gen := s.gen
	s.saveTimer = s.clock.AfterFunc(s.cfg.AutosaveDebounce, func() {
		s.autosave(gen)
	})
}

// autosave posts one pending snapshot. A failed save is logged and dropped:
// the next mutation re-arms the debounce, and submission re-posts the full
// state anyway, so nothing is lost permanently.
func (s *Session) autosave(gen int) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseExam || s.submitting {
		s.mu.Unlock()
		return
	}
	req := model.AttemptUpsertRequest{
		StudentID:    s.access.Student.ID,
		Answers:      s.snapshotAnswersLocked(),
		Warnings:     s.snapshotWarningsLocked(),
		Status:       model.AttemptStatusPending,
		CurrentIndex: s.currentIndex,
	}
	examID := s.examID
	s.mu.Unlock()

	if _, err := s.store.UpsertAttempt(context.Background(), examID, req); err != nil {
		s.log.Warn().Err(err).Msg("Autosave failed")
	}
}
