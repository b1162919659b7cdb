package proctor

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/examportal/backend/internal/model"
)

// KeyEvent is one keyboard event delivered by the platform bridge.
type KeyEvent struct {
	Key    string
	Repeat bool
	Ctrl   bool
	Meta   bool
	Alt    bool
}

var functionKeyRe = regexp.MustCompile(`^f\d{1,2}$`)

// HandleKeyDown feeds a key-down into the lockdown engine. It returns true
// when the platform bridge must swallow the event (Escape, function keys and
// modifier shortcuts are all blocked during the exam). A key-down is also a
// user gesture, so it doubles as a fullscreen-recovery trigger.
func (s *Session) HandleKeyDown(e KeyEvent) bool {
	key := strings.ToLower(e.Key)

	s.mu.Lock()
	if s.phase != PhaseExam {
		s.mu.Unlock()
		return false
	}

	if key == "escape" {
		if !s.esc.isDown {
			s.esc.isDown = true
			s.esc.downAt = s.clock.Now()
			s.esc.hadRepeat = false
			s.esc.fullscreenExitHandled = false
		}
		if e.Repeat {
			s.esc.hadRepeat = true
		}
	}
	s.mu.Unlock()

	s.retryRecoveryOnGesture()

	return key == "escape" || functionKeyRe.MatchString(key) || e.Ctrl || e.Meta || e.Alt
}

// HandleKeyUp closes an Escape press and classifies it. A release without a
// repeat held under the long-press threshold is a click; at or over the
// threshold, or with any OS key-repeat observed, it is a hold. A release
// already consumed by fullscreen-exit attribution records nothing here.
func (s *Session) HandleKeyUp(e KeyEvent) {
	if strings.ToLower(e.Key) != "escape" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam || !s.esc.isDown {
		return
	}

	now := s.clock.Now()
	held := now.Sub(s.esc.downAt)
	isLongPress := s.esc.hadRepeat || held >= s.cfg.EscapeLongPress

	s.esc.isDown = false
	s.esc.lastReleasedAt = now
	s.esc.lastDuration = held

	if s.esc.fullscreenExitHandled {
		return
	}

	if isLongPress {
		s.recordViolationLocked(model.ViolationEscapeHold, "User held ESC during the exam.")
		return
	}
	s.recordViolationLocked(model.ViolationEscapeClick, "User clicked ESC.")
}

// HandleVisibilityChange reacts to the document being hidden or revealed.
// Hiding is a tab/app switch: it both enforces fullscreen and opens the
// focus-loss confirmation. Becoming visible again retries any pending
// recovery, since visibility is a precondition for fullscreen requests.
func (s *Session) HandleVisibilityChange() {
	s.mu.Lock()
	if s.phase != PhaseExam {
		s.mu.Unlock()
		return
	}

	if !s.platform.IsVisible() {
		s.enforceFullscreenLocked(model.ViolationTabSwitch,
			"User switched to a new tab/app. Re-entering fullscreen.")
		s.openFocusLossConfirmationLocked(model.ViolationTabSwitch,
			"You switched away from the exam. Submit now, or continue the exam.")
		s.mu.Unlock()
		return
	}

	pending := s.recovery != nil
	s.mu.Unlock()

	if pending {
		s.scheduleRecovery(0)
	}
}

// HandleWindowBlur reacts to the window losing focus while still visible
// (e.g. another application raised over the exam).
func (s *Session) HandleWindowBlur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam {
		return
	}
	if !s.platform.IsVisible() {
		return // visibilitychange already handled it
	}
	if s.platform.HasFocus() {
		return
	}

	s.enforceFullscreenLocked(model.ViolationWindowBlur,
		"Focus left the exam window. Re-entering fullscreen.")
	s.openFocusLossConfirmationLocked(model.ViolationWindowBlur,
		"Exam window lost focus. Submit now, or continue the exam.")
}

// HandleWindowFocus is a gesture-class event: regaining focus often
// satisfies the preconditions a pending fullscreen request was waiting on.
func (s *Session) HandleWindowFocus() {
	s.retryRecoveryOnGesture()
}

// HandlePointerDown is a gesture-class event, same as HandleWindowFocus.
func (s *Session) HandlePointerDown() {
	s.retryRecoveryOnGesture()
}

// HandleBackNavigation neutralizes history-back: the location is re-pinned
// and the event is recorded through the fullscreen enforcement path.
func (s *Session) HandleBackNavigation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam {
		return
	}
	s.platform.PushHistoryState()
	s.enforceFullscreenLocked(model.ViolationBackNavigation,
		"Back navigation blocked. Fullscreen exam is still active.")
}

// HandleFullscreenChange classifies a fullscreen transition. An exit within
// the attribution window of an Escape press is attributed to that exact
// gesture (click vs hold) instead of the generic exit reason, so the native
// Escape-to-exit path produces one composite warning rather than two.
func (s *Session) HandleFullscreenChange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam {
		return
	}

	if s.platform.IsFullscreen() {
		s.clearRecoveryLocked()
		return
	}

	now := s.clock.Now()
	escapeWasRecent := s.esc.isDown || now.Sub(s.esc.lastReleasedAt) < s.cfg.ExitAttribution

	if escapeWasRecent {
		held := s.esc.lastDuration
		if s.esc.isDown {
			held = now.Sub(s.esc.downAt)
		}
		isLongPress := s.esc.hadRepeat || held >= s.cfg.EscapeLongPress
		s.esc.fullscreenExitHandled = true

		if isLongPress {
			s.enforceFullscreenLocked(model.ViolationEscapeHoldFullscreenExit,
				"User held ESC and exited fullscreen. Re-entering fullscreen.")
			return
		}
		s.enforceFullscreenLocked(model.ViolationEscapeClickFullscreenExit,
			"User clicked ESC and exited fullscreen. Re-entering fullscreen.")
		return
	}

	s.enforceFullscreenLocked(model.ViolationFullscreenExit,
		"Fullscreen exit detected. Re-entering fullscreen.")
}

// ─── Recovery loop ───────────────────────────────────────────────────

// enforceFullscreenLocked records the violation behind the departure (with
// dedup against an identical already-pending recovery) and kicks off the
// recovery loop. Callers must hold s.mu.
func (s *Session) enforceFullscreenLocked(reason model.ViolationReason, message string) {
	if s.platform.IsFullscreen() {
		s.clearRecoveryLocked()
		return
	}

	pending := s.recovery
	if pending == nil || pending.reason != reason || pending.message != message {
		s.recordViolationLocked(reason, message)
	} else {
		s.violationMsg = message
	}

	s.recovery = &recoveryState{reason: reason, message: message}
	s.scheduleRecoveryLocked(0)
}

func (s *Session) clearRecoveryLocked() {
	s.recovery = nil
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// scheduleRecoveryLocked arms one recovery attempt after delay. Only one
// retry timer exists at a time. Callers must hold s.mu.
func (s *Session) scheduleRecoveryLocked(delay time.Duration) {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	gen := s.gen
	s.retryTimer = s.clock.AfterFunc(delay, func() {
		s.attemptRecovery(gen)
	})
}

func (s *Session) scheduleRecovery(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam {
		return
	}
	s.scheduleRecoveryLocked(delay)
}

func (s *Session) retryRecoveryOnGesture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam || s.recovery == nil || s.platform.IsFullscreen() {
		return
	}
	s.scheduleRecoveryLocked(0)
}

// attemptRecovery re-requests fullscreen once the document is visible and
// focused. Browsers refuse fullscreen while hidden or unfocused, so an
// unsatisfied precondition simply leaves the pending state for the next
// gesture or visibility change to retry. The recovering flag is the sole
// mutual exclusion for re-acquisition and is held for the full attempt.
func (s *Session) attemptRecovery(gen int) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseExam || s.recovery == nil {
		s.mu.Unlock()
		return
	}
	if s.platform.IsFullscreen() {
		s.clearRecoveryLocked()
		s.mu.Unlock()
		return
	}
	if !s.platform.IsVisible() || !s.platform.HasFocus() {
		s.mu.Unlock()
		return
	}
	if s.recovering {
		s.mu.Unlock()
		return
	}
	s.recovering = true
	s.mu.Unlock()

	err := s.platform.RequestFullscreen(context.Background())
	if err == nil {
		if lockErr := s.platform.LockKeyboard(context.Background()); lockErr != nil {
			s.log.Warn().Err(lockErr).Msg("Keyboard lock unavailable after recovery")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recovering = false

	if gen != s.gen || s.phase != PhaseExam {
		return
	}

	if err != nil {
		// Denied recovery is not fatal: degrade to a persistent warning
		// and keep retrying until the session ends.
		s.log.Warn().Err(err).Msg("Unable to re-enter fullscreen")
		s.violationMsg = "Fullscreen is required. Please re-enable to continue."
		s.scheduleRecoveryLocked(s.cfg.RecoveryBackoff)
		return
	}

	s.clearRecoveryLocked()
}
