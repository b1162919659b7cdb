package proctor

import (
	"strings"

	"github.com/examportal/backend/internal/model"
)

// recordViolationLocked applies the violation-count cooldown, appends an
// accepted Warning with the current timestamp and triggers the audible cue.
// A violation inside the cooldown window still updates the on-screen message
// and speaks, but is neither counted nor logged; rapid focus flicker must
// not inflate the count. Callers must hold s.mu.
func (s *Session) recordViolationLocked(reason model.ViolationReason, message string) {
	now := s.clock.Now()

	if !s.lastViolationAt.IsZero() && now.Sub(s.lastViolationAt) < s.cfg.ViolationCooldown {
		s.violationMsg = message
		s.speakWarningLocked(reason, message)
		return
	}

	s.lastViolationAt = now
	s.violationCount++
	s.violationMsg = message
	s.warnings = append(s.warnings, model.Warning{
		Reason:  reason,
		Message: message,
		At:      now,
	})
	s.speakWarningLocked(reason, message)
	s.scheduleAutosaveLocked()

	s.log.Warn().
		Str("reason", string(reason)).
		Int("violation_count", s.violationCount).
		Msg("Violation recorded")
}

// speakWarningLocked synthesizes one canonical phrase per reason family.
// The phrase cooldown is keyed on the exact spoken text and is independent
// of the violation-count cooldown, so the same sentence is never repeated
// in rapid succession regardless of dedup outcome. Callers must hold s.mu.
func (s *Session) speakWarningLocked(reason model.ViolationReason, fallback string) {
	text := speechText(reason, fallback)

	now := s.clock.Now()
	if s.lastSpeechText == text && now.Sub(s.lastSpeechAt) < s.cfg.SpeechCooldown {
		return
	}
	s.lastSpeechText = text
	s.lastSpeechAt = now

	s.speaker.Cancel()
	s.speaker.Speak(text)
}

func speechText(reason model.ViolationReason, fallback string) string {
	r := string(reason)
	switch {
	case reason == model.ViolationEscapeClick:
		return "You pressed Escape. This counts as a warning."
	case strings.HasPrefix(r, "escape-hold"):
		return "Long press Escape detected. This counts as a warning."
	case reason == model.ViolationTabSwitch || reason == model.ViolationWindowBlur:
		return "App switch detected. This counts as a warning."
	case strings.Contains(r, "fullscreen-exit"):
		return "Fullscreen exit detected. This counts as a warning."
	}
	return fallback
}
