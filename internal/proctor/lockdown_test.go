package proctor

import (
	"errors"
	"testing"
	"time"

	"github.com/examportal/backend/internal/model"
)

func TestHandleKeyDownBlocksLockdownKeys(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	cases := []struct {
		name  string
		event KeyEvent
		block bool
	}{
		{"escape", KeyEvent{Key: "Escape"}, true},
		{"function key", KeyEvent{Key: "F11"}, true},
		{"double digit function key", KeyEvent{Key: "F12"}, true},
		{"ctrl shortcut", KeyEvent{Key: "t", Ctrl: true}, true},
		{"meta shortcut", KeyEvent{Key: "d", Meta: true}, true},
		{"alt shortcut", KeyEvent{Key: "Tab", Alt: true}, true},
		{"plain letter", KeyEvent{Key: "a"}, false},
		{"f alone", KeyEvent{Key: "f"}, false},
	}
	for _, tc := range cases {
		if got := h.session.HandleKeyDown(tc.event); got != tc.block {
			t.Errorf("%s: HandleKeyDown = %v, want %v", tc.name, got, tc.block)
		}
		h.session.HandleKeyUp(tc.event)
		h.clock.Advance(2 * time.Second)
	}
}

func TestHandleKeyDownIgnoredOutsideExam(t *testing.T) {
	h := newHarness()
	if got := h.session.HandleKeyDown(KeyEvent{Key: "Escape"}); got {
		t.Fatal("key blocked before the exam started")
	}
	if n := h.session.ViolationCount(); n != 0 {
		t.Fatalf("violation count = %d, want 0", n)
	}
}

func TestEscapeClickClassification(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.clock.Advance(100 * time.Millisecond)
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})

	warnings := h.session.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if warnings[0].Reason != model.ViolationEscapeClick {
		t.Errorf("reason = %q, want %q", warnings[0].Reason, model.ViolationEscapeClick)
	}
	if h.session.ViolationCount() != 1 {
		t.Errorf("violation count = %d, want 1", h.session.ViolationCount())
	}
}

func TestEscapeHoldByDuration(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.clock.Advance(800 * time.Millisecond)
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})

	warnings := h.session.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if warnings[0].Reason != model.ViolationEscapeHold {
		t.Errorf("reason = %q, want %q", warnings[0].Reason, model.ViolationEscapeHold)
	}
}

func TestEscapeHoldByOSRepeat(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.session.HandleKeyDown(KeyEvent{Key: "Escape", Repeat: true})
	h.clock.Advance(100 * time.Millisecond)
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})

	warnings := h.session.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(warnings))
	}
	if warnings[0].Reason != model.ViolationEscapeHold {
		t.Errorf("reason = %q, want %q", warnings[0].Reason, model.ViolationEscapeHold)
	}
}

func TestViolationCooldownSuppressesCount(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	press := func() {
		h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
		h.session.HandleKeyUp(KeyEvent{Key: "Escape"})
	}

	press()
	h.clock.Advance(500 * time.Millisecond)
	press()

	if n := h.session.ViolationCount(); n != 1 {
		t.Fatalf("violation count inside cooldown = %d, want 1", n)
	}
	if n := len(h.session.Warnings()); n != 1 {
		t.Fatalf("warnings inside cooldown = %d, want 1", n)
	}
	if msg := h.session.ViolationMessage(); msg != "User clicked ESC." {
		t.Errorf("violation message = %q", msg)
	}

	h.clock.Advance(2 * time.Second)
	press()

	if n := h.session.ViolationCount(); n != 2 {
		t.Fatalf("violation count after cooldown = %d, want 2", n)
	}
}

func TestSpeechCooldownDedupesPhrase(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})
	h.clock.Advance(500 * time.Millisecond)
	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})

	if n := h.speaker.spokenCount(); n != 1 {
		t.Fatalf("spoken phrases = %d, want 1", n)
	}
}

func TestFullscreenExitAttributedToEscapeHold(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.clock.Advance(800 * time.Millisecond)

	// Native Escape-to-exit: the browser drops fullscreen while the key is
	// still down, then the release arrives.
	h.platform.setState(false, true, true)
	h.session.HandleFullscreenChange()
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})

	warnings := h.session.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1 composite", len(warnings))
	}
	if warnings[0].Reason != model.ViolationEscapeHoldFullscreenExit {
		t.Errorf("reason = %q, want %q", warnings[0].Reason, model.ViolationEscapeHoldFullscreenExit)
	}

	// Recovery fires immediately: the document is visible and focused.
	h.clock.Advance(0)
	if !h.platform.IsFullscreen() {
		t.Error("fullscreen not re-acquired")
	}
}

func TestFullscreenExitAttributedToEscapeClick(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.clock.Advance(100 * time.Millisecond)

	// The browser drops fullscreen before the release arrives, so the exit
	// is the event that records and the key-up is consumed.
	h.platform.setState(false, true, true)
	h.session.HandleFullscreenChange()
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})

	warnings := h.session.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %d, want 1 composite", len(warnings))
	}
	if warnings[0].Reason != model.ViolationEscapeClickFullscreenExit {
		t.Errorf("reason = %q, want %q", warnings[0].Reason, model.ViolationEscapeClickFullscreenExit)
	}
}

func TestFullscreenExitOutsideAttributionWindow(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.clock.Advance(100 * time.Millisecond)
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})

	h.clock.Advance(2 * time.Second)
	h.platform.setState(false, true, true)
	h.session.HandleFullscreenChange()

	warnings := h.session.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("warnings = %d, want 2", len(warnings))
	}
	if warnings[1].Reason != model.ViolationFullscreenExit {
		t.Errorf("reason = %q, want %q", warnings[1].Reason, model.ViolationFullscreenExit)
	}
}

func TestRecoveryDeniedKeepsRetrying(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.platform.setState(false, true, true)
	h.platform.denyFullscreen = errors.New("permission denied")
	h.session.HandleFullscreenChange()

	h.clock.Advance(0)
	if h.platform.IsFullscreen() {
		t.Fatal("fullscreen granted despite denial")
	}
	if msg := h.session.ViolationMessage(); msg != "Fullscreen is required. Please re-enable to continue." {
		t.Errorf("violation message = %q", msg)
	}

	// Denial re-arms a backoff retry; lifting the denial lets it succeed.
	h.platform.denyFullscreen = nil
	h.clock.Advance(h.session.cfg.RecoveryBackoff)
	if !h.platform.IsFullscreen() {
		t.Error("fullscreen not re-acquired after denial cleared")
	}
}

func TestRecoveryWaitsForVisibility(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	// Hidden document: enforcement records the violation but the recovery
	// attempt must not fire a fullscreen request yet.
	h.platform.setState(false, false, false)
	h.session.HandleVisibilityChange()
	before := h.platform.fullscreenCalls

	h.clock.Advance(time.Second)
	if h.platform.fullscreenCalls != before {
		t.Fatal("fullscreen requested while hidden")
	}

	h.platform.setState(false, true, true)
	h.session.HandleVisibilityChange()
	h.clock.Advance(0)
	if !h.platform.IsFullscreen() {
		t.Error("fullscreen not re-acquired once visible")
	}
}

func TestBackNavigationRepinsHistory(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	pins := h.platform.historyPushCalls

	h.platform.setState(false, true, true)
	h.session.HandleBackNavigation()

	if h.platform.historyPushCalls != pins+1 {
		t.Error("history not re-pinned")
	}
	warnings := h.session.Warnings()
	if len(warnings) != 1 || warnings[0].Reason != model.ViolationBackNavigation {
		t.Fatalf("warnings = %+v, want one back-navigation", warnings)
	}
}

func TestWindowBlurIgnoredWhileHidden(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.platform.setState(false, false, false)
	h.session.HandleWindowBlur()

	if n := h.session.ViolationCount(); n != 0 {
		t.Fatalf("violation count = %d, want 0 (visibilitychange owns hidden)", n)
	}
}
