package proctor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/examportal/backend/internal/model"
)

func TestManualSubmitFlow(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	h.session.SetAnswer(0, "B")

	h.session.RequestSubmit()
	confirm := h.session.Confirmation()
	if confirm == nil || confirm.Mode != ConfirmManualSubmit {
		t.Fatalf("confirmation = %+v, want manual-submit dialog", confirm)
	}

	if err := h.session.ConfirmSubmission(context.Background()); err != nil {
		t.Fatalf("ConfirmSubmission: %v", err)
	}

	if h.session.Phase() != PhaseSubmitted {
		t.Fatalf("phase = %q, want submitted", h.session.Phase())
	}
	if msg := h.session.SubmitMessage(); msg != "Exam submitted successfully." {
		t.Errorf("submit message = %q", msg)
	}

	last := h.store.lastUpsert()
	if last.req.Status != model.AttemptStatusCompleted {
		t.Errorf("status = %q, want completed", last.req.Status)
	}
	if len(last.req.Answers) != 1 || last.req.Answers[0].Answer != "B" {
		t.Errorf("answers = %+v", last.req.Answers)
	}

	// Lockdown released.
	if h.platform.IsFullscreen() {
		t.Error("still fullscreen after submission")
	}
	if h.platform.unlockCalls == 0 {
		t.Error("keyboard never unlocked")
	}
}

func TestCancelConfirmationResumesExam(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.RequestSubmit()
	h.session.CancelConfirmation()

	if h.session.Confirmation() != nil {
		t.Fatal("dialog still open after cancel")
	}
	if h.session.Phase() != PhaseExam {
		t.Fatalf("phase = %q, want exam", h.session.Phase())
	}
	if h.store.completedCount() != 0 {
		t.Fatal("cancel must not submit")
	}
}

func TestFocusLossDialogOpensOnce(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.platform.setState(false, false, false)
	h.session.HandleVisibilityChange()

	confirm := h.session.Confirmation()
	if confirm == nil || confirm.Mode != ConfirmFocusLossSubmit {
		t.Fatalf("confirmation = %+v, want focus-loss dialog", confirm)
	}
	if confirm.Title != "App Switch Detected" {
		t.Errorf("title = %q", confirm.Title)
	}

	// Repeated hide/blur events while the dialog is open change nothing.
	h.session.HandleVisibilityChange()
	h.session.HandleWindowBlur()
	if got := h.session.Confirmation(); got == nil || got.Mode != ConfirmFocusLossSubmit {
		t.Fatalf("confirmation replaced: %+v", got)
	}
	if n := len(h.session.Warnings()); n != 1 {
		t.Fatalf("warnings = %d, want 1", n)
	}

	// Dismissing re-arms the dialog for the next focus loss.
	h.session.CancelConfirmation()
	h.clock.Advance(3 * time.Second)
	h.session.HandleVisibilityChange()
	if got := h.session.Confirmation(); got == nil {
		t.Fatal("dialog not re-armed after cancel")
	}
}

func TestFocusLossSubmitAppendsConfirmationWarning(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.platform.setState(false, false, false)
	h.session.HandleVisibilityChange()
	h.platform.setState(false, true, true)

	if err := h.session.ConfirmSubmission(context.Background()); err != nil {
		t.Fatalf("ConfirmSubmission: %v", err)
	}

	if msg := h.session.SubmitMessage(); msg != "Exam submitted after app switch confirmation." {
		t.Errorf("submit message = %q", msg)
	}

	last := h.store.lastUpsert()
	if last.req.Status != model.AttemptStatusCompleted {
		t.Fatalf("status = %q, want completed", last.req.Status)
	}
	if n := len(last.req.Warnings); n != 2 {
		t.Fatalf("submitted warnings = %d, want tab-switch plus confirmation", n)
	}
	got := last.req.Warnings[1]
	if got.Message != "Student confirmed submission after focus loss." {
		t.Errorf("confirmation warning = %q", got.Message)
	}
	if got.Reason != model.ViolationTabSwitch {
		t.Errorf("confirmation reason = %q", got.Reason)
	}
}

func TestSubmitConflictLeavesSessionRetriable(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	h.store.upsertErr = fmt.Errorf("attempt store: %w", ErrConflict)

	h.session.RequestSubmit()
	if err := h.session.ConfirmSubmission(context.Background()); err == nil {
		t.Fatal("expected conflict error")
	}

	if h.session.Phase() != PhaseExam {
		t.Fatalf("phase = %q, want exam after failed submit", h.session.Phase())
	}
	if h.session.Submitting() {
		t.Fatal("submitting flag not released")
	}
	if msg := h.session.SubmitMessage(); msg != "This attempt was already submitted elsewhere." {
		t.Errorf("submit message = %q", msg)
	}
}

func TestSubmitFailureGenericMessage(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	h.store.upsertErr = fmt.Errorf("network down")

	h.session.RequestSubmit()
	if err := h.session.ConfirmSubmission(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if msg := h.session.SubmitMessage(); msg != "Submission failed. Please try again." {
		t.Errorf("submit message = %q", msg)
	}

	// The retry succeeds once the store recovers.
	h.store.upsertErr = nil
	h.session.RequestSubmit()
	if err := h.session.ConfirmSubmission(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.session.Phase() != PhaseSubmitted {
		t.Fatalf("phase = %q, want submitted", h.session.Phase())
	}
}

func TestSubmitSurfacesPortalMessage(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	h.store.upsertErr = &PortalError{Code: "VALIDATION_ERROR", Message: "Answer payload is malformed."}

	h.session.RequestSubmit()
	if err := h.session.ConfirmSubmission(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if msg := h.session.SubmitMessage(); msg != "Answer payload is malformed." {
		t.Errorf("submit message = %q, want the server's message", msg)
	}
	if h.session.Phase() != PhaseExam {
		t.Fatalf("phase = %q, want exam", h.session.Phase())
	}
}

func TestSubmittedPhaseIsTerminal(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.RequestSubmit()
	if err := h.session.ConfirmSubmission(context.Background()); err != nil {
		t.Fatalf("ConfirmSubmission: %v", err)
	}
	completed := h.store.completedCount()

	// No post-submission event may mutate or resubmit anything.
	h.session.SetAnswer(0, "C")
	h.session.RequestSubmit()
	_ = h.session.ConfirmSubmission(context.Background())
	h.session.HandleVisibilityChange()
	h.clock.Advance(time.Minute)

	if got := h.store.completedCount(); got != completed {
		t.Fatalf("completed writes = %d, want %d", got, completed)
	}
	if _, ok := h.session.Answers()[0]; ok {
		t.Error("answer mutated after submission")
	}
}
