package proctor

import (
	"fmt"
	"testing"
	"time"

	"github.com/examportal/backend/internal/model"
)

func TestAutosaveDebouncesBursts(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	base := h.store.upsertCount()

	h.session.SetAnswer(0, "A")
	h.clock.Advance(200 * time.Millisecond)
	h.session.SetAnswer(0, "B")
	h.clock.Advance(200 * time.Millisecond)
	h.session.SetCurrentIndex(1)

	// Nothing fires until the burst goes quiet for the full debounce.
	if got := h.store.upsertCount(); got != base {
		t.Fatalf("saved mid-burst: %d upserts", got-base)
	}

	h.clock.Advance(600 * time.Millisecond)

	if got := h.store.upsertCount(); got != base+1 {
		t.Fatalf("upserts = %d, want exactly one save for the burst", got-base)
	}
	last := h.store.lastUpsert()
	if last.req.Status != model.AttemptStatusPending {
		t.Errorf("status = %q, want pending", last.req.Status)
	}
	if len(last.req.Answers) != 1 || last.req.Answers[0].Answer != "B" {
		t.Errorf("answers = %+v, want latest value B", last.req.Answers)
	}
	if last.req.CurrentIndex != 1 {
		t.Errorf("current index = %d, want 1", last.req.CurrentIndex)
	}
}

func TestAutosaveCarriesWarnings(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	base := h.store.upsertCount()

	h.session.HandleKeyDown(KeyEvent{Key: "Escape"})
	h.session.HandleKeyUp(KeyEvent{Key: "Escape"})
	h.clock.Advance(600 * time.Millisecond)

	if got := h.store.upsertCount(); got != base+1 {
		t.Fatalf("upserts = %d, want 1", got-base)
	}
	last := h.store.lastUpsert()
	if len(last.req.Warnings) != 1 || last.req.Warnings[0].Reason != model.ViolationEscapeClick {
		t.Errorf("warnings = %+v", last.req.Warnings)
	}
}

func TestAutosaveFailureIsDropped(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}
	h.store.upsertErr = fmt.Errorf("store unavailable")

	h.session.SetAnswer(0, "A")
	h.clock.Advance(time.Second)

	// A lost autosave never disturbs the session: the answer stays local
	// and the next change saves again.
	if h.session.Phase() != PhaseExam {
		t.Fatalf("phase = %q, want exam", h.session.Phase())
	}
	if got := h.session.Answers()[0]; got != "A" {
		t.Fatalf("answer = %q, want A", got)
	}

	h.store.upsertErr = nil
	h.session.SetAnswer(1, "C")
	h.clock.Advance(time.Second)

	last := h.store.lastUpsert()
	if last.req.Status != model.AttemptStatusPending || len(last.req.Answers) != 2 {
		t.Fatalf("recovery save = %+v", last.req)
	}
}

func TestToggleMultiSelectRoundTrips(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.ToggleMultiSelect(0, "A")
	h.session.ToggleMultiSelect(0, "C")
	h.session.ToggleMultiSelect(0, "A")

	got := model.ParseAnswer(h.session.Answers()[0])
	if got.Kind != model.AnswerMulti {
		t.Fatalf("kind = %q, want multi", got.Kind)
	}
	if len(got.Values) != 1 || got.Values[0] != "C" {
		t.Fatalf("values = %v, want [C]", got.Values)
	}
}

func TestSetCurrentIndexClamps(t *testing.T) {
	h := newHarness()
	if err := h.startExam(); err != nil {
		t.Fatalf("startExam: %v", err)
	}

	h.session.SetCurrentIndex(99)
	if got := h.session.CurrentIndex(); got != 4 {
		t.Errorf("index = %d, want clamp to last question", got)
	}
	h.session.SetCurrentIndex(-3)
	if got := h.session.CurrentIndex(); got != 0 {
		t.Errorf("index = %d, want clamp to 0", got)
	}
}
