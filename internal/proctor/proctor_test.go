package proctor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examportal/backend/internal/model"
)

// ─── Fake clock ──────────────────────────────────────────────────────

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward, firing due timers in deadline order.
// Callbacks run outside the clock lock, so they may schedule new timers;
// newly due timers fire within the same advance.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		next.fired = true
		f := next.f
		c.mu.Unlock()
		f()
	}
}

// ─── Fake platform ───────────────────────────────────────────────────

type fakePlatform struct {
	mu sync.Mutex

	fullscreen bool
	visible    bool
	focused    bool

	denyFullscreen   error
	fullscreenCalls  int
	exitCalls        int
	lockCalls        int
	unlockCalls      int
	historyPushCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{visible: true, focused: true}
}

func (p *fakePlatform) RequestFullscreen(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fullscreenCalls++
	if p.denyFullscreen != nil {
		return p.denyFullscreen
	}
	p.fullscreen = true
	return nil
}

func (p *fakePlatform) ExitFullscreen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitCalls++
	p.fullscreen = false
}

func (p *fakePlatform) IsFullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullscreen
}

func (p *fakePlatform) LockKeyboard(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lockCalls++
	return nil
}

func (p *fakePlatform) UnlockKeyboard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlockCalls++
}

func (p *fakePlatform) IsVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

func (p *fakePlatform) HasFocus() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

func (p *fakePlatform) PushHistoryState() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.historyPushCalls++
}

func (p *fakePlatform) setState(fullscreen, visible, focused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fullscreen = fullscreen
	p.visible = visible
	p.focused = focused
}

// ─── Fake speaker ────────────────────────────────────────────────────

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func (s *fakeSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
}

func (s *fakeSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *fakeSpeaker) spokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spoken)
}

// ─── Fake store ──────────────────────────────────────────────────────

type upsertCall struct {
	examID string
	req    model.AttemptUpsertRequest
}

type fakeStore struct {
	mu sync.Mutex

	accessResp *model.AccessResponse
	accessErr  error

	upserts   []upsertCall
	upsertErr error
	startedAt time.Time
}

func (f *fakeStore) ValidateAccess(ctx context.Context, req model.AccessRequest) (*model.AccessResponse, error) {
	if f.accessErr != nil {
		return nil, f.accessErr
	}
	return f.accessResp, nil
}

func (f *fakeStore) UpsertAttempt(ctx context.Context, examID string, req model.AttemptUpsertRequest) (*model.AttemptUpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, upsertCall{examID: examID, req: req})
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &model.AttemptUpsertResult{Status: req.Status, StartedAt: f.startedAt}, nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeStore) lastUpsert() upsertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts[len(f.upserts)-1]
}

func (f *fakeStore) completedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.upserts {
		if u.req.Status == model.AttemptStatusCompleted {
			n++
		}
	}
	return n
}

// ─── Harness ─────────────────────────────────────────────────────────

type harness struct {
	session  *Session
	clock    *fakeClock
	platform *fakePlatform
	speaker  *fakeSpeaker
	store    *fakeStore
}

func accessResponse(durationMinutes, questionCount int) *model.AccessResponse {
	questions := make([]model.QuestionForStudent, questionCount)
	for i := range questions {
		questions[i] = model.QuestionForStudent{
			Question:     "q",
			QuestionType: model.QuestionTypeOption,
			Options:      []string{"one", "two"},
		}
	}
	return &model.AccessResponse{
		Exam: model.AccessExam{
			ID:              uuid.New(),
			Name:            "Midterm",
			DurationMinutes: durationMinutes,
			QuestionCount:   questionCount,
		},
		Student: model.AccessStudent{
			ID:      uuid.New(),
			Name:    "Dana",
			EmailID: "dana@example.edu",
		},
		Questions: questions,
	}
}

func newHarness() *harness {
	clock := newFakeClock()
	platform := newFakePlatform()
	speaker := &fakeSpeaker{}
	store := &fakeStore{
		accessResp: accessResponse(30, 5),
		startedAt:  clock.Now(),
	}
	session := NewSession("exam-1", platform, speaker, store, clock, DefaultConfig(), zerolog.Nop())
	return &harness{
		session:  session,
		clock:    clock,
		platform: platform,
		speaker:  speaker,
		store:    store,
	}
}

// startExam walks the session through access and start into the exam phase.
func (h *harness) startExam() error {
	if _, err := h.session.Access(context.Background(), "dana@example.edu", "abc123"); err != nil {
		return err
	}
	return h.session.Start(context.Background())
}
