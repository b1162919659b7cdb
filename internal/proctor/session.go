package proctor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/examportal/backend/internal/model"
	"github.com/rs/zerolog"
)

// Phase is the session lifecycle position.
type Phase string

const (
	PhaseAccess    Phase = "access"
	PhaseOverview  Phase = "overview"
	PhaseExam      Phase = "exam"
	PhaseSubmitted Phase = "submitted"
)

// escapeState tracks one Escape press so releases and fullscreen exits can
// be classified and attributed.
type escapeState struct {
	isDown                bool
	downAt                time.Time
	hadRepeat             bool
	fullscreenExitHandled bool
	lastReleasedAt        time.Time
	lastDuration          time.Duration
}

// recoveryState is the pending fullscreen-recovery bookkeeping. Non-nil
// while fullscreen is lost and the engine is fighting to get it back.
type recoveryState struct {
	reason  model.ViolationReason
	message string
}

// ConfirmationMode distinguishes the two confirmation dialogs.
type ConfirmationMode string

const (
	ConfirmManualSubmit    ConfirmationMode = "manual-submit"
	ConfirmFocusLossSubmit ConfirmationMode = "focus-loss-submit"
)

// Confirmation is the pending-confirmation state shown to the student.
type Confirmation struct {
	Mode    ConfirmationMode
	Title   string
	Message string
	Reason  model.ViolationReason
}

// Session is one in-memory proctored attempt. It is owned by exactly one
// exam surface, never shared, and is discarded after submission or hard
// navigation. All exported methods are safe for use from timer callbacks
// and event bridges; a single mutex serializes every state transition.
type Session struct {
	mu       sync.Mutex
	cfg      Config
	platform Platform
	speaker  Speaker
	store    Store
	clock    Clock
	log      zerolog.Logger

	examID string
	access *model.AccessResponse

	phase     Phase
	startedAt *time.Time

	answers      map[int]string
	warnings     []model.Warning
	currentIndex int

	violationCount  int
	violationMsg    string
	lastViolationAt time.Time
	lastSpeechText  string
	lastSpeechAt    time.Time

	esc        escapeState
	recovery   *recoveryState
	recovering bool
	retryTimer Timer

	timeLeft  int
	tickTimer Timer

	saveTimer Timer

	submitting bool
	submitMsg  string
	confirm    *Confirmation
	// focusLossOpen guards the focus-loss dialog: at most one open at a time.
	focusLossOpen bool

	// gen invalidates every outstanding timer callback when the phase that
	// scheduled it ends. No timer may observe state from a later life.
	gen int
}

// NewSession creates a session in the access phase for the given exam id.
func NewSession(examID string, platform Platform, speaker Speaker, store Store, clock Clock, cfg Config, log zerolog.Logger) *Session {
	return &Session{
		cfg:      cfg,
		platform: platform,
		speaker:  speaker,
		store:    store,
		clock:    clock,
		log:      log.With().Str("component", "proctor_session").Str("exam_id", examID).Logger(),
		examID:   examID,
		phase:    PhaseAccess,
		answers:  make(map[int]string),
	}
}

// Access validates the exam code and student email against the access gate.
// It is side-effect free server-side: no attempt is created or mutated, and
// the clock does not start. On success the session moves to the overview
// phase, seeded with any resumable attempt state.
func (s *Session) Access(ctx context.Context, studentEmail, examCode string) (*model.AccessResponse, error) {
	s.mu.Lock()
	if s.phase != PhaseAccess && s.phase != PhaseOverview {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	s.mu.Unlock()

	req := model.AccessRequest{
		ExamID:       s.examID,
		ExamCode:     strings.ToUpper(strings.TrimSpace(examCode)),
		StudentEmail: strings.TrimSpace(studentEmail),
	}

	resp, err := s.store.ValidateAccess(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAccess && s.phase != PhaseOverview {
		return nil, ErrSessionActive
	}

	s.access = resp
	s.answers = make(map[int]string)
	s.currentIndex = 0
	s.violationCount = 0
	s.violationMsg = ""
	s.warnings = nil

	if resp.Attempt != nil && resp.Attempt.Status == model.AttemptStatusPending {
		s.answers = model.AnswerMap(resp.Attempt.Answers)
		s.currentIndex = clampIndex(resp.Attempt.CurrentIndex, len(resp.Questions))
		s.startedAt = resp.Attempt.StartedAt
	}

	s.phase = PhaseOverview
	return resp, nil
}

// Start acquires lockdown and opens (or resumes) the attempt record. The
// session must not start unsecured: a fullscreen denial fails the
// transition with *StartError and leaves the phase unchanged.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseOverview || s.access == nil {
		s.mu.Unlock()
		return nil
	}
	access := s.access
	nextIndex := s.currentIndex
	answers := s.snapshotAnswersLocked()
	s.mu.Unlock()

	if err := s.platform.RequestFullscreen(ctx); err != nil {
		return &StartError{Cause: err}
	}
	if err := s.platform.LockKeyboard(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Keyboard lock unavailable")
	}

	// First write for this (exam, student) pair creates the record and
	// stamps startedAt; any later write leaves startedAt untouched.
	result, err := s.store.UpsertAttempt(ctx, s.examID, model.AttemptUpsertRequest{
		StudentID:    access.Student.ID,
		Answers:      answers,
		Warnings:     nil,
		Status:       model.AttemptStatusPending,
		CurrentIndex: nextIndex,
	})
	if err != nil {
		s.platform.UnlockKeyboard()
		if s.platform.IsFullscreen() {
			s.platform.ExitFullscreen()
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.stopTimersLocked()
	s.violationCount = 0
	s.violationMsg = ""
	s.warnings = nil
	s.lastViolationAt = time.Time{}
	s.esc = escapeState{}
	s.recovery = nil
	s.recovering = false
	s.focusLossOpen = false
	s.confirm = nil
	s.submitMsg = ""

	startedAt := result.StartedAt
	s.startedAt = &startedAt
	s.phase = PhaseExam
	s.currentIndex = nextIndex
	s.timeLeft = ComputeRemainingSeconds(startedAt, access.Exam.DurationMinutes*60, s.clock.Now())

	s.platform.PushHistoryState()
	s.scheduleTickLocked()

	s.log.Info().
		Time("started_at", startedAt).
		Int("remaining_seconds", s.timeLeft).
		Msg("Secured session started")
	return nil
}

// Close tears the session down on hard navigation: all timers are
// cancelled, lockdown is released and no callback scheduled by this
// session may fire afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	s.stopTimersLocked()
	s.recovery = nil
	s.recovering = false
	s.esc = escapeState{}
	s.confirm = nil
	s.focusLossOpen = false
	wasExam := s.phase == PhaseExam
	s.mu.Unlock()

	if wasExam {
		s.speaker.Cancel()
		s.platform.UnlockKeyboard()
		if s.platform.IsFullscreen() {
			s.platform.ExitFullscreen()
		}
	}
}

// ─── Answer and position mutations ───────────────────────────────────

// SetAnswer records a single-valued answer and schedules an autosave.
func (s *Session) SetAnswer(index int, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam {
		return
	}
	s.answers[index] = value
	s.scheduleAutosaveLocked()
}

// ToggleMultiSelect flips one option letter inside a multi-select answer,
// preserving the wire-compatible string encoding.
func (s *Session) ToggleMultiSelect(index int, letter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam {
		return
	}

	current := model.ParseAnswer(s.answers[index])
	if current.Kind != model.AnswerMulti {
		current = model.Answer{Kind: model.AnswerMulti}
	}

	next := make([]string, 0, len(current.Values)+1)
	found := false
	for _, v := range current.Values {
		if v == letter {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, letter)
	}

	s.answers[index] = model.Answer{Kind: model.AnswerMulti, Values: next}.Wire()
	s.scheduleAutosaveLocked()
}

// SetCurrentIndex moves the viewed question, clamped to the question list.
func (s *Session) SetCurrentIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseExam || s.access == nil {
		return
	}
	s.currentIndex = clampIndex(index, len(s.access.Questions))
	s.scheduleAutosaveLocked()
}

// ─── Read accessors ──────────────────────────────────────────────────

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeft
}

func (s *Session) ViolationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violationCount
}

func (s *Session) ViolationMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violationMsg
}

func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

func (s *Session) SubmitMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitMsg
}

// Confirmation returns the open confirmation dialog, or nil.
func (s *Session) Confirmation() *Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirm == nil {
		return nil
	}
	c := *s.confirm
	return &c
}

// Warnings returns a copy of the session warning log, in detection order.
func (s *Session) Warnings() []model.Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Answers returns a copy of the current answer state keyed by question index.
func (s *Session) Answers() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func (s *Session) StartedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// ─── Internal helpers ────────────────────────────────────────────────

// snapshotAnswersLocked converts the answer map to dense wire entries.
// Callers must hold s.mu.
func (s *Session) snapshotAnswersLocked() []model.AnswerEntry {
	entries := make([]model.AnswerEntry, 0, len(s.answers))
	for idx, ans := range s.answers {
		entries = append(entries, model.AnswerEntry{QuestionIndex: idx, Answer: ans})
	}
	return entries
}

// snapshotWarningsLocked copies the warning log. The copy is taken at the
// moment of use so an in-flight save never reads a stale closure.
func (s *Session) snapshotWarningsLocked() []model.Warning {
	out := make([]model.Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *Session) stopTimersLocked() {
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

func clampIndex(idx, total int) int {
	if idx < 0 {
		return 0
	}
	max := total - 1
	if max < 0 {
		max = 0
	}
	if idx > max {
		return max
	}
	return idx
}
