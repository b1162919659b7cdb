package proctor

import (
	"context"
	"time"
)

// ComputeRemainingSeconds derives the remaining time from the persisted
// start timestamp: elapsed whole seconds since startedAt subtracted from the
// total, clamped at zero. Reloading and recomputing from the same startedAt
// always reconstructs the same countdown; no client-held counter is ever
// the source of truth.
func ComputeRemainingSeconds(startedAt time.Time, totalSeconds int, now time.Time) int {
	if startedAt.IsZero() {
		return totalSeconds
	}
	elapsed := int(now.Sub(startedAt) / time.Second)
	remaining := totalSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// scheduleTickLocked arms the 1 Hz countdown. The tick decrements a seeded
// counter rather than re-reading the wall clock, bounding drift to the tick
// granularity; reseeds happen only at resume points. Callers must hold s.mu.
func (s *Session) scheduleTickLocked() {
	gen := s.gen
	s.tickTimer = s.clock.AfterFunc(time.Second, func() {
		s.tick(gen)
	})
}

func (s *Session) tick(gen int) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseExam {
		s.mu.Unlock()
		return
	}

	if s.timeLeft > 0 {
		s.timeLeft--
	}

	if s.timeLeft == 0 {
		s.mu.Unlock()
		// Timeout submission: forced, no confirmation step.
		s.submit(context.Background(), nil, "Time is up. Your exam was submitted automatically.")
		return
	}

	s.scheduleTickLocked()
	s.mu.Unlock()
}
