package config

import "fmt"

// CacheKeyStruct centralizes every Redis key used by the application so
// handlers, services and workers never disagree on key layout.
type CacheKeyStruct struct{}

// AdminSessionKey returns the key holding an admin's active JWT ID.
func (r *CacheKeyStruct) AdminSessionKey(adminID string) string {
	return fmt.Sprintf("admin:%s:session", adminID)
}

// AttemptStartKey returns the key caching an attempt's started_at timestamp.
func (r *CacheKeyStruct) AttemptStartKey(examID, studentID string) string {
	return fmt.Sprintf("exam:%s:student:%s:started_at", examID, studentID)
}

// ViolationChannel returns the pub/sub channel carrying live violation
// events for one exam, consumed by the admin monitor stream.
func (r *CacheKeyStruct) ViolationChannel(examID string) string {
	return fmt.Sprintf("exam:%s:violations", examID)
}

// WorkerKeyStruct centralizes the Redis queue names consumed by workers.
type WorkerKeyStruct struct {
	// PersistViolationsQueue feeds the violation audit worker.
	PersistViolationsQueue string
	// ScoreAttemptsQueue feeds the scoring worker.
	ScoreAttemptsQueue string
}

var (
	CacheKey  = &CacheKeyStruct{}
	WorkerKey = &WorkerKeyStruct{
		PersistViolationsQueue: "persist_violations_queue",
		ScoreAttemptsQueue:     "score_attempts_queue",
	}
)
