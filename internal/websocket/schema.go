package websocket

import "github.com/examportal/backend/internal/model"

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventViolation Event = "violation"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// ViolationMessage streams one live proctoring event to a monitor.
type ViolationMessage struct {
	Event     Event                `json:"event"`
	Violation model.ViolationEvent `json:"violation"`
}

type ErrorMessage struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongMessage struct {
	Event Event `json:"event"`
}

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const ActionPing Action = "ping"

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}
