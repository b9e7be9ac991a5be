package websocket

import "github.com/stemsi/quizcraft-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick      Event = "tick"
	EventWarning   Event = "warning"
	EventCompleted Event = "completed"
	EventPong      Event = "pong"
	EventError     Event = "error"
)

// WarningThreshold is the remaining time at which the single warning event is sent.
const WarningThreshold = 300

// TickEvent carries the remaining time of a timed attempt.
type TickEvent struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

type WarningEvent struct {
	Event            Event  `json:"event"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Message          string `json:"message"`
}

// CompletedEvent is sent once, when the attempt was submitted or ran out of time.
type CompletedEvent struct {
	Event   Event          `json:"event"`
	Expired bool           `json:"expired"`
	Attempt *model.Attempt `json:"attempt"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
