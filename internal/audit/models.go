package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the kiosk.
const (
	ActionPlaceholderCreated = "student.placeholder_created"
	ActionStudentRegistered  = "student.registered"
	ActionSyncEventFailed    = "sync.event_failed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	RFID      string    `json:"rfid,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Staff     string    `json:"staff,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
