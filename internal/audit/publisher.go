package audit

import (
	"time"

	"github.com/google/uuid"
)

// Publisher hands events to the worker through a bounded inbox. Emitting
// never blocks domain code: when the inbox is full the event is dropped,
// because nothing in the kiosk is allowed to stall on its own audit trail.
type Publisher struct {
	inbox chan Event
}

func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer)}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// TryEmit stamps and enqueues the event, reporting whether it was accepted.
func (p *Publisher) TryEmit(ev Event) bool {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case p.inbox <- ev:
		return true
	default:
		return false
	}
}
