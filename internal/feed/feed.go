// Package feed models the live scan feed the RFID device writes into: a
// small rolling buffer of raw taps, not an append log. Subscribers get the
// full current contents on every change, so the same tap is routinely
// delivered more than once and consumers must be idempotent per event.
package feed

import "context"

// ScanEvent is one physical tag tap as the device reports it. Date and Time
// are the device's local calendar date and clock time, kept as the literal
// strings the device sent.
type ScanEvent struct {
	RFID string `json:"rfid"`
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM, 24h
}

// Handler receives the complete current snapshot of the feed. The payload is
// a full replacement set, never an incremental diff.
type Handler func(ctx context.Context, snapshot []ScanEvent)

// Subscription is the handle returned by Subscribe. Unsubscribe releases the
// underlying resources and stops further deliveries.
type Subscription interface {
	Unsubscribe() error
}

// Feed is a push-based source of scan snapshots. Subscribe delivers the
// current snapshot once immediately and again on every subsequent change
// until the subscription is released. Notifications are delivered one at a
// time; a handler invocation finishes before the next begins.
type Feed interface {
	Subscribe(ctx context.Context, h Handler) (Subscription, error)
}
