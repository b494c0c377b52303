package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher inbox and persists them.
// A sink failure is logged and the event dropped; the audit trail is
// best-effort and must never wedge the inbox.
type Worker struct {
	stores []Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, stores ...Store) *Worker {
	return &Worker{stores: stores, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, store := range w.stores {
				if err := store.Append(ctx, event); err != nil {
					w.logger.WarnContext(ctx, "audit append failed",
						"action", event.Action,
						"event_id", event.ID,
						"error", err,
					)
				}
			}
		}
	}
}
