package attendance

import "context"

// Store is the durable attendance log. The sync engine is its only writer.
type Store interface {
	// Upsert writes the record under rec.Key with merge semantics: the first
	// write settles RFID/Date/Time, repeated writes with the same key touch
	// only the server-assigned RecordedAt. Safe to call any number of times
	// for the same scan.
	Upsert(ctx context.Context, rec Record) error

	// Get returns the record for a key, or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)

	// List returns matching records sorted newest scan first (by Date, then
	// Time, descending).
	List(ctx context.Context, f Filter) ([]Record, error)
}
