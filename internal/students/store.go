package students

import "context"

//go:generate mockgen -destination=mocks/store_mock.go -package=mocks tapsync/internal/students Store

// Store is the student registry. Two writers exist with different rights:
// the sync engine may only CreateIfAbsent placeholders, the registration
// workflow owns Put.
type Store interface {
	// Get returns the entry for a tag, or sentinel.ErrNotFound.
	Get(ctx context.Context, rfid string) (*Student, error)

	// CreateIfAbsent inserts the entry only when no entry exists for the
	// tag, reporting whether it was created. An existing entry is never
	// touched, whatever its contents; this is the first-writer-wins rule
	// that keeps the engine from clobbering a finished registration.
	CreateIfAbsent(ctx context.Context, st Student) (bool, error)

	// Put writes the full entry, creating or replacing identity fields.
	// Registration-workflow path only.
	Put(ctx context.Context, st Student) error

	// List returns all entries ordered by RFID.
	List(ctx context.Context) ([]Student, error)
}
