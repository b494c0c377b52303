package feed

import (
	"context"
	"sync"
)

// MemoryFeed is an in-process Feed for tests and development. Publish
// replaces the buffer and synchronously delivers the full snapshot to every
// live subscriber, mirroring the snapshot-per-notification contract of the
// Redis feed.
type MemoryFeed struct {
	mu       sync.Mutex
	snapshot []ScanEvent
	nextID   int
	subs     map[int]Handler
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]Handler)}
}

// Subscribe registers the handler and delivers the current snapshot
// immediately, even when empty.
func (f *MemoryFeed) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = h
	snap := cloneSnapshot(f.snapshot)
	f.mu.Unlock()

	h(ctx, snap)

	return &memorySubscription{feed: f, id: id}, nil
}

// Publish replaces the buffer contents and notifies all subscribers.
func (f *MemoryFeed) Publish(ctx context.Context, snapshot []ScanEvent) {
	f.mu.Lock()
	f.snapshot = cloneSnapshot(snapshot)
	handlers := make([]Handler, 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	snap := cloneSnapshot(f.snapshot)
	f.mu.Unlock()

	for _, h := range handlers {
		h(ctx, cloneSnapshot(snap))
	}
}

func (f *MemoryFeed) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
}

func cloneSnapshot(snap []ScanEvent) []ScanEvent {
	return append([]ScanEvent{}, snap...)
}

type memorySubscription struct {
	feed *MemoryFeed
	id   int
}

func (s *memorySubscription) Unsubscribe() error {
	s.feed.remove(s.id)
	return nil
}
