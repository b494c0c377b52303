package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_TryEmit(t *testing.T) {
	t.Run("stamps id and timestamp", func(t *testing.T) {
		p := NewPublisher(4)
		require.True(t, p.TryEmit(Event{Action: ActionPlaceholderCreated, RFID: "A1"}))

		ev := <-p.Inbox()
		assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", ev.ID.String())
		assert.False(t, ev.Timestamp.IsZero())
	})

	t.Run("never blocks on a full inbox", func(t *testing.T) {
		p := NewPublisher(1)
		assert.True(t, p.TryEmit(Event{Action: ActionPlaceholderCreated}))

		done := make(chan bool, 1)
		go func() {
			done <- p.TryEmit(Event{Action: ActionPlaceholderCreated})
		}()
		select {
		case accepted := <-done:
			assert.False(t, accepted, "overflow event must be dropped, not queued")
		case <-time.After(time.Second):
			t.Fatal("TryEmit blocked on a full inbox")
		}
	})
}

func TestWorker_DrainsToAllStores(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPublisher(8)
	primary := NewInMemoryStore(100)
	secondary := NewInMemoryStore(100)
	worker := NewWorker(p.Inbox(), discardLogger(), primary, secondary)

	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	require.True(t, p.TryEmit(Event{Action: ActionStudentRegistered, RFID: "A1"}))
	require.True(t, p.TryEmit(Event{Action: ActionPlaceholderCreated, RFID: "B2"}))

	require.Eventually(t, func() bool {
		events, err := secondary.List(ctx)
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	events, err := primary.List(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	cancel()
	<-done
}

type failingStore struct{}

func (failingStore) Append(context.Context, Event) error {
	return errors.New("sink offline")
}

func TestWorker_SinkFailureDoesNotStopDraining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPublisher(8)
	healthy := NewInMemoryStore(100)
	worker := NewWorker(p.Inbox(), discardLogger(), failingStore{}, healthy)

	go func() { _ = worker.Run(ctx) }()

	require.True(t, p.TryEmit(Event{Action: ActionSyncEventFailed, RFID: "A1"}))

	require.Eventually(t, func() bool {
		events, err := healthy.List(ctx)
		return err == nil && len(events) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryStore_Cap(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(3)

	for i := range 5 {
		require.NoError(t, store.Append(ctx, Event{Action: ActionPlaceholderCreated, Detail: string(rune('a' + i))}))
	}

	events, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[0].Detail, "oldest events are evicted first")
}
