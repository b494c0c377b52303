package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisFeed reads the live scan buffer from a Redis hash. The scanning
// device HSETs one field per tap under a fixed key and PUBLISHes on a
// channel after every write; each notification triggers a full HGETALL so
// the handler always sees the complete buffer.
type RedisFeed struct {
	client  *redis.Client
	key     string
	channel string
	logger  *slog.Logger
}

// NewRedisFeed builds a feed over an established Redis client.
func NewRedisFeed(client *redis.Client, key, channel string, logger *slog.Logger) *RedisFeed {
	return &RedisFeed{
		client:  client,
		key:     key,
		channel: channel,
		logger:  logger,
	}
}

// Subscribe opens the pub/sub channel and starts a delivery goroutine. The
// initial snapshot is delivered before any notification is handled. Snapshot
// read failures are logged and skipped; the subscription itself stays up
// (go-redis re-establishes the pub/sub connection after network drops).
func (f *RedisFeed) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	ps := f.client.Subscribe(ctx, f.channel)
	// Force the subscribe round-trip so a dead broker surfaces here rather
	// than silently on the first missed notification.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &redisSubscription{ps: ps, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)

		f.deliver(subCtx, h)

		ch := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				f.deliver(subCtx, h)
			}
		}
	}()

	return sub, nil
}

// deliver reads the full buffer and hands it to the handler.
func (f *RedisFeed) deliver(ctx context.Context, h Handler) {
	if ctx.Err() != nil {
		return
	}
	entries, err := f.client.HGetAll(ctx, f.key).Result()
	if err != nil {
		f.logger.WarnContext(ctx, "scan feed snapshot read failed",
			"key", f.key,
			"error", err,
		)
		return
	}

	snapshot := make([]ScanEvent, 0, len(entries))
	for field, raw := range entries {
		var ev ScanEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			f.logger.DebugContext(ctx, "skipping undecodable feed entry",
				"field", field,
				"error", err,
			)
			continue
		}
		snapshot = append(snapshot, ev)
	}

	h(ctx, snapshot)
}

type redisSubscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Unsubscribe closes the pub/sub connection and waits for the delivery
// goroutine to drain. Safe to call more than once.
func (s *redisSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.done
	})
	return err
}
