// Package sync holds the reconciliation engine: the process that turns the
// device's noisy, redelivered scan feed into an idempotent attendance log
// and an always-populated student registry.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tapsync/internal/attendance"
	"tapsync/internal/audit"
	"tapsync/internal/feed"
	"tapsync/internal/students"
	syncmetrics "tapsync/internal/sync/metrics"
	"tapsync/pkg/sentinel"
)

// LogID derives the idempotency key for a scan. It is a pure function of the
// literal (rfid, date, time) strings, so redelivery of the same physical tap
// always lands on the same attendance record. No normalization happens here:
// rewriting the strings would fork keys against history already written with
// the raw device form.
func LogID(ev feed.ScanEvent) string {
	return ev.RFID + "_" + ev.Date + "_" + ev.Time
}

var paddedTime = regexp.MustCompile(`^\d{2}:\d{2}$`)

// AuditSink receives engine audit events without blocking processing.
type AuditSink interface {
	TryEmit(ev audit.Event) bool
}

// Engine subscribes to the live scan feed and, for every event in every
// snapshot, merge-upserts an attendance record and creates a registry
// placeholder when the tag has never been seen. Events are independent:
// one failing upsert is logged and dropped for the cycle (the feed
// redelivers the full buffer on the next change, which is the only retry
// mechanism), and the subscription itself only ends on Stop.
type Engine struct {
	feed        feed.Feed
	log         attendance.Store
	registry    students.Store
	sink        AuditSink
	logger      *slog.Logger
	metrics     *syncmetrics.Metrics
	tracer      trace.Tracer
	concurrency int

	mu  sync.Mutex
	sub feed.Subscription
}

func New(
	f feed.Feed,
	log attendance.Store,
	registry students.Store,
	sink AuditSink,
	logger *slog.Logger,
	m *syncmetrics.Metrics,
	concurrency int,
) *Engine {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Engine{
		feed:        f,
		log:         log,
		registry:    registry,
		sink:        sink,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("tapsync/internal/sync"),
		concurrency: concurrency,
	}
}

// Start establishes the feed subscription. The engine processes the initial
// snapshot before Start returns (the feed delivers it synchronously on
// subscribe).
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sub != nil {
		return errors.New("sync engine already started")
	}

	sub, err := e.feed.Subscribe(ctx, e.processSnapshot)
	if err != nil {
		return fmt.Errorf("subscribe to scan feed: %w", err)
	}
	e.sub = sub
	return nil
}

// Stop releases the subscription. In-flight upserts for the current snapshot
// are allowed to finish or fail on their own; no cancellation is propagated
// into store writes. Safe to call when never started or already stopped.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sub == nil {
		return nil
	}
	err := e.sub.Unsubscribe()
	e.sub = nil
	return err
}

// processSnapshot handles one feed notification. The payload is the full
// current buffer; entries already handled in earlier notifications come
// around again and must settle as no-ops.
func (e *Engine) processSnapshot(ctx context.Context, snapshot []feed.ScanEvent) {
	if len(snapshot) == 0 {
		return
	}

	ctx, span := e.tracer.Start(ctx, "sync.snapshot",
		trace.WithAttributes(attribute.Int("feed.events", len(snapshot))))
	defer span.End()

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for _, ev := range snapshot {
		if ev.RFID == "" {
			// Expected device noise, not an error condition.
			e.metrics.EventsSkipped.Inc()
			continue
		}
		g.Go(func() error {
			if err := e.processEvent(ctx, ev); err != nil {
				e.metrics.EventsFailed.Inc()
				e.logger.WarnContext(ctx, "scan event dropped for this cycle",
					"rfid", ev.RFID,
					"key", LogID(ev),
					"error", err,
				)
				e.sink.TryEmit(audit.Event{
					Action: audit.ActionSyncEventFailed,
					RFID:   ev.RFID,
					Detail: err.Error(),
				})
			}
			// Failures stay per-event; the next notification retries them.
			return nil
		})
	}
	_ = g.Wait()

	e.metrics.SnapshotsProcessed.Inc()
	e.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
}

// processEvent performs the two upserts for a single scan. The attendance
// write is unconditional (the store merges by key); the registry write is
// strictly read-then-create-if-absent so a finished registration is never
// clobbered.
func (e *Engine) processEvent(ctx context.Context, ev feed.ScanEvent) error {
	key := LogID(ev)

	if !paddedTime.MatchString(ev.Time) {
		// An unpadded clock ("8:5" vs "08:05") forks keys for what a human
		// would call the same scan. Surface it so the device config gets
		// fixed, but record the scan as reported.
		e.logger.WarnContext(ctx, "scan time not zero-padded",
			"rfid", ev.RFID,
			"time", ev.Time,
		)
	}

	if err := e.log.Upsert(ctx, attendance.Record{
		Key:  key,
		RFID: ev.RFID,
		Date: ev.Date,
		Time: ev.Time,
	}); err != nil {
		return fmt.Errorf("attendance upsert: %w", err)
	}
	e.metrics.EventsProcessed.Inc()

	_, err := e.registry.Get(ctx, ev.RFID)
	if err == nil {
		// Entry exists; whatever identity it holds is not ours to touch.
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("registry read: %w", err)
	}

	created, err := e.registry.CreateIfAbsent(ctx, students.Placeholder(ev.RFID))
	if err != nil {
		return fmt.Errorf("registry placeholder: %w", err)
	}
	if created {
		e.metrics.PlaceholdersCreated.Inc()
		e.logger.InfoContext(ctx, "new student registered", "rfid", ev.RFID)
		e.sink.TryEmit(audit.Event{
			Action: audit.ActionPlaceholderCreated,
			RFID:   ev.RFID,
		})
	}
	return nil
}
