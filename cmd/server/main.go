package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tapsync/internal/attendance"
	"tapsync/internal/audit"
	"tapsync/internal/auth"
	"tapsync/internal/dashboard"
	"tapsync/internal/feed"
	"tapsync/internal/platform/config"
	"tapsync/internal/platform/httpserver"
	"tapsync/internal/platform/logger"
	platformpg "tapsync/internal/platform/postgres"
	platformredis "tapsync/internal/platform/redis"
	"tapsync/internal/students"
	syncengine "tapsync/internal/sync"
	syncmetrics "tapsync/internal/sync/metrics"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	pool, err := platformpg.New(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}

	var (
		attendanceStore attendance.Store
		studentStore    students.Store
	)
	if pool != nil {
		defer pool.Close()
		pgAttendance := attendance.NewPostgresStore(pool)
		pgStudents := students.NewPostgresStore(pool)
		if err := pgAttendance.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		if err := pgStudents.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		attendanceStore, studentStore = pgAttendance, pgStudents
	} else {
		log.Warn("POSTGRES_URL not set, attendance and registry are in-memory only")
		attendanceStore = attendance.NewInMemoryStore()
		studentStore = students.NewInMemoryStore()
	}

	publisher := audit.NewPublisher(256)
	auditSinks := []audit.Store{audit.NewInMemoryStore(1000)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaStore(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		auditSinks = append(auditSinks, kafkaSink)
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	worker := audit.NewWorker(publisher.Inbox(), log, auditSinks...)
	go func() {
		_ = worker.Run(workerCtx)
	}()

	scanFeed := feed.NewRedisFeed(redisClient.Client, cfg.Feed.Key, cfg.Feed.Channel, log)
	engine := syncengine.New(
		scanFeed,
		attendanceStore,
		studentStore,
		publisher,
		log,
		syncmetrics.New(prometheus.DefaultRegisterer),
		cfg.SyncConcurrency,
	)
	if err := engine.Start(ctx); err != nil {
		log.Error("sync engine failed to start", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.TokenTTL)
	registration := students.NewService(studentStore, publisher, log)
	handler := dashboard.New(attendanceStore, studentStore, registration, tokens, cfg.Auth, cfg.Timezone, log)

	router := chi.NewRouter()
	handler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting tapsync", "addr", cfg.Addr, "feed_key", cfg.Feed.Key)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	// Release the feed subscription first so no new snapshot processing
	// starts while the server drains.
	if err := engine.Stop(); err != nil {
		log.Warn("feed unsubscribe failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
