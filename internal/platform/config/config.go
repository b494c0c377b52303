package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything main needs to wire the process. Values come from
// the environment so the kiosk image can be configured without rebuilds.
type Config struct {
	Addr     string
	LogLevel slog.Level

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Feed     FeedConfig
	Auth     AuthConfig

	// SyncConcurrency bounds how many scan events from one snapshot are
	// upserted in parallel.
	SyncConcurrency int

	// Timezone is the calendar used for "today" filters on the dashboard.
	Timezone string
}

// RedisConfig configures the live scan feed client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the durable stores. An empty URL selects the
// in-memory stores, which is how the kiosk runs in development.
type PostgresConfig struct {
	URL string
}

// KafkaConfig configures the optional audit sink. No brokers means audit
// events stay in the in-memory store only.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FeedConfig locates the live scan feed inside Redis.
type FeedConfig struct {
	// Key is the hash the scanning device writes one field per tap into.
	Key string
	// Channel is the pub/sub channel the device publishes change
	// notifications on.
	Channel string
}

// AuthConfig configures staff authentication for the registration endpoints.
type AuthConfig struct {
	JWTSigningKey string
	TokenTTL      time.Duration
	StaffUser     string
	// StaffPasswordHash is a bcrypt hash; see internal/auth.HashPassword.
	StaffPasswordHash string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("TAPSYNC_ADDR", ":8080"),
		LogLevel:        parseLevel(os.Getenv("TAPSYNC_LOG_LEVEL")),
		SyncConcurrency: envIntOr("SYNC_CONCURRENCY", 8),
		Timezone:        envOr("TAPSYNC_TIMEZONE", "Asia/Manila"),
		Redis: RedisConfig{
			URL:          envOr("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("POSTGRES_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "tapsync.audit"),
		},
		Feed: FeedConfig{
			Key:     envOr("FEED_KEY", "attendance"),
			Channel: envOr("FEED_CHANNEL", "attendance:changed"),
		},
		Auth: AuthConfig{
			JWTSigningKey:     envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:          envDurationOr("JWT_TOKEN_TTL", 8*time.Hour),
			StaffUser:         envOr("STAFF_USER", "staff"),
			StaffPasswordHash: os.Getenv("STAFF_PASSWORD_HASH"),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
