package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tapsync/pkg/sentinel"
)

// PostgresStore persists the attendance log in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the attendance table if it does not exist yet. Called
// once at startup; the kiosk has no external migration tooling.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS attendance (
			key         text PRIMARY KEY,
			rfid        text NOT NULL,
			scan_date   text NOT NULL,
			scan_time   text NOT NULL,
			recorded_at timestamptz NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS attendance_scan_date_idx ON attendance (scan_date);
		CREATE INDEX IF NOT EXISTS attendance_rfid_idx ON attendance (rfid);
	`)
	if err != nil {
		return fmt.Errorf("ensure attendance schema: %w", err)
	}
	return nil
}

// Upsert inserts the record or, on conflict, refreshes only recorded_at.
// The settled scan fields are deliberately absent from the UPDATE clause so
// redelivery can never rewrite them.
func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO attendance (key, rfid, scan_date, scan_time, recorded_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE SET recorded_at = now()
	`, rec.Key, rec.RFID, rec.Date, rec.Time)
	if err != nil {
		return fmt.Errorf("upsert attendance %q: %w", rec.Key, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, `
		SELECT key, rfid, scan_date, scan_time, recorded_at
		FROM attendance WHERE key = $1
	`, key).Scan(&rec.Key, &rec.RFID, &rec.Date, &rec.Time, &rec.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("attendance %q: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance %q: %w", key, err)
	}
	return &rec, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, rfid, scan_date, scan_time, recorded_at
		FROM attendance
		WHERE ($1 = '' OR scan_date = $1)
		  AND ($2 = '' OR rfid = $2)
		ORDER BY scan_date DESC, scan_time DESC, key DESC
	`, f.Date, f.RFID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.RFID, &rec.Date, &rec.Time, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendance rows: %w", err)
	}
	return out, nil
}
