package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tapsync/pkg/sentinel"
)

// PostgresStore persists the student registry in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the students table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS students (
			rfid        text PRIMARY KEY,
			name        text NOT NULL DEFAULT '',
			first_name  text NOT NULL DEFAULT '',
			middle_name text NOT NULL DEFAULT '',
			last_name   text NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure students schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, rfid string) (*Student, error) {
	var st Student
	err := s.pool.QueryRow(ctx, `
		SELECT rfid, name, first_name, middle_name, last_name
		FROM students WHERE rfid = $1
	`, rfid).Scan(&st.RFID, &st.Name, &st.FirstName, &st.MiddleName, &st.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("student %q: %w", rfid, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get student %q: %w", rfid, err)
	}
	return &st, nil
}

// CreateIfAbsent relies on ON CONFLICT DO NOTHING, so first-writer-wins
// holds even against a registration racing in through a different
// connection.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, st Student) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO students (rfid, name, first_name, middle_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (rfid) DO NOTHING
	`, st.RFID, st.Name, st.FirstName, st.MiddleName, st.LastName)
	if err != nil {
		return false, fmt.Errorf("create student %q: %w", st.RFID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Put(ctx context.Context, st Student) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (rfid, name, first_name, middle_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (rfid) DO UPDATE SET
			name = EXCLUDED.name,
			first_name = EXCLUDED.first_name,
			middle_name = EXCLUDED.middle_name,
			last_name = EXCLUDED.last_name
	`, st.RFID, st.Name, st.FirstName, st.MiddleName, st.LastName)
	if err != nil {
		return fmt.Errorf("put student %q: %w", st.RFID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Student, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rfid, name, first_name, middle_name, last_name
		FROM students ORDER BY rfid
	`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.RFID, &st.Name, &st.FirstName, &st.MiddleName, &st.LastName); err != nil {
			return nil, fmt.Errorf("scan student row: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list student rows: %w", err)
	}
	return out, nil
}
