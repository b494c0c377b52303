//go:build integration

package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapsync/internal/attendance"
	"tapsync/pkg/sentinel"
	"tapsync/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	store := attendance.NewPostgresStore(pg.Pool)
	require.NoError(t, store.EnsureSchema(ctx))

	t.Run("get unknown key", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("upsert is idempotent and keeps settled fields", func(t *testing.T) {
		rec := attendance.Record{Key: "A1_2024-01-01_08:05", RFID: "A1", Date: "2024-01-01", Time: "08:05"}
		require.NoError(t, store.Upsert(ctx, rec))

		first, err := store.Get(ctx, rec.Key)
		require.NoError(t, err)

		// A redelivery carrying different scan fields must not rewrite them.
		time.Sleep(50 * time.Millisecond)
		tampered := rec
		tampered.Time = "23:59"
		require.NoError(t, store.Upsert(ctx, tampered))

		second, err := store.Get(ctx, rec.Key)
		require.NoError(t, err)
		assert.Equal(t, "08:05", second.Time)
		assert.Equal(t, "2024-01-01", second.Date)
		assert.True(t, second.RecordedAt.After(first.RecordedAt), "redelivery refreshes recorded_at")
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		seed := []attendance.Record{
			{Key: "A1_2024-01-02_14:30", RFID: "A1", Date: "2024-01-02", Time: "14:30"},
			{Key: "B2_2024-01-02_08:10", RFID: "B2", Date: "2024-01-02", Time: "08:10"},
		}
		for _, rec := range seed {
			require.NoError(t, store.Upsert(ctx, rec))
		}

		all, err := store.List(ctx, attendance.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "A1_2024-01-02_14:30", all[0].Key)

		byDate, err := store.List(ctx, attendance.Filter{Date: "2024-01-01"})
		require.NoError(t, err)
		require.Len(t, byDate, 1)

		byRFID, err := store.List(ctx, attendance.Filter{RFID: "B2"})
		require.NoError(t, err)
		require.Len(t, byRFID, 1)
		assert.Equal(t, "B2", byRFID[0].RFID)
	})
}
