package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapsync/pkg/sentinel"
)

func TestInMemoryStore_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key returns not found", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.Get(ctx, "missing")
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})

	t.Run("repeated upserts keep settled fields", func(t *testing.T) {
		store := NewInMemoryStore()
		rec := Record{Key: "A1_2024-01-01_08:05", RFID: "A1", Date: "2024-01-01", Time: "08:05"}

		require.NoError(t, store.Upsert(ctx, rec))
		first, err := store.Get(ctx, rec.Key)
		require.NoError(t, err)

		// A redelivery with diverging fields must not win over the settled
		// record; only provenance moves.
		tampered := rec
		tampered.RFID = "A2"
		require.NoError(t, store.Upsert(ctx, tampered))

		second, err := store.Get(ctx, rec.Key)
		require.NoError(t, err)
		assert.Equal(t, "A1", second.RFID)
		assert.Equal(t, first.Date, second.Date)
		assert.Equal(t, first.Time, second.Time)
		assert.False(t, second.RecordedAt.Before(first.RecordedAt))
	})

	t.Run("concurrent upserts of one key settle on one record", func(t *testing.T) {
		store := NewInMemoryStore()
		rec := Record{Key: "A1_2024-01-01_08:05", RFID: "A1", Date: "2024-01-01", Time: "08:05"}

		const goroutines = 100
		var wg sync.WaitGroup
		wg.Add(goroutines)
		for range goroutines {
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Upsert(ctx, rec))
			}()
		}
		wg.Wait()

		records, err := store.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestInMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	seed := []Record{
		{Key: "A1_2024-01-02_08:00", RFID: "A1", Date: "2024-01-02", Time: "08:00"},
		{Key: "B2_2024-01-01_09:30", RFID: "B2", Date: "2024-01-01", Time: "09:30"},
		{Key: "A1_2024-01-01_08:00", RFID: "A1", Date: "2024-01-01", Time: "08:00"},
	}
	for _, rec := range seed {
		require.NoError(t, store.Upsert(ctx, rec))
	}

	t.Run("sorted newest scan first", func(t *testing.T) {
		records, err := store.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "A1_2024-01-02_08:00", records[0].Key)
		assert.Equal(t, "B2_2024-01-01_09:30", records[1].Key)
		assert.Equal(t, "A1_2024-01-01_08:00", records[2].Key)
	})

	t.Run("filter by date", func(t *testing.T) {
		records, err := store.List(ctx, Filter{Date: "2024-01-01"})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("filter by rfid", func(t *testing.T) {
		records, err := store.List(ctx, Filter{RFID: "A1"})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("filters compose", func(t *testing.T) {
		records, err := store.List(ctx, Filter{Date: "2024-01-01", RFID: "A1"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "A1_2024-01-01_08:00", records[0].Key)
	})
}
