//go:build integration

package students_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"tapsync/internal/students"
	"tapsync/pkg/sentinel"
	"tapsync/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	store := students.NewPostgresStore(pg.Pool)
	require.NoError(t, store.EnsureSchema(ctx))

	t.Run("get unknown rfid", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("create if absent never overwrites", func(t *testing.T) {
		created, err := store.CreateIfAbsent(ctx, students.Placeholder("A1"))
		require.NoError(t, err)
		assert.True(t, created)

		require.NoError(t, store.Put(ctx, students.Student{
			RFID: "A1", Name: "Ana Cruz", FirstName: "Ana", LastName: "Cruz",
		}))

		created, err = store.CreateIfAbsent(ctx, students.Placeholder("A1"))
		require.NoError(t, err)
		assert.False(t, created, "existing registration must win")

		got, err := store.Get(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, "Ana Cruz", got.Name)
	})

	t.Run("concurrent creates resolve to one winner", func(t *testing.T) {
		var g errgroup.Group
		results := make(chan bool, 20)
		for range 20 {
			g.Go(func() error {
				created, err := store.CreateIfAbsent(ctx, students.Placeholder("B2"))
				if err != nil {
					return err
				}
				results <- created
				return nil
			})
		}
		require.NoError(t, g.Wait())
		close(results)

		var wins int
		for created := range results {
			if created {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("put updates all name fields", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, students.Student{
			RFID: "B2", Name: "Ben Santos Reyes", FirstName: "Ben", MiddleName: "Santos", LastName: "Reyes",
		}))

		got, err := store.Get(ctx, "B2")
		require.NoError(t, err)
		assert.Equal(t, "Santos", got.MiddleName)
		assert.True(t, got.Registered())
	})

	t.Run("list orders by rfid", func(t *testing.T) {
		roster, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, roster, 2)
		assert.Equal(t, "A1", roster[0].RFID)
	})
}
