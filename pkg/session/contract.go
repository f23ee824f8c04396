package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract verifies that a [Store] implementation
// adheres to the behavior that the [Manager] relies on.
func RunStoreContract(t *testing.T, store Store) {
	t.Helper()

	ctx := context.Background()
	key := Key("T1", "contract-"+time.Now().Format("20060102150405"))

	t.Run("load_non_existent", func(t *testing.T) {
		_, err := store.Load(ctx, key+"-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save_and_load", func(t *testing.T) {
		s := &Session{
			ID:           "todo-U1-U2",
			Team:         "T1",
			Command:      "todo",
			Participants: []string{"U1", "U2"},
			State:        map[string]any{"foo": "bar", "count": 42},
			CurrentView:  "list",
			User:         &Profile{ID: "U1", Name: "alice"},
		}
		require.NoError(t, store.Save(ctx, key, s))

		got, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, s.Participants, got.Participants)
		assert.Equal(t, "bar", got.State["foo"])
		assert.InDelta(t, 42, got.State["count"], 0) // JSON numbers come back as float64.
		assert.Equal(t, "list", got.CurrentView)
		assert.Equal(t, "alice", got.User.Name)
	})

	t.Run("loaded_copies_are_independent", func(t *testing.T) {
		s1, err := store.Load(ctx, key)
		require.NoError(t, err)
		s1.State["foo"] = "changed"

		s2, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "bar", s2.State["foo"])
	})

	t.Run("last_save_wins", func(t *testing.T) {
		s := &Session{ID: "todo-U1", Team: "T1", State: map[string]any{"n": 1}}
		require.NoError(t, store.Save(ctx, key, s))
		s.State["n"] = 2
		require.NoError(t, store.Save(ctx, key, s))

		got, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.InDelta(t, 2, got.State["n"], 0)
	})

	t.Run("list", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, store.Save(ctx, k1, &Session{ID: "a-U1"}))
		require.NoError(t, store.Save(ctx, k2, &Session{ID: "b-U1"}))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
