package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreContract(t *testing.T) {
	RunStoreContract(t, NewMemoryStore())
}

type fakeProfiles struct {
	calls []string
	err   error
}

func (f *fakeProfiles) Profile(_ context.Context, team, userID string) (*Profile, error) {
	f.calls = append(f.calls, team+"/"+userID)
	if f.err != nil {
		return nil, f.err
	}
	return &Profile{ID: userID, Name: "name-" + userID}, nil
}

func TestManagerLoadOrCreate(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewManager(NewMemoryStore(), WithClock(func() time.Time { return now }))

	t.Run("new_single_party", func(t *testing.T) {
		s, err := m.LoadOrCreate(ctx, "T1", "todo", "U1", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "todo-U1", s.ID)
		assert.Equal(t, "T1/todo-U1", s.Key())
		assert.Equal(t, []string{"U1"}, s.Participants)
		assert.Empty(t, s.State)
		assert.NotNil(t, s.State)
		assert.Empty(t, s.CurrentView)
		assert.Nil(t, s.ConversationWith())
		assert.Equal(t, now, s.CreatedAt)
	})

	t.Run("new_multi_party", func(t *testing.T) {
		s, err := m.LoadOrCreate(ctx, "T1", "todo", "U3", "todo-U1-U2-U3", nil)
		require.NoError(t, err)
		assert.Equal(t, "todo-U1-U2-U3", s.ID)
		assert.Equal(t, "U1", s.Originator())
		assert.Equal(t, []string{"U2", "U3"}, s.ConversationWith())
	})

	t.Run("init_state", func(t *testing.T) {
		s, err := m.LoadOrCreate(ctx, "T1", "counter", "U1", "", func() map[string]any {
			return map[string]any{"value": 0}
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"value": 0}, s.State)
	})

	t.Run("malformed_session_id", func(t *testing.T) {
		_, err := m.LoadOrCreate(ctx, "T1", "todo", "U1", "todo", nil)
		assert.ErrorIs(t, err, ErrMalformedID)
	})

	t.Run("persisted_mutation_is_loaded", func(t *testing.T) {
		s, err := m.LoadOrCreate(ctx, "T1", "todo", "U9", "todo-U9-U8", nil)
		require.NoError(t, err)
		s.State["items"] = []any{"milk"}
		s.CurrentView = "list"
		require.NoError(t, m.Persist(ctx, s))

		got, err := m.LoadOrCreate(ctx, "T1", "todo", "U8", "todo-U9-U8", nil)
		require.NoError(t, err)
		assert.Equal(t, []any{"milk"}, got.State["items"])
		assert.Equal(t, "list", got.CurrentView)
	})

	t.Run("sessions_are_scoped_by_team", func(t *testing.T) {
		got, err := m.LoadOrCreate(ctx, "T2", "todo", "U8", "todo-U9-U8", nil)
		require.NoError(t, err)
		assert.Empty(t, got.State)
	})
}

type failingStore struct {
	MemoryStore
	err error
}

func (f *failingStore) Load(context.Context, string) (*Session, error) {
	return nil, f.err
}

func (f *failingStore) Save(context.Context, string, *Session) error {
	return f.err
}

func TestManagerStoreErrors(t *testing.T) {
	storeErr := errors.New("connection refused")
	m := NewManager(&failingStore{err: storeErr})

	_, err := m.LoadOrCreate(t.Context(), "T1", "todo", "U1", "", nil)
	assert.ErrorIs(t, err, storeErr)

	err = m.Persist(t.Context(), &Session{ID: "todo-U1", Team: "T1"})
	assert.ErrorIs(t, err, storeErr)
}

func TestManagerSetUser(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := &Session{Team: "T1"}
		require.NoError(t, NewManager(NewMemoryStore()).SetUser(t.Context(), s, "U1"))
		assert.Nil(t, s.User)
	})

	t.Run("enabled", func(t *testing.T) {
		f := &fakeProfiles{}
		s := &Session{Team: "T1"}
		m := NewManager(NewMemoryStore(), WithProfiles(f))
		require.NoError(t, m.SetUser(t.Context(), s, "U1"))
		assert.Equal(t, []string{"T1/U1"}, f.calls)
		assert.Equal(t, "name-U1", s.User.Name)
	})

	t.Run("error", func(t *testing.T) {
		f := &fakeProfiles{err: errors.New("user_not_found")}
		s := &Session{Team: "T1"}
		m := NewManager(NewMemoryStore(), WithProfiles(f))
		assert.Error(t, m.SetUser(t.Context(), s, "U1"))
		assert.Nil(t, s.User)
	})
}
