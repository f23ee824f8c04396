package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ProfileFetcher retrieves user profiles from the chat platform.
type ProfileFetcher interface {
	Profile(ctx context.Context, team, userID string) (*Profile, error)
}

// Manager loads, creates, enriches, and persists sessions. It does not
// lock or cache them: concurrent requests for the same session race,
// and the last one to be persisted wins.
type Manager struct {
	store    Store
	profiles ProfileFetcher
	now      func() time.Time
}

type Option func(*Manager)

// WithProfiles enables user profile enrichment in [Manager.SetUser].
func WithProfiles(f ProfileFetcher) Option {
	return func(m *Manager) {
		m.profiles = f
	}
}

// WithClock overrides the time source of session timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadOrCreate returns the persisted session that the given request addresses.
// Multi-party sessions are addressed by their session ID, single-party ones by
// the slash command name and the ID of the user who triggered the request.
//
// If the session doesn't exist yet, this function initializes a new one, with
// the state returned by init (which may be nil), but doesn't persist it.
func (m *Manager) LoadOrCreate(ctx context.Context, team, slash, userID, sessionID string, init func() map[string]any) (*Session, error) {
	participants := []string{userID}
	id := sessionID
	if id == "" {
		var err error
		if id, err = EncodeID(slash, userID); err != nil {
			return nil, err
		}
	} else {
		_, originator, with, err := DecodeID(id)
		if err != nil {
			return nil, err
		}
		participants = append([]string{originator}, with...)
	}

	s, err := m.store.Load(ctx, Key(team, id))
	if err == nil {
		if s.State == nil {
			s.State = map[string]any{}
		}
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load session %q: %w", id, err)
	}

	zerolog.Ctx(ctx).Debug().Str("session_id", id).Msg("initializing new session")

	var state map[string]any
	if init != nil {
		state = init()
	}
	if state == nil {
		state = map[string]any{}
	}

	now := m.now().UTC()
	return &Session{
		ID:           id,
		Team:         team,
		Command:      slash,
		Participants: participants,
		State:        state,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Persist saves the session. It is called exactly once per request, after the
// handler invocation completes, whether or not the handler succeeded.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	s.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, s.Key(), s); err != nil {
		return fmt.Errorf("failed to persist session %q: %w", s.ID, err)
	}
	return nil
}

// SetUser enriches the session with the profile of the given Slack user.
// This is a no-op if the manager was created without a [ProfileFetcher].
func (m *Manager) SetUser(ctx context.Context, s *Session, userID string) error {
	if m.profiles == nil {
		return nil
	}

	p, err := m.profiles.Profile(ctx, s.Team, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch profile of user %q: %w", userID, err)
	}

	s.User = p
	return nil
}
