// Package session addresses and persists the state of multi-turn,
// possibly multi-party, slash command conversations.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Store persists sessions under opaque keys. Implementations must not
// share [Session] values between calls: [Store.Load] returns a fresh copy.
type Store interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s *Session) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// Session is the persisted state of a single conversation with a slash command.
type Session struct {
	ID      string `json:"id"`
	Team    string `json:"team"`
	Command string `json:"command"`

	// The first participant is always the originator of the session.
	Participants []string `json:"participants"`

	State       map[string]any `json:"state"`
	CurrentView string         `json:"current_view,omitempty"`
	User        *Profile       `json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is a subset of a Slack user's profile.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
	Email    string `json:"email,omitempty"`
	TZ       string `json:"tz,omitempty"`
	Image    string `json:"image,omitempty"`
}

func (s *Session) Originator() string {
	if len(s.Participants) == 0 {
		return ""
	}
	return s.Participants[0]
}

// ConversationWith returns the participants other than the originator,
// or nil in a single-party session.
func (s *Session) ConversationWith() []string {
	if len(s.Participants) < 2 {
		return nil
	}
	return s.Participants[1:]
}

// Key returns the storage key of the session, which is scoped to its team.
func (s *Session) Key() string {
	return Key(s.Team, s.ID)
}

// Key scopes a session ID to a Slack team (workspace).
func Key(team, id string) string {
	return team + "/" + id
}
