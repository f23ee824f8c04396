// Package command defines the capabilities of stateful slash commands,
// and resolves each inbound trigger to exactly one handler target.
package command

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/tzrikka/slashroute/pkg/session"
	"github.com/tzrikka/slashroute/pkg/trigger"
)

var (
	ErrUnknownTarget  = errors.New("target not configured")
	ErrUnknownCommand = fmt.Errorf("%w: unknown command", ErrUnknownTarget)
)

// Command is the capability set of a slash command.
type Command interface {
	// Name is the slash command's name, without the leading "/".
	Name() string
	// InitState returns the initial state of new sessions. It may return nil.
	InitState() map[string]any
	// Start is the entry point of fresh slash command invocations.
	Start(ctx context.Context, req *Request, text string) error
	// Actions maps interactive action names to their handlers.
	Actions() Actions
}

// ViewProvider is optionally implemented by commands which bring their own views.
type ViewProvider interface {
	Views() []View
}

type (
	Actions    map[string]ActionFunc
	ActionFunc func(ctx context.Context, req *Request, args any) error
)

// Request is the mutable context of a single handler invocation.
type Request struct {
	Trigger trigger.Trigger
	State   map[string]any

	session *session.Session
	views   *Registry
}

func newRequest(t trigger.Trigger, s *session.Session, r *Registry) *Request {
	if s.State == nil {
		s.State = map[string]any{}
	}
	return &Request{Trigger: t, State: s.State, session: s, views: r}
}

// User returns the profile of the user who last interacted with the session,
// as of the previous request. It may be nil.
func (r *Request) User() *session.Profile {
	return r.session.User
}

// SessionID is the callback ID that routes interactions back to this session.
func (r *Request) SessionID() string {
	return r.session.ID
}

func (r *Request) Participants() []string {
	return slices.Clone(r.session.Participants)
}

// SetView changes the view which is rendered after the invocation.
func (r *Request) SetView(name string) error {
	if _, ok := r.views.View(name); !ok {
		return fmt.Errorf("%w: view %q", ErrUnknownTarget, name)
	}
	r.session.CurrentView = name
	return nil
}

// ConverseWith turns the session into a multi-party one, with the given
// users in addition to the originator. This changes the session's ID.
func (r *Request) ConverseWith(userIDs ...string) error {
	originator := r.session.Originator()
	participants := []string{originator}
	for _, id := range userIDs {
		if !slices.Contains(participants, id) {
			participants = append(participants, id)
		}
	}

	id, err := session.EncodeID(r.session.Command, originator, participants[1:]...)
	if err != nil {
		return err
	}

	r.session.ID = id
	r.session.Participants = participants
	return nil
}

// Decode converts loosely-typed input, such as action arguments, dialog
// submissions, or the session state, into the struct pointed to by v.
func (r *Request) Decode(input, v any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	return d.Decode(input)
}
