// Package trigger normalizes Slack's [slash command] and [interaction]
// payloads into a single canonical [Trigger] record.
//
// [slash command]: https://docs.slack.dev/interactivity/implementing-slash-commands
// [interaction]: https://docs.slack.dev/legacy/legacy-messaging/legacy-message-buttons
package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/tzrikka/slashroute/pkg/session"
)

var ErrMalformedPayload = errors.New("malformed payload")

type Kind string

const (
	KindSlash  Kind = "slash"
	KindAction Kind = "interactive_message"
	KindDialog Kind = "dialog_submission"
)

// ViewAction is the reserved action name of interactive messages
// which switch the current view of a session, instead of invoking
// an action method of the session's command.
const ViewAction = "view"

// Trigger represents a single inbound event. It is immutable once
// constructed, so it's passed around by value.
type Trigger struct {
	Kind    Kind
	Team    string
	Slash   string
	Channel string
	User    string

	// Text is populated only in fresh slash command invocations.
	Text string

	// Action and Args are populated only in interactive events.
	// View is populated instead of them in view-switch events.
	Action string
	Args   any
	View   string

	// Decoded from the callback ID of interactive events. ConversationWith
	// and SessionID are populated only in multi-party sessions.
	Originator       string
	ConversationWith []string
	SessionID        string

	// For deferred responses.
	ResponseURL string
	TriggerID   string
}

// IsSlash reports whether this is a fresh slash command invocation.
func (t Trigger) IsSlash() bool {
	return t.Kind == KindSlash
}

// FromSlash normalizes a slash command invocation.
func FromSlash(cmd slack.SlashCommand) (Trigger, error) {
	slash := strings.ReplaceAll(cmd.Command, "/", "")
	if slash == "" {
		return Trigger{}, fmt.Errorf("%w: missing command name", ErrMalformedPayload)
	}
	if cmd.TeamID == "" || cmd.UserID == "" {
		return Trigger{}, fmt.Errorf("%w: missing team or user ID", ErrMalformedPayload)
	}

	return Trigger{
		Kind:        KindSlash,
		Team:        cmd.TeamID,
		Slash:       slash,
		Channel:     cmd.ChannelID,
		User:        cmd.UserID,
		Text:        cmd.Text,
		Originator:  cmd.UserID,
		ResponseURL: cmd.ResponseURL,
		TriggerID:   cmd.TriggerID,
	}, nil
}

// FromAction normalizes an interactive message action or a dialog submission.
func FromAction(p Payload) (Trigger, error) {
	slash, originator, with, err := session.DecodeID(p.CallbackID)
	if err != nil {
		return Trigger{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.Team.ID == "" || p.User.ID == "" {
		return Trigger{}, fmt.Errorf("%w: missing team or user ID", ErrMalformedPayload)
	}

	t := Trigger{
		Kind:        Kind(p.Type),
		Team:        p.Team.ID,
		Slash:       slash,
		Channel:     p.Channel.ID,
		User:        p.User.ID,
		Originator:  originator,
		ResponseURL: p.ResponseURL,
		TriggerID:   p.TriggerID,
	}
	if len(with) > 0 {
		t.ConversationWith = with
		t.SessionID = p.CallbackID
	}

	switch t.Kind {
	case KindAction:
		if len(p.Actions) == 0 {
			return Trigger{}, fmt.Errorf("%w: no actions in interactive message", ErrMalformedPayload)
		}
		a := p.Actions[0]
		if a.Name == "" {
			return Trigger{}, fmt.Errorf("%w: missing action name", ErrMalformedPayload)
		}
		if a.Name == ViewAction {
			t.View = a.Value
			return t, nil
		}
		t.Action = a.Name
		t.Args = ParseArgs(a.Value)

	case KindDialog:
		if p.State == "" {
			return Trigger{}, fmt.Errorf("%w: missing dialog state", ErrMalformedPayload)
		}
		t.Action = p.State
		t.Args = p.Submission

	default:
		return Trigger{}, fmt.Errorf("%w: unsupported type %q", ErrMalformedPayload, p.Type)
	}

	return t, nil
}

// ParseArgs returns the decoded value of s if it's valid JSON,
// or s itself otherwise. JSON numbers are decoded as float64.
func ParseArgs(s string) any {
	if !json.Valid([]byte(s)) {
		return s
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
