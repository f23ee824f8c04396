package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/tzrikka/slashroute/pkg/session"
	"github.com/tzrikka/slashroute/pkg/trigger"
)

// Registry holds the configured commands and views. It is
// constructed once, at startup, and is read-only afterwards.
type Registry struct {
	commands map[string]Command
	views    map[string]View
	tmpls    map[string]*template.Template
}

// NewRegistry validates and indexes the given commands and views,
// including the views that commands provide via [ViewProvider].
func NewRegistry(cmds []Command, views ...View) (*Registry, error) {
	r := &Registry{
		commands: make(map[string]Command, len(cmds)),
		views:    make(map[string]View, len(views)),
		tmpls:    make(map[string]*template.Template, len(views)),
	}

	for _, c := range cmds {
		name := c.Name()
		if name == "" || strings.ContainsAny(name, session.Delimiter+"/ ") {
			return nil, fmt.Errorf("invalid command name %q", name)
		}
		if _, ok := r.commands[name]; ok {
			return nil, fmt.Errorf("duplicate command %q", name)
		}
		r.commands[name] = c

		if vp, ok := c.(ViewProvider); ok {
			views = append(views, vp.Views()...)
		}
	}

	for _, v := range views {
		if err := r.addView(v); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) addView(v View) error {
	if v.Name == "" {
		return errors.New("view without a name")
	}
	if _, ok := r.views[v.Name]; ok {
		return fmt.Errorf("duplicate view %q", v.Name)
	}

	t, err := template.New(v.Name).Funcs(templateFuncs).Option("missingkey=zero").Parse(v.Template)
	if err != nil {
		return fmt.Errorf("invalid template in view %q: %w", v.Name, err)
	}

	r.views[v.Name] = v
	r.tmpls[v.Name] = t
	return nil
}

func (r *Registry) Command(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

func (r *Registry) View(name string) (View, bool) {
	v, ok := r.views[name]
	return v, ok
}

type TargetKind int

const (
	TargetStart TargetKind = iota
	TargetAction
	TargetView
)

func (k TargetKind) String() string {
	switch k {
	case TargetStart:
		return "start"
	case TargetAction:
		return "action"
	case TargetView:
		return "view"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Target is the resolved destination of a trigger.
type Target struct {
	Kind    TargetKind
	Name    string
	Command Command

	action ActionFunc
	views  *Registry
}

// Resolve determines which handler target the trigger addresses. It fails
// closed, with [ErrUnknownTarget], if the command, the action, or the view
// isn't configured. Resolution has no side effects.
func (r *Registry) Resolve(t trigger.Trigger) (Target, error) {
	c, ok := r.commands[t.Slash]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownCommand, t.Slash)
	}

	switch {
	case t.View != "":
		if _, ok := r.views[t.View]; !ok {
			return Target{}, fmt.Errorf("%w: view %q is not configured on this server", ErrUnknownTarget, t.View)
		}
		return Target{Kind: TargetView, Name: t.View, Command: c, views: r}, nil

	case t.Action != "":
		f, ok := c.Actions()[t.Action]
		if !ok || f == nil {
			return Target{}, fmt.Errorf("%w: action %q is not configured on the command %q", ErrUnknownTarget, t.Action, t.Slash)
		}
		return Target{Kind: TargetAction, Name: t.Action, Command: c, action: f, views: r}, nil

	case t.IsSlash():
		return Target{Kind: TargetStart, Name: c.Name(), Command: c, views: r}, nil

	default:
		return Target{}, fmt.Errorf("%w: trigger without an action or a view", ErrUnknownTarget)
	}
}

// Invoke runs the target with the session's state as mutable context. State
// changes become visible to other requests only after the session is persisted.
func (t Target) Invoke(ctx context.Context, tr trigger.Trigger, s *session.Session) error {
	switch t.Kind {
	case TargetView:
		s.CurrentView = t.Name
		return nil
	case TargetAction:
		return t.action(ctx, newRequest(tr, s, t.views), tr.Args)
	case TargetStart:
		return t.Command.Start(ctx, newRequest(tr, s, t.views), tr.Text)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTarget, t.Kind)
	}
}
