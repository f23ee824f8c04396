package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tzrikka/slashroute/pkg/session"
	"github.com/tzrikka/slashroute/pkg/trigger"
)

type fakeCommand struct {
	name    string
	started []string
	args    []any
	views   []View
}

func (c *fakeCommand) Name() string { return c.name }

func (c *fakeCommand) InitState() map[string]any { return map[string]any{"n": 0} }

func (c *fakeCommand) Start(_ context.Context, req *Request, text string) error {
	c.started = append(c.started, text)
	req.State["text"] = text
	return req.SetView("main")
}

func (c *fakeCommand) Actions() Actions {
	return Actions{
		"vote": func(_ context.Context, req *Request, args any) error {
			c.args = append(c.args, args)
			req.State["vote"] = args
			return nil
		},
		"fail": func(context.Context, *Request, any) error {
			return errors.New("handler error")
		},
		"nil": nil,
	}
}

func (c *fakeCommand) Views() []View { return c.views }

func newTestRegistry(t *testing.T) (*Registry, *fakeCommand) {
	t.Helper()

	c := &fakeCommand{name: "poll", views: []View{{Name: "main", Template: "{{ .State.text }}"}}}
	r, err := NewRegistry([]Command{c}, View{Name: "results", Modal: true, Template: "title: Results"})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r, c
}

func newSession() *session.Session {
	return &session.Session{ID: "poll-U1", Team: "T1", Command: "poll", Participants: []string{"U1"}, State: map[string]any{"n": 0}}
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		cmds    []Command
		views   []View
		wantErr bool
	}{
		{
			name: "empty",
		},
		{
			name:    "empty_command_name",
			cmds:    []Command{&fakeCommand{}},
			wantErr: true,
		},
		{
			name:    "delimiter_in_command_name",
			cmds:    []Command{&fakeCommand{name: "to-do"}},
			wantErr: true,
		},
		{
			name:    "duplicate_command",
			cmds:    []Command{&fakeCommand{name: "a"}, &fakeCommand{name: "a"}},
			wantErr: true,
		},
		{
			name:    "duplicate_view",
			cmds:    []Command{&fakeCommand{name: "a", views: []View{{Name: "v"}}}},
			views:   []View{{Name: "v"}},
			wantErr: true,
		},
		{
			name:    "unnamed_view",
			views:   []View{{Template: "x"}},
			wantErr: true,
		},
		{
			name:    "invalid_template",
			views:   []View{{Name: "v", Template: "{{ .State"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.cmds, tt.views...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRegistry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	r, _ := newTestRegistry(t)

	tests := []struct {
		name     string
		trigger  trigger.Trigger
		wantKind TargetKind
		wantName string
		wantErr  error
	}{
		{
			name:     "slash",
			trigger:  trigger.Trigger{Kind: trigger.KindSlash, Slash: "poll", Text: "hi"},
			wantKind: TargetStart,
			wantName: "poll",
		},
		{
			name:     "action",
			trigger:  trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", Action: "vote"},
			wantKind: TargetAction,
			wantName: "vote",
		},
		{
			name:     "dialog",
			trigger:  trigger.Trigger{Kind: trigger.KindDialog, Slash: "poll", Action: "vote"},
			wantKind: TargetAction,
			wantName: "vote",
		},
		{
			name:     "view",
			trigger:  trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", View: "results"},
			wantKind: TargetView,
			wantName: "results",
		},
		{
			name:    "unknown_command",
			trigger: trigger.Trigger{Kind: trigger.KindSlash, Slash: "nope"},
			wantErr: ErrUnknownCommand,
		},
		{
			name:    "unknown_action",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", Action: "nope"},
			wantErr: ErrUnknownTarget,
		},
		{
			name:    "unknown_dialog_state",
			trigger: trigger.Trigger{Kind: trigger.KindDialog, Slash: "poll", Action: "nope", Args: map[string]any{}},
			wantErr: ErrUnknownTarget,
		},
		{
			name:    "nil_action",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", Action: "nil"},
			wantErr: ErrUnknownTarget,
		},
		{
			name:    "unknown_view",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", View: "nope"},
			wantErr: ErrUnknownTarget,
		},
		{
			name:    "no_target",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: "poll"},
			wantErr: ErrUnknownTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.trigger)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Resolve() kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Name != tt.wantName {
				t.Errorf("Resolve() name = %q, want %q", got.Name, tt.wantName)
			}
		})
	}
}

func TestUnknownViewDoesNotMutateSession(t *testing.T) {
	r, _ := newTestRegistry(t)
	s := newSession()
	s.CurrentView = "main"
	want := *s

	if _, err := r.Resolve(trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", View: "missing"}); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("Resolve() error = %v, want %v", err, ErrUnknownTarget)
	}
	if !reflect.DeepEqual(*s, want) {
		t.Errorf("session mutated: got %+v, want %+v", *s, want)
	}
}

func TestInvoke(t *testing.T) {
	r, c := newTestRegistry(t)
	ctx := t.Context()

	t.Run("start", func(t *testing.T) {
		s := newSession()
		tr := trigger.Trigger{Kind: trigger.KindSlash, Slash: "poll", Text: "lunch?"}
		target, err := r.Resolve(tr)
		if err != nil {
			t.Fatal(err)
		}
		if err := target.Invoke(ctx, tr, s); err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if s.State["text"] != "lunch?" {
			t.Errorf("state = %v", s.State)
		}
		if s.CurrentView != "main" {
			t.Errorf("current view = %q, want %q", s.CurrentView, "main")
		}
		if !reflect.DeepEqual(c.started, []string{"lunch?"}) {
			t.Errorf("started = %v", c.started)
		}
	})

	t.Run("action", func(t *testing.T) {
		s := newSession()
		tr := trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", Action: "vote", Args: float64(3)}
		target, err := r.Resolve(tr)
		if err != nil {
			t.Fatal(err)
		}
		if err := target.Invoke(ctx, tr, s); err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if s.State["vote"] != float64(3) {
			t.Errorf("state = %v", s.State)
		}
	})

	t.Run("view", func(t *testing.T) {
		s := newSession()
		tr := trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", View: "results"}
		target, err := r.Resolve(tr)
		if err != nil {
			t.Fatal(err)
		}
		if err := target.Invoke(ctx, tr, s); err != nil {
			t.Fatalf("Invoke() error = %v", err)
		}
		if s.CurrentView != "results" {
			t.Errorf("current view = %q, want %q", s.CurrentView, "results")
		}
	})

	t.Run("handler_error", func(t *testing.T) {
		tr := trigger.Trigger{Kind: trigger.KindAction, Slash: "poll", Action: "fail"}
		target, err := r.Resolve(tr)
		if err != nil {
			t.Fatal(err)
		}
		if err := target.Invoke(ctx, tr, newSession()); err == nil {
			t.Error("Invoke() error = nil, want handler error")
		}
	})
}

func TestRequest(t *testing.T) {
	r, _ := newTestRegistry(t)
	s := newSession()
	req := newRequest(trigger.Trigger{}, s, r)

	if err := req.SetView("missing"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("SetView() error = %v, want %v", err, ErrUnknownTarget)
	}
	if s.CurrentView != "" {
		t.Errorf("current view = %q, want none", s.CurrentView)
	}

	if err := req.ConverseWith("U2", "U1", "U2", "U3"); err != nil {
		t.Fatalf("ConverseWith() error = %v", err)
	}
	if got := req.SessionID(); got != "poll-U1-U2-U3" {
		t.Errorf("SessionID() = %q, want %q", got, "poll-U1-U2-U3")
	}
	if got := req.Participants(); !reflect.DeepEqual(got, []string{"U1", "U2", "U3"}) {
		t.Errorf("Participants() = %v", got)
	}

	if err := req.ConverseWith("bad-id"); err == nil {
		t.Error("ConverseWith() error = nil, want delimiter error")
	}

	var v struct {
		Index int
		User  string
	}
	if err := req.Decode(map[string]any{"index": "2", "user": "U2"}, &v); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Index != 2 || v.User != "U2" {
		t.Errorf("Decode() = %+v", v)
	}
}

func TestRender(t *testing.T) {
	r, err := NewRegistry(nil, View{
		Name:     "list",
		Template: `{{ range $i, $item := .State.items }}{{ add $i 1 }}. {{ $item }} {{ end }}{{ mention .User.ID }} {{ json .SessionID }}`,
	})
	if err != nil {
		t.Fatal(err)
	}

	s := newSession()
	s.State["items"] = []any{"a", "b"}
	s.User = &session.Profile{ID: "U1"}

	v, got, err := r.Render("list", NewViewData(s))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if v.Name != "list" {
		t.Errorf("Render() view = %q", v.Name)
	}
	if want := `1. a 2. b <@U1> "poll-U1"`; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	if _, _, err := r.Render("missing", NewViewData(s)); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("Render() error = %v, want %v", err, ErrUnknownTarget)
	}
}

func TestLoadViews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.yaml")
	content := "views:\n  - name: help\n    template: Hello\n  - name: form\n    modal: true\n    template: |\n      title: Form\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := LoadViews(path)
	if err != nil {
		t.Fatalf("LoadViews() error = %v", err)
	}
	want := []View{
		{Name: "help", Template: "Hello"},
		{Name: "form", Modal: true, Template: "title: Form\n"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadViews() = %+v, want %+v", got, want)
	}

	if views, err := LoadViews(""); err != nil || views != nil {
		t.Errorf("LoadViews(\"\") = %v, %v", views, err)
	}
	if _, err := LoadViews(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadViews() error = nil, want file error")
	}
}
