// Package todo implements "/todo", a stateful slash command which manages
// a to-do list. Lists can be shared with other users, turning them into
// multi-party sessions, and items can be assigned via a dialog.
//
// Usage:
//
//	/todo                      show the list
//	/todo buy milk             add an item
//	/todo share @alice @bob    share the list with other users
package todo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tzrikka/slashroute/pkg/command"
)

const (
	Name       = "todo"
	ListView   = "todo.list"
	AssignView = "todo.assign"

	// Dialog state of the assignment dialog, which is also
	// the name of the action that handles its submission.
	assignedAction = "assigned"
)

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(\|[^>]*)?>`)

type Todo struct{}

type item struct {
	Text     string `mapstructure:"text"`
	Done     bool   `mapstructure:"done"`
	Assignee string `mapstructure:"assignee"`
}

type state struct {
	Items []item `mapstructure:"items"`
}

type assignment struct {
	Item int    `mapstructure:"item"`
	Who  string `mapstructure:"who"`
}

func New() *Todo {
	return &Todo{}
}

func (t *Todo) Name() string {
	return Name
}

func (t *Todo) InitState() map[string]any {
	return map[string]any{"items": []any{}}
}

func (t *Todo) Start(_ context.Context, req *command.Request, text string) error {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return req.SetView(ListView)

	case text == "share" || strings.HasPrefix(text, "share "):
		var users []string
		for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
			users = append(users, m[1])
		}
		if len(users) == 0 {
			return errors.New("usage: /todo share @user [@user...]")
		}
		if err := req.ConverseWith(users...); err != nil {
			return err
		}
		return req.SetView(ListView)

	default:
		return t.update(req, func(s *state) error {
			s.Items = append(s.Items, item{Text: text})
			return nil
		})
	}
}

func (t *Todo) Actions() command.Actions {
	return command.Actions{
		"add": func(_ context.Context, req *command.Request, args any) error {
			text, ok := args.(string)
			if !ok || strings.TrimSpace(text) == "" {
				return fmt.Errorf("invalid item text: %v", args)
			}
			return t.update(req, func(s *state) error {
				s.Items = append(s.Items, item{Text: strings.TrimSpace(text)})
				return nil
			})
		},
		"toggle": func(_ context.Context, req *command.Request, args any) error {
			return t.update(req, func(s *state) error {
				i, err := index(req, s, args)
				if err != nil {
					return err
				}
				s.Items[i].Done = !s.Items[i].Done
				return nil
			})
		},
		"remove": func(_ context.Context, req *command.Request, args any) error {
			return t.update(req, func(s *state) error {
				i, err := index(req, s, args)
				if err != nil {
					return err
				}
				s.Items = append(s.Items[:i], s.Items[i+1:]...)
				return nil
			})
		},
		assignedAction: func(_ context.Context, req *command.Request, args any) error {
			a := new(assignment)
			if err := req.Decode(args, a); err != nil {
				return fmt.Errorf("invalid dialog submission: %w", err)
			}
			return t.update(req, func(s *state) error {
				// Item numbers in the dialog are 1-based.
				i, err := index(req, s, a.Item-1)
				if err != nil {
					return err
				}
				s.Items[i].Assignee = strings.TrimPrefix(strings.TrimSpace(a.Who), "@")
				return nil
			})
		},
	}
}

// update applies f to the session's state, and switches back to the list view.
func (t *Todo) update(req *command.Request, f func(*state) error) error {
	s := new(state)
	if err := req.Decode(req.State, s); err != nil {
		return fmt.Errorf("invalid to-do state: %w", err)
	}

	if err := f(s); err != nil {
		return err
	}

	items := make([]any, 0, len(s.Items))
	for _, i := range s.Items {
		items = append(items, map[string]any{"text": i.Text, "done": i.Done, "assignee": i.Assignee})
	}
	req.State["items"] = items

	return req.SetView(ListView)
}

func index(req *command.Request, s *state, args any) (int, error) {
	i := -1
	if err := req.Decode(args, &i); err != nil {
		return 0, fmt.Errorf("invalid item index: %w", err)
	}
	if i < 0 || i >= len(s.Items) {
		return 0, fmt.Errorf("item index out of range: %d", i)
	}
	return i, nil
}

func (t *Todo) Views() []command.View {
	return []command.View{
		{
			Name: ListView,
			Template: `
text: {{ json (printf "*To-do list of* %s" (mention (index .Participants 0))) }}
attachments:
{{- range $i, $it := .State.items }}
  - text: {{ if $it.done }}{{ json (printf "~%s~" $it.text) }}{{ else }}{{ json $it.text }}{{ end }}
    footer: {{ with $it.assignee }}{{ json (printf "Assigned to <@%s>" .) }}{{ else }}""{{ end }}
    actions:
      - {name: toggle, text: {{ if $it.done }}"Undo"{{ else }}"Done"{{ end }}, type: button, value: "{{ $i }}"}
      - {name: remove, text: "Remove", type: button, value: "{{ $i }}", style: danger}
{{- end }}
  - text: {{ if gt (len .Participants) 1 }}{{ json (printf "Shared by %d users" (len .Participants)) }}{{ else }}""{{ end }}
    actions:
      - {name: view, text: "Assign...", type: button, value: "` + AssignView + `"}
`,
		},
		{
			Name:  AssignView,
			Modal: true,
			Template: `
title: Assign an item
submit_label: Assign
state: ` + assignedAction + `
elements:
  - name: item
    label: Item number
    placeholder: "1"
  - name: who
    label: User ID
    placeholder: {{ json (index .Participants 0) }}
`,
		},
	}
}
