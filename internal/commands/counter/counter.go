// Package counter implements "/counter", a minimal single-party
// stateful slash command with buttons to change a number.
package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tzrikka/slashroute/pkg/command"
)

const (
	Name     = "counter"
	MainView = "counter.main"
)

type Counter struct{}

type state struct {
	Count int `mapstructure:"count"`
}

func New() *Counter {
	return &Counter{}
}

func (c *Counter) Name() string {
	return Name
}

func (c *Counter) InitState() map[string]any {
	return map[string]any{"count": 0}
}

// Start resets the counter, optionally to the number in the command's text.
func (c *Counter) Start(_ context.Context, req *command.Request, text string) error {
	n := 0
	if text = strings.TrimSpace(text); text != "" {
		var err error
		if n, err = strconv.Atoi(text); err != nil {
			return fmt.Errorf("not a number: %q", text)
		}
	}

	req.State["count"] = n
	return req.SetView(MainView)
}

func (c *Counter) Actions() command.Actions {
	return command.Actions{
		"increment": func(_ context.Context, req *command.Request, args any) error {
			return c.add(req, args, 1)
		},
		"decrement": func(_ context.Context, req *command.Request, args any) error {
			return c.add(req, args, -1)
		},
		"reset": func(_ context.Context, req *command.Request, _ any) error {
			req.State["count"] = 0
			return req.SetView(MainView)
		},
	}
}

// add changes the counter by args (default: 1), in the given direction.
func (c *Counter) add(req *command.Request, args any, sign int) error {
	s := new(state)
	if err := req.Decode(req.State, s); err != nil {
		return fmt.Errorf("invalid counter state: %w", err)
	}

	by := 1
	if args != nil {
		if err := req.Decode(args, &by); err != nil {
			return fmt.Errorf("invalid %s argument: %w", Name, err)
		}
	}

	req.State["count"] = s.Count + sign*by
	return req.SetView(MainView)
}

func (c *Counter) Views() []command.View {
	return []command.View{
		{
			Name: MainView,
			Template: `
text: "Count: {{ .State.count }}"
attachments:
  - text: ""
    fallback: "Your Slack client doesn't support buttons"
    actions:
      - {name: decrement, text: "-1", type: button, value: "1"}
      - {name: increment, text: "+1", type: button, value: "1"}
      - {name: increment, text: "+10", type: button, value: "10"}
      - {name: reset, text: "Reset", type: button, style: danger}
`,
		},
	}
}
