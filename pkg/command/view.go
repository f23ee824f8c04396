package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/tzrikka/slashroute/pkg/session"
)

// View is a named template, rendered either inline (as a message)
// or as a modal (dialog). Templates render YAML or JSON documents.
// Inline templates may also render plain text.
type View struct {
	Name     string `yaml:"name"`
	Modal    bool   `yaml:"modal"`
	Template string `yaml:"template"`
}

// ViewData is the data that view templates are executed with.
type ViewData struct {
	SessionID    string
	Command      string
	Participants []string
	State        map[string]any
	User         *session.Profile
}

func NewViewData(s *session.Session) ViewData {
	return ViewData{
		SessionID:    s.ID,
		Command:      s.Command,
		Participants: s.Participants,
		State:        s.State,
		User:         s.User,
	}
}

// State values are float64 after a JSON round-trip, so arithmetic
// functions accept any numeric type.
var templateFuncs = template.FuncMap{
	"add": func(a, b any) (float64, error) {
		x, err := toFloat(a)
		if err != nil {
			return 0, err
		}
		y, err := toFloat(b)
		return x + y, err
	},
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"mention": func(userID string) string { return "<@" + userID + ">" },
}

// Render executes the template of the given view.
func (r *Registry) Render(name string, data ViewData) (View, string, error) {
	v, ok := r.views[name]
	if !ok {
		return View{}, "", fmt.Errorf("%w: view %q", ErrUnknownTarget, name)
	}

	buf := new(bytes.Buffer)
	if err := r.tmpls[name].Execute(buf, data); err != nil {
		return View{}, "", fmt.Errorf("failed to render view %q: %w", name, err)
	}

	return v, strings.TrimSpace(buf.String()), nil
}

type viewsFile struct {
	Views []View `yaml:"views"`
}

// LoadViews reads view definitions from a YAML file. An empty path means none.
func LoadViews(path string) ([]View, error) {
	if path == "" {
		return nil, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read views file: %w", err)
	}

	f := new(viewsFile)
	if err := yaml.Unmarshal(b, f); err != nil {
		return nil, fmt.Errorf("failed to parse views file %q: %w", path, err)
	}
	return f.Views, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("not a number: %v (%T)", v, v)
	}
}
