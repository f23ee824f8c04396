package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzrikka/slashroute/pkg/command"
	"github.com/tzrikka/slashroute/pkg/session"
	"github.com/tzrikka/slashroute/pkg/trigger"
)

func TestCounter(t *testing.T) {
	r, err := command.NewRegistry([]command.Command{New()})
	require.NoError(t, err)

	store := session.NewMemoryStore()
	m := session.NewManager(store)

	steps := []struct {
		name    string
		trigger trigger.Trigger
		want    string
		wantErr bool
	}{
		{
			name:    "start",
			trigger: trigger.Trigger{Kind: trigger.KindSlash, Slash: Name, Text: "5"},
			want:    "Count: 5",
		},
		{
			name:    "increment",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: Name, Action: "increment", Args: trigger.ParseArgs("10")},
			want:    "Count: 15",
		},
		{
			name:    "decrement",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: Name, Action: "decrement", Args: trigger.ParseArgs("1")},
			want:    "Count: 14",
		},
		{
			name:    "increment_without_args",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: Name, Action: "increment"},
			want:    "Count: 15",
		},
		{
			name:    "invalid_args",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: Name, Action: "increment", Args: trigger.ParseArgs("many")},
			wantErr: true,
		},
		{
			name:    "reset",
			trigger: trigger.Trigger{Kind: trigger.KindAction, Slash: Name, Action: "reset", Args: ""},
			want:    "Count: 0",
		},
		{
			name:    "restart_with_bad_text",
			trigger: trigger.Trigger{Kind: trigger.KindSlash, Slash: Name, Text: "five"},
			wantErr: true,
		},
	}

	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			tt.trigger.Team = "T1"
			tt.trigger.User = "U1"
			tt.trigger.Originator = "U1"

			target, err := r.Resolve(tt.trigger)
			require.NoError(t, err)

			s, err := m.LoadOrCreate(t.Context(), "T1", Name, "U1", "", New().InitState)
			require.NoError(t, err)

			err = target.Invoke(t.Context(), tt.trigger, s)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, m.Persist(t.Context(), s))

			// Render what the next request would see.
			s, err = m.LoadOrCreate(t.Context(), "T1", Name, "U1", "", nil)
			require.NoError(t, err)
			assert.Equal(t, MainView, s.CurrentView)

			_, body, err := r.Render(s.CurrentView, command.NewViewData(s))
			require.NoError(t, err)
			assert.Contains(t, body, tt.want)
		})
	}
}
