// Package install persists the bot tokens of Slack teams (workspaces)
// which installed the app via OAuth, in a local SQLite database.
package install

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tzrikka/slashroute/pkg/slack"
)

var ErrNotInstalled = errors.New("team not installed")

// Store implements [slack.TokenSource].
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return newStore(db)
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	// Each connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS installations (
    team TEXT PRIMARY KEY,
    team_name TEXT NOT NULL DEFAULT '',
    token TEXT NOT NULL,
    bot_user_id TEXT NOT NULL DEFAULT '',
    scope TEXT NOT NULL DEFAULT '',
    response TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
`

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the installation of a team. Reinstalling the
// app (e.g. with different scopes) keeps the original creation time.
func (s *Store) Save(ctx context.Context, in *slack.Installation) error {
	resp := []byte("{}")
	if in.Response != nil {
		var err error
		if resp, err = json.Marshal(in.Response); err != nil {
			return fmt.Errorf("failed to serialize OAuth response: %w", err)
		}
	}

	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO installations (team, team_name, token, bot_user_id, scope, response, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(team) DO UPDATE SET
    team_name = excluded.team_name,
    token = excluded.token,
    bot_user_id = excluded.bot_user_id,
    scope = excluded.scope,
    response = excluded.response,
    updated_at = excluded.updated_at`,
		in.Team, in.TeamName, in.Token, in.BotUserID, in.Scope, string(resp), now, now)
	if err != nil {
		return fmt.Errorf("failed to save installation of %q: %w", in.Team, err)
	}
	return nil
}

// Token returns the bot token of an installed team.
func (s *Store) Token(ctx context.Context, team string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, "SELECT token FROM installations WHERE team = ?", team).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotInstalled
	}
	if err != nil {
		return "", fmt.Errorf("failed to read installation of %q: %w", team, err)
	}
	return token, nil
}

// Teams lists the IDs of all the installed teams, in lexicographic order.
func (s *Store) Teams(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT team FROM installations ORDER BY team")
	if err != nil {
		return nil, fmt.Errorf("failed to list installations: %w", err)
	}
	defer rows.Close()

	var teams []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to list installations: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// Delete removes the installation of a team, e.g. when the app is uninstalled.
func (s *Store) Delete(ctx context.Context, team string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM installations WHERE team = ?", team); err != nil {
		return fmt.Errorf("failed to delete installation of %q: %w", team, err)
	}
	return nil
}
