package http

import (
	"fmt"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/slashroute/pkg/deferred"
)

const (
	DefaultWebhookPort  = 14480
	DefaultSessionStore = "memory"
)

// Flags defines CLI flags to configure the HTTP server and its backends. These flags can
// also be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "webhook-port",
			Usage: "local port number for Slack webhooks",
			Value: DefaultWebhookPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WEBHOOK_PORT"),
				toml.TOML("http.webhook_port", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "session-store",
			Usage: `session storage backend: "memory", "redis", or "etcd"`,
			Value: DefaultSessionStore,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SESSION_STORE"),
				toml.TOML("sessions.store", configFilePath),
			),
			Validator: func(s string) error {
				switch s {
				case "memory", "redis", "etcd":
					return nil
				default:
					return fmt.Errorf("invalid session store: %q", s)
				}
			},
		},
		&cli.DurationFlag{
			Name:  "session-ttl",
			Usage: "expiration of idle sessions in Redis or etcd (0 = never)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SESSION_TTL"),
				toml.TOML("sessions.ttl", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "install-db",
			Usage: "path to the SQLite database of OAuth installations (default: in-memory)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("INSTALL_DB"),
				toml.TOML("slack.install_db", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "views-file",
			Usage: "path to a YAML file with additional view templates",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VIEWS_FILE"),
				toml.TOML("views.file", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "deferred-concurrency",
			Usage: "maximum number of concurrent post-response tasks",
			Value: deferred.DefaultConcurrency,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DEFERRED_CONCURRENCY"),
				toml.TOML("deferred.concurrency", configFilePath),
			),
		},
		&cli.DurationFlag{
			Name:  "deferred-timeout",
			Usage: "timeout of each post-response task",
			Value: deferred.DefaultTimeout,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DEFERRED_TIMEOUT"),
				toml.TOML("deferred.timeout", configFilePath),
			),
		},
	}
}
