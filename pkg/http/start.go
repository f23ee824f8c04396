package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/slashroute/pkg/command"
	"github.com/tzrikka/slashroute/pkg/deferred"
	"github.com/tzrikka/slashroute/pkg/install"
	"github.com/tzrikka/slashroute/pkg/metrics"
	"github.com/tzrikka/slashroute/pkg/session"
	"github.com/tzrikka/slashroute/pkg/session/etcd"
	"github.com/tzrikka/slashroute/pkg/session/redis"
	"github.com/tzrikka/slashroute/pkg/slack"
	"github.com/tzrikka/slashroute/pkg/thrippy"
)

// Start returns the CLI action which initializes the server's logging,
// backend clients, and command registry, and runs its HTTP server.
func Start(cmds ...command.Command) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		initLog(cmd.Bool("dev"))
		ctx = log.Logger.WithContext(ctx)

		secrets, err := slackSecrets(ctx, cmd)
		if err != nil {
			return err
		}

		views, err := command.LoadViews(cmd.String("views-file"))
		if err != nil {
			return err
		}
		registry, err := command.NewRegistry(cmds, views...)
		if err != nil {
			return err
		}

		store, closeStore, err := sessionStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		installs, err := openInstalls(cmd.String("install-db"))
		if err != nil {
			return err
		}
		defer installs.Close()

		m := metrics.New()
		client := slack.NewClient(
			slack.FallbackTokens{installs, slack.StaticToken(secrets.BotToken)},
			slack.WithAPIURL(cmd.String("slack-api-url")),
		)

		var opts []session.Option
		if cmd.Bool("slack-fetch-profiles") {
			opts = append(opts, session.WithProfiles(client))
		}

		scheduler := deferred.New(
			deferred.WithConcurrency(cmd.Int("deferred-concurrency")),
			deferred.WithTimeout(cmd.Duration("deferred-timeout")),
			deferred.WithErrorHandler(func(e *deferred.TaskError) {
				m.DeferredFailures.WithLabelValues(e.Name).Inc()
			}),
		)

		if secrets.SigningSecret == "" && secrets.VerificationToken == "" {
			log.Warn().Msg("neither a Slack signing secret nor a verification token is configured, all Slack requests will be rejected")
		}

		s := &httpServer{
			httpPort:  cmd.Int("webhook-port"),
			scheduler: scheduler,
			handler: NewHandler(Config{
				Registry:          registry,
				Sessions:          session.NewManager(store, opts...),
				Scheduler:         scheduler,
				Presenter:         client,
				Metrics:           m,
				SigningSecret:     secrets.SigningSecret,
				VerificationToken: secrets.VerificationToken,
				Installer:         client,
				Installations:     installs,
				ClientID:          secrets.ClientID,
				ClientSecret:      secrets.ClientSecret,
				Scopes:            cmd.String("slack-oauth-scopes"),
			}),
		}

		return s.run(ctx)
	}
}

// initLog initializes the logger for the server,
// based on whether it's running in development mode or not.
func initLog(devMode bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if !devMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.000",
	}).With().Caller().Logger()

	log.Warn().Msg("********** DEV MODE - UNSAFE IN PRODUCTION! **********")
}

type secrets struct {
	thrippy.SlackSecrets
	VerificationToken string
}

// slackSecrets reads the Slack app's credentials from CLI flags, with
// a fallback to the secrets of a Thrippy link, if one is configured.
func slackSecrets(ctx context.Context, cmd *cli.Command) (secrets, error) {
	s := secrets{
		SlackSecrets: thrippy.SlackSecrets{
			SigningSecret: cmd.String("slack-signing-secret"),
			BotToken:      cmd.String("slack-bot-token"),
			ClientID:      cmd.String("slack-client-id"),
			ClientSecret:  cmd.String("slack-client-secret"),
		},
		VerificationToken: cmd.String("slack-verification-token"),
	}

	linkID := cmd.String("thrippy-link-id")
	if linkID == "" {
		return s, nil
	}

	m, err := thrippy.LinkSecrets(ctx, cmd.String("thrippy-server-addr"), thrippy.SecureCreds(cmd), linkID)
	if err != nil {
		return s, fmt.Errorf("failed to read Slack secrets from Thrippy: %w", err)
	}
	if m == nil {
		return s, fmt.Errorf("thrippy link not found: %s", linkID)
	}

	return mergeSecrets(s, thrippy.Slack(m)), nil
}

// mergeSecrets fills secrets which weren't set explicitly with Thrippy's.
func mergeSecrets(s secrets, t thrippy.SlackSecrets) secrets {
	if s.SigningSecret == "" {
		s.SigningSecret = t.SigningSecret
	}
	if s.BotToken == "" {
		s.BotToken = t.BotToken
	}
	if s.ClientID == "" {
		s.ClientID = t.ClientID
	}
	if s.ClientSecret == "" {
		s.ClientSecret = t.ClientSecret
	}
	return s
}

// sessionStore initializes the configured session storage backend.
// The returned function releases its resources, if any.
func sessionStore(cmd *cli.Command) (session.Store, func(), error) {
	ttl := cmd.Duration("session-ttl")

	switch name := cmd.String("session-store"); name {
	case "", "memory":
		if ttl > 0 {
			log.Warn().Msg("session TTL is ignored by the in-memory session store")
		}
		return session.NewMemoryStore(), func() {}, nil

	case "redis":
		s := redis.New(cmd.String("redis-addr"), cmd.String("redis-password"), cmd.Int("redis-db"),
			redis.WithPrefix(cmd.String("redis-key-prefix")), redis.WithTTL(ttl))
		return s, closer(s, "Redis"), nil

	case "etcd":
		c, err := etcd.Dial(cmd.StringSlice("etcd-endpoint-urls"))
		if err != nil {
			return nil, nil, err
		}
		opts := []etcd.Option{etcd.WithPrefix(cmd.String("etcd-key-prefix"))}
		if ttl > 0 {
			opts = append(opts, etcd.WithTTL(c, ttl))
		}
		return etcd.New(c, opts...), closer(c, "etcd"), nil

	default:
		return nil, nil, errors.New("unsupported session store: " + name)
	}
}

func closer(c io.Closer, name string) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msgf("failed to close %s client", name)
		}
	}
}

// openInstalls opens the database of OAuth installations, in memory if no path is configured.
func openInstalls(path string) (*install.Store, error) {
	if path == "" {
		return install.OpenMemory()
	}
	return install.Open(path)
}
