package slack

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultScopes = "chat:write,commands"
)

// Flags defines CLI flags to configure the Slack app. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "slack-signing-secret",
			Usage: "Slack app's signing secret, to verify inbound requests",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_SIGNING_SECRET"),
				toml.TOML("slack.signing_secret", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-verification-token",
			Usage: "deprecated alternative to the signing secret",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_VERIFICATION_TOKEN"),
				toml.TOML("slack.verification_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-bot-token",
			Usage: "bot token for teams that weren't installed via OAuth",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_BOT_TOKEN"),
				toml.TOML("slack.bot_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-client-id",
			Usage: "Slack app's OAuth client ID",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_CLIENT_ID"),
				toml.TOML("slack.client_id", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-client-secret",
			Usage: "Slack app's OAuth client secret",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_CLIENT_SECRET"),
				toml.TOML("slack.client_secret", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-oauth-scopes",
			Usage: "comma-separated bot scopes to request when installing the app",
			Value: DefaultScopes,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_OAUTH_SCOPES"),
				toml.TOML("slack.oauth_scopes", configFilePath),
			),
		},
		&cli.BoolFlag{
			Name:  "slack-fetch-profiles",
			Usage: "enrich sessions with the profiles of interacting users",
			Value: true,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_FETCH_PROFILES"),
				toml.TOML("slack.fetch_profiles", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-api-url",
			Usage: "override the base URL of the Slack Web API",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_API_URL"),
				toml.TOML("slack.api_url", configFilePath),
			),
		},
	}
}
