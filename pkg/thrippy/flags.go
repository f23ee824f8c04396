package thrippy

import (
	"crypto/tls"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	DefaultServerAddr = "localhost:14460"
)

// Flags defines CLI flags to configure a Thrippy gRPC client. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "thrippy-server-addr",
			Usage: "Thrippy gRPC server address",
			Value: DefaultServerAddr,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("THRIPPY_SERVER_ADDR"),
				toml.TOML("thrippy.server_addr", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "thrippy-link-id",
			Usage: "Thrippy link ID of the Slack app's secrets (optional)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("THRIPPY_LINK_ID"),
				toml.TOML("thrippy.link_id", configFilePath),
			),
		},
		&cli.BoolFlag{
			Name:  "thrippy-insecure",
			Usage: "use insecure gRPC connection, without TLS",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("THRIPPY_INSECURE"),
				toml.TOML("thrippy.insecure", configFilePath),
			),
		},
	}
}

// SecureCreds returns the gRPC transport credentials
// to use with the Thrippy server, based on CLI flags.
func SecureCreds(cmd *cli.Command) credentials.TransportCredentials {
	if cmd.Bool("thrippy-insecure") {
		return insecure.NewCredentials()
	}
	return credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
}
