package redis

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultAddr = "localhost:6379"
)

// Flags defines CLI flags to configure a Redis session store. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "redis-addr",
			Usage: "Redis server address",
			Value: DefaultAddr,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("REDIS_ADDR"),
				toml.TOML("redis.addr", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "redis-password",
			Usage: "Redis server password (optional)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("REDIS_PASSWORD"),
				toml.TOML("redis.password", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "redis-db",
			Usage: "Redis logical database number",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("REDIS_DB"),
				toml.TOML("redis.db", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "redis-key-prefix",
			Usage: "Redis key prefix of stored sessions",
			Value: DefaultPrefix,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("REDIS_KEY_PREFIX"),
				toml.TOML("redis.key_prefix", configFilePath),
			),
		},
	}
}
