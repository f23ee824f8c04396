package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/slashroute/internal/commands/counter"
	"github.com/tzrikka/slashroute/internal/commands/todo"
	"github.com/tzrikka/slashroute/pkg/http"
	"github.com/tzrikka/slashroute/pkg/session/etcd"
	"github.com/tzrikka/slashroute/pkg/session/redis"
	"github.com/tzrikka/slashroute/pkg/slack"
	"github.com/tzrikka/slashroute/pkg/thrippy"
	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "slashroute"
	ConfigFileName = "config.toml"
)

func main() {
	buildInfo, _ := debug.ReadBuildInfo()
	configFilePath := configFile()

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "simple setup, but unsafe for production",
		},
	}
	flags = append(flags, http.Flags(configFilePath)...)
	flags = append(flags, slack.Flags(configFilePath)...)
	flags = append(flags, thrippy.Flags(configFilePath)...)
	flags = append(flags, redis.Flags(configFilePath)...)
	flags = append(flags, etcd.Flags(configFilePath)...)

	cmd := &cli.Command{
		Name:    "slashroute",
		Usage:   "Route Slack slash commands and interactions to stateful, session-addressed handlers",
		Version: buildInfo.Main.Version,
		Flags:   flags,
		Action:  http.Start(counter.New(), todo.New()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Caller().Send()
	}
	return altsrc.StringSourcer(path)
}
