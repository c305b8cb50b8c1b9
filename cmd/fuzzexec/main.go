package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/programme-lv/fuzzexec/internal/config"
	"github.com/programme-lv/fuzzexec/internal/forked"
	"github.com/programme-lv/fuzzexec/internal/logging"
	"github.com/programme-lv/fuzzexec/internal/xdg"
	"github.com/urfave/cli/v3"
)

func main() {
	// a re-executed child runs its harness here and never returns
	forked.Main()

	cmd := &cli.Command{
		Name:  "fuzzexec",
		Usage: "run fuzzing trials in-process, in child processes or against a network target",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars("FUZZEXEC_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides [log] level)",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			replayCommand(),
			healthCommand(),
			framesCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// loadConfig reads the config named by --config, falling back to
// $XDG_CONFIG_HOME/fuzzexec/config.toml, and installs the logger.
func loadConfig(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	path := cmd.String("config")
	if path == "" {
		if p, ok := xdg.NewXDGDirs().FindConfig(config.AppName, "config.toml"); ok {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	logger, err := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	return cfg, logger, nil
}

func requireArg(cmd *cli.Command, what string) (string, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return "", fmt.Errorf("missing %s argument", what)
	}
	return arg, nil
}
