package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/programme-lv/fuzzexec/internal/driver"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/gatherer/termgath"
	"github.com/programme-lv/fuzzexec/internal/solutions"
	"github.com/urfave/cli/v3"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "run a single input (raw or a stored .zst solution) once",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := requireArg(cmd, "input file")
			if err != nil {
				return err
			}
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			input, err := readInput(path)
			if err != nil {
				return err
			}

			fuzzer, err := buildFuzzer(cfg, logger)
			if err != nil {
				return err
			}
			ex, closer, err := buildExecutor(cfg, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			// nothing is persisted on replay
			out, err := fuzzer.Trial(ex, driver.NewState(nil), termgath.New(), input)
			if err != nil {
				return err
			}
			fmt.Printf("verdict: %s (objective: %t)\n", out.Kind, out.Objective)
			return nil
		},
	}
}

func readInput(path string) (executor.Input, error) {
	if strings.HasSuffix(path, ".zst") {
		store, err := solutions.New(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		return store.Load(filepath.Base(path))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return b, nil
}
