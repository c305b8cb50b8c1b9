package main

import (
	"context"
	"fmt"
	"os"

	"github.com/programme-lv/fuzzexec/internal/network"
	"github.com/urfave/cli/v3"
)

func framesCommand() *cli.Command {
	return &cli.Command{
		Name:      "frames",
		Usage:     "show how an input is split into CRLF frames for the network target",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := requireArg(cmd, "input file")
			if err != nil {
				return err
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			for i, f := range network.SplitFrames(b) {
				fmt.Printf("%3d %4d %q\n", i, len(f), f)
			}
			return nil
		},
	}
}
