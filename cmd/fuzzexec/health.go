package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/nats-io/nats.go"
	"github.com/olekukonko/tablewriter"
	"github.com/programme-lv/fuzzexec/internal/config"
	"github.com/programme-lv/fuzzexec/internal/harness"
	"github.com/urfave/cli/v3"
)

type health int

const (
	healthOk health = iota
	healthWarn
	healthError
)

func (h health) String() string {
	switch h {
	case healthOk:
		return color.GreenString("OK")
	case healthWarn:
		return color.YellowString("WARN")
	}
	return color.RedString("ERROR")
}

type feedbackRow struct {
	unit    string
	health  health
	message string
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check that the tools the configured strategy needs are available",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			rows := checkHealth(cfg)

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Unit", "Health", "Message")
			worst := healthOk
			for _, r := range rows {
				table.Append([]string{r.unit, r.health.String(), r.message})
				worst = max(worst, r.health)
			}
			table.Render()

			if worst == healthError {
				return errors.New("health check failed")
			}
			return nil
		},
	}
}

func checkHealth(cfg *config.Config) []feedbackRow {
	rows := []feedbackRow{checkDir("Solutions", cfg.Solutions.Dir)}

	switch cfg.Run.Strategy {
	case config.InProcess, config.Fork, config.ForkTimeout:
		rows = append(rows, checkHarness(cfg.Run.Harness))
	case config.Network, config.Interleaved:
		if cfg.Network.Target != "" {
			rows = append(rows, checkBinary("Target", cfg.Network.Target))
		} else {
			rows = append(rows, feedbackRow{"Target", healthWarn, "not configured, assuming it is already running"})
		}
		if len(cfg.Probe.Command) > 0 {
			rows = append(rows, checkBinary("Probe", cfg.Probe.Command[0]))
		} else {
			rows = append(rows, checkBinary("Probe", "ping"))
		}
		if cfg.Network.CleanupScript != "" {
			rows = append(rows, checkFile("Cleanup script", cfg.Network.CleanupScript))
		}
	}
	if cfg.Run.Strategy == config.Interleaved {
		rows = append(rows,
			checkBinary("Capture", cfg.Capture.Tcpdump),
			checkBinary("Scorer", cfg.Scorer.Command[0]))
	}
	if cfg.Events.NatsUrl != "" {
		rows = append(rows, checkNats(cfg.Events.NatsUrl))
	}
	return rows
}

func checkHarness(name string) feedbackRow {
	if _, err := harness.Lookup(name); err != nil {
		return feedbackRow{"Harness", healthError, err.Error()}
	}
	return feedbackRow{"Harness", healthOk, name}
}

func checkBinary(unit, name string) feedbackRow {
	p, err := exec.LookPath(name)
	if err != nil {
		return feedbackRow{unit, healthError, err.Error()}
	}
	return feedbackRow{unit, healthOk, p}
}

func checkFile(unit, path string) feedbackRow {
	if _, err := os.Stat(path); err != nil {
		return feedbackRow{unit, healthError, err.Error()}
	}
	return feedbackRow{unit, healthOk, path}
}

func checkDir(unit, dir string) feedbackRow {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return feedbackRow{unit, healthError, err.Error()}
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return feedbackRow{unit, healthError, fmt.Sprintf("not writable: %v", err)}
	}
	f.Close()
	os.Remove(f.Name())
	abs, _ := filepath.Abs(dir)
	return feedbackRow{unit, healthOk, abs}
}

func checkNats(url string) feedbackRow {
	nc, err := nats.Connect(url, nats.Timeout(3*time.Second))
	if err != nil {
		return feedbackRow{"NATS", healthError, err.Error()}
	}
	defer nc.Close()
	return feedbackRow{"NATS", healthOk, nc.ConnectedUrl()}
}
