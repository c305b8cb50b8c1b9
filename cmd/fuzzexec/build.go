package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/capture"
	"github.com/programme-lv/fuzzexec/internal/config"
	"github.com/programme-lv/fuzzexec/internal/driver"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/forked"
	"github.com/programme-lv/fuzzexec/internal/harness"
	"github.com/programme-lv/fuzzexec/internal/inprocess"
	"github.com/programme-lv/fuzzexec/internal/logging"
	"github.com/programme-lv/fuzzexec/internal/network"
	"github.com/programme-lv/fuzzexec/internal/probe"
	"github.com/programme-lv/fuzzexec/internal/scorer"
	"github.com/programme-lv/fuzzexec/internal/target"
	"github.com/programme-lv/fuzzexec/internal/xdg"
)

type closers []io.Closer

func (cs closers) Close() error {
	var first error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildExecutor assembles the executor for the configured strategy. The
// returned closer releases child regions, captures and the network target.
func buildExecutor(cfg *config.Config, logger *slog.Logger) (executor.Executor, io.Closer, error) {
	switch cfg.Run.Strategy {
	case config.InProcess:
		factory, err := harness.Lookup(cfg.Run.Harness)
		if err != nil {
			return nil, nil, err
		}
		h, obs := factory(nil)
		ex, err := inprocess.New(h,
			inprocess.WithObservers(obs...),
			inprocess.WithTimeout(cfg.InProcessTimeout()))
		if err != nil {
			return nil, nil, err
		}
		return ex, closers{}, nil

	case config.Fork, config.ForkTimeout:
		region, mo, err := forked.NewSharedMap(harness.SignalsMap, cfg.Fork.MapSize)
		if err != nil {
			return nil, nil, err
		}
		opts := []forked.Option{
			forked.WithRegions(region),
			forked.WithObservers(mo),
			forked.WithLogger(logger),
			forked.WithChildLog(logging.Options{
				Level:      cfg.Log.Level,
				Format:     cfg.Log.Format,
				TimeFormat: cfg.Log.TimeFormat,
			}),
		}
		if cfg.Fork.ChildOutput {
			opts = append(opts, forked.WithChildOutput(os.Stdout, os.Stderr))
		}
		var ex *forked.Executor
		if cfg.Run.Strategy == config.ForkTimeout {
			ex, err = forked.NewWithTimeout(cfg.Run.Harness, cfg.ForkTimeout(), opts...)
		} else {
			ex, err = forked.New(cfg.Run.Harness, opts...)
		}
		if err != nil {
			_ = region.Close()
			return nil, nil, err
		}
		return ex, closers{ex}, nil

	case config.Network:
		ex := buildNetwork(cfg, logger)
		return ex, closers{ex}, nil

	case config.Interleaved:
		netEx := buildNetwork(cfg, logger)
		capEx, err := buildCapture(cfg, logger)
		if err != nil {
			_ = netEx.Close()
			return nil, nil, err
		}
		// the capture has to be listening before the input goes out
		return executor.NewInterleaved(capEx, netEx), closers{netEx, capEx}, nil
	}
	return nil, nil, fmt.Errorf("unknown strategy %q", cfg.Run.Strategy)
}

func buildNetwork(cfg *config.Config, logger *slog.Logger) *network.Executor {
	var prober probe.Prober
	if cmd := cfg.Probe.Command; len(cmd) > 0 {
		prober = &probe.Command{Path: cmd[0], Args: cmd[1:], Deadline: cfg.ProbeDeadline()}
	} else {
		prober = probe.NewPing(cfg.ProbeWait())
	}

	opts := []network.Option{network.WithLogger(logger)}
	if cfg.Network.Target != "" {
		t := target.New(target.Spec{
			Path:    cfg.Network.Target,
			Options: cfg.Network.TargetOptions,
			Dir:     cfg.Network.TargetDir,
			Stdout:  os.Stdout,
			Stderr:  os.Stderr,
		}, logger)
		opts = append(opts, network.WithTarget(t))
	}
	return network.New(cfg.NetworkExecutor(), prober, opts...)
}

func buildCapture(cfg *config.Config, logger *slog.Logger) (*capture.Executor, error) {
	if err := xdg.NewXDGDirs().EnsureRuntimeDir(cfg.Capture.DumpDir); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	sc := &scorer.Command{
		Path:    cfg.Scorer.Command[0],
		Args:    cfg.Scorer.Command[1:],
		Dir:     cfg.Scorer.Dir,
		Timeout: cfg.ScorerTimeout(),
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	td := &capture.Tcpdump{
		Path:      cfg.Capture.Tcpdump,
		Interface: cfg.Capture.Interface,
		Port:      cfg.Network.Port,
		Logger:    logger,
	}
	mo := executor.NewMapObserver(cfg.Capture.MapName, make([]byte, cfg.Capture.MapSize))
	return capture.New(td, sc, mo, cfg.Capture.DumpDir,
		capture.WithKeepDumps(cfg.Capture.KeepDumps),
		capture.WithLogger(logger))
}

func buildFuzzer(cfg *config.Config, logger *slog.Logger) (*driver.Fuzzer, error) {
	kinds := make([]api.ExitKind, 0, len(cfg.Run.Objectives))
	for _, o := range cfg.Run.Objectives {
		k, ok := api.ParseExitKind(o)
		if !ok {
			return nil, fmt.Errorf("unknown objective verdict %q", o)
		}
		kinds = append(kinds, k)
	}
	return driver.New(
		driver.WithObjectives(kinds...),
		driver.WithFeedbackMaps(cfg.Run.FeedbackMaps...),
		driver.WithRateLimit(cfg.Run.MaxExecsPerSec),
		driver.WithLogger(logger),
	), nil
}
