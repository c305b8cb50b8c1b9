package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lmittmann/tint"
	"github.com/nats-io/nats.go"
	"github.com/programme-lv/fuzzexec/internal"
	"github.com/programme-lv/fuzzexec/internal/config"
	"github.com/programme-lv/fuzzexec/internal/driver"
	"github.com/programme-lv/fuzzexec/internal/gatherer/natsgath"
	"github.com/programme-lv/fuzzexec/internal/gatherer/promgath"
	"github.com/programme-lv/fuzzexec/internal/gatherer/respbuilder"
	"github.com/programme-lv/fuzzexec/internal/gatherer/sqsgath"
	"github.com/programme-lv/fuzzexec/internal/gatherer/termgath"
	"github.com/programme-lv/fuzzexec/internal/seeds"
	"github.com/programme-lv/fuzzexec/internal/solutions"
	"github.com/programme-lv/fuzzexec/internal/sysinfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run every seed through the configured executor",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return run(ctx, cfg, logger)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runUuid := uuid.NewString()
	logger = logger.With("run", runUuid)

	gen, err := seeds.FromDir(cfg.Run.SeedsDir)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	gath, summary, cleanup, err := buildGatherers(ctx, cfg, runUuid, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fuzzer, err := buildFuzzer(cfg, logger)
	if err != nil {
		return err
	}
	ex, closer, err := buildExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to release executor", tint.Err(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := driver.NewState(store)
	logger.Info("starting run",
		"strategy", cfg.Run.Strategy,
		"seeds", gen.Len(),
		"known_solutions", state.Solutions())

	gath.StartRun(sysinfo.Collect())
	runErr := fuzzer.Run(ctx, ex, state, gath, gen.All(), cfg.Run.Loops)
	gath.FinishRun(state.Executions(), runErr)

	logger.Info("run finished",
		"executions", state.Executions(),
		"solutions", state.Solutions(),
		"corpus", len(fuzzer.Corpus()))

	if summary != nil {
		b, err := json.MarshalIndent(summary.Summary(), "", "  ")
		if err != nil {
			return errors.Join(runErr, fmt.Errorf("failed to marshal summary: %w", err))
		}
		fmt.Println(string(b))
	}
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*solutions.Store, error) {
	opts := []solutions.Option{solutions.WithLogger(logger)}
	if cfg.Solutions.S3Bucket != "" {
		up, err := solutions.NewS3Uploader(ctx, cfg.Solutions.S3Region, cfg.Solutions.S3Bucket, cfg.Solutions.S3Prefix)
		if err != nil {
			return nil, err
		}
		opts = append(opts, solutions.WithUploader(up))
	}
	return solutions.New(cfg.Solutions.Dir, opts...)
}

func buildGatherers(ctx context.Context, cfg *config.Config, runUuid string, logger *slog.Logger) (internal.Multi, *respbuilder.Builder, func(), error) {
	var (
		gath    internal.Multi
		summary *respbuilder.Builder
		cleanup []func()
	)
	done := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	if !cfg.Events.Quiet {
		gath = append(gath, termgath.New())
	}
	if cfg.Events.Summary {
		summary = respbuilder.New(runUuid)
		gath = append(gath, summary)
	}
	if cfg.Events.NatsUrl != "" {
		nc, err := nats.Connect(cfg.Events.NatsUrl, nats.Name("fuzzexec "+runUuid))
		if err != nil {
			done()
			return nil, nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		cleanup = append(cleanup, nc.Close)
		gath = append(gath, natsgath.New(nc, runUuid, cfg.Events.NatsSubject))
	}
	if cfg.Events.SqsQueueUrl != "" {
		g, err := sqsgath.New(ctx, cfg.Events.SqsRegion, runUuid, cfg.Events.SqsQueueUrl)
		if err != nil {
			done()
			return nil, nil, nil, err
		}
		gath = append(gath, g)
	}
	if cfg.Events.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		g, err := promgath.New(reg)
		if err != nil {
			done()
			return nil, nil, nil, err
		}
		gath = append(gath, g)

		r := mux.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
		srv := &http.Server{Addr: cfg.Events.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", tint.Err(err))
			}
		}()
		cleanup = append(cleanup, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
		logger.Info("serving metrics", "addr", cfg.Events.MetricsAddr)
	}
	return gath, summary, done, nil
}
