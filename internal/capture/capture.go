// Package capture approximates protocol-state coverage: it records the traffic
// of every trial and lets an external scorer turn the trace into map slots.
// It is meant to run as the primary of an executor.Interleaved pair so the
// capture is live before the real executor sends anything.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/scorer"
	"golang.org/x/sync/errgroup"
)

var errNotReady = errors.New("capture stopped before it was ready")

type Executor struct {
	capturer  Capturer
	scorer    scorer.Scorer
	observer  *executor.MapObserver
	dumpDir   string
	keepDumps bool
	logger    *slog.Logger

	seq     int
	session *session
}

// session is one running capture. The errgroup owns the capture goroutine.
type session struct {
	path   string
	cancel context.CancelFunc
	group  *errgroup.Group
}

type Option func(*Executor)

// WithKeepDumps leaves capture files on disk after scoring.
func WithKeepDumps(keep bool) Option {
	return func(e *Executor) { e.keepDumps = keep }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New writes captures into dumpDir and reports triggered slots into observer.
func New(capturer Capturer, sc scorer.Scorer, observer *executor.MapObserver, dumpDir string, opts ...Option) (*Executor, error) {
	if err := os.MkdirAll(dumpDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	e := &Executor{
		capturer: capturer,
		scorer:   sc,
		observer: observer,
		dumpDir:  dumpDir,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Executor) Observers() executor.Observers {
	return executor.Observers{e.observer}
}

// RunTarget starts the capture and returns as soon as it is recording. The
// verdict is always Ok; the slots are filled in by PostRunReset.
func (e *Executor) RunTarget(driver executor.Driver, state executor.State, sink executor.EventSink, input executor.Input) (api.ExitKind, error) {
	state.IncExecutions()
	if e.session != nil {
		e.logger.Warn("previous capture was never reset, stopping it")
		e.PostRunReset()
	}
	if err := e.Observers().PreExecAll(state, input); err != nil {
		return "", err
	}

	e.seq++
	path := filepath.Join(e.dumpDir, fmt.Sprintf("%d-%d.pcap", time.Now().Unix(), e.seq))
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	ready := make(chan error, 1)
	var once sync.Once
	signal := func(err error) {
		once.Do(func() { ready <- err })
	}
	group.Go(func() error {
		err := e.capturer.Capture(gctx, path, signal)
		if err != nil {
			signal(err)
			return err
		}
		signal(errNotReady)
		return nil
	})

	if err := <-ready; err != nil {
		cancel()
		_ = group.Wait()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to start capture: %w", err)
	}
	e.session = &session{path: path, cancel: cancel, group: group}

	if err := e.Observers().PostExecAll(state, input, api.Ok); err != nil {
		return api.Ok, err
	}
	return api.Ok, nil
}

// PostRunReset stops and joins the capture, scores it and records the
// triggered slots. It does nothing when no capture is running.
func (e *Executor) PostRunReset() {
	s := e.session
	if s == nil {
		return
	}
	e.session = nil

	s.cancel()
	if err := s.group.Wait(); err != nil {
		e.logger.Warn("capture ended with an error", "path", s.path, tint.Err(err))
	}
	if !e.keepDumps {
		defer os.Remove(s.path)
	}

	triggered, err := e.scorer.Score(context.Background(), s.path)
	if err != nil {
		e.logger.Error("failed to score capture", "path", s.path, tint.Err(err))
		return
	}
	triggered.Each(func(i int) bool {
		if !e.observer.Set(i) {
			e.logger.Warn("scorer reported a slot outside the map", "index", i, "map_len", e.observer.Len())
		}
		return false
	})
	e.logger.Debug("capture scored", "path", s.path, "triggered", triggered.Cardinality())
}

// Close stops a capture that is still running.
func (e *Executor) Close() error {
	e.PostRunReset()
	return nil
}
