// Package network delivers trial inputs to an out-of-process target over TCP
// and decides the verdict with an external liveness probe.
package network

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/probe"
)

var (
	ErrConnectRetries = errors.New("unable to connect to target")
	ErrRestartBudget  = errors.New("target restart budget exhausted")
)

// Target is the restartable process behind the TCP endpoint.
type Target interface {
	Start() error
	Started() bool
	Exited() bool
	Restart() error
	Kill() error
}

type Config struct {
	Host string
	Port int
	// StartupDelay is waited after every (re)start of the target.
	StartupDelay   time.Duration
	ConnectRetries int
	DialTimeout    time.Duration
	// ReadTimeout bounds the best-effort reads of banners and responses.
	ReadTimeout   time.Duration
	CleanupScript string
	// MaxRestarts caps cumulative target restarts; 0 means no cap.
	MaxRestarts int
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.StartupDelay == 0 {
		c.StartupDelay = 10 * time.Millisecond
	}
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = 3
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	return c
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Executor struct {
	cfg    Config
	target Target
	prober probe.Prober
	logger *slog.Logger

	restarts       int
	cleanupPending bool
}

type Option func(*Executor)

// WithTarget lets the executor start and restart the target itself. Without
// it the target is assumed to be managed elsewhere.
func WithTarget(t Target) Option {
	return func(e *Executor) { e.target = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func New(cfg Config, prober probe.Prober, opts ...Option) *Executor {
	e := &Executor{
		cfg:    cfg.withDefaults(),
		prober: prober,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Observers is empty; attach some with executor.WithObservers.
func (e *Executor) Observers() executor.Observers {
	return nil
}

// Restarts is the number of target restarts so far.
func (e *Executor) Restarts() int {
	return e.restarts
}

func (e *Executor) RunTarget(driver executor.Driver, state executor.State, sink executor.EventSink, input executor.Input) (api.ExitKind, error) {
	state.IncExecutions()
	e.cleanupPending = true

	if err := e.ensureTarget(sink); err != nil {
		return "", err
	}
	conn, err := e.connect(sink)
	if err != nil {
		return "", err
	}
	e.deliver(conn, input)

	outcome, probeErr := e.prober.Probe(e.cfg.Host)
	// the target may close the connection on its own after a crash
	if err := conn.Close(); err != nil {
		e.logger.Debug("failed to close connection", tint.Err(err))
	}
	if probeErr != nil {
		return "", fmt.Errorf("failed to probe target: %w", probeErr)
	}

	switch outcome {
	case probe.Alive:
		return api.Ok, nil
	case probe.Unreachable:
		e.logger.Warn("target did not answer the liveness probe", "addr", e.cfg.Host)
		if err := e.restart(sink, "target did not answer the liveness probe"); err != nil {
			return "", err
		}
		return api.Crash, nil
	default:
		return "", fmt.Errorf("unknown probe outcome %d", outcome)
	}
}

// PostRunReset runs the cleanup script once per trial.
func (e *Executor) PostRunReset() {
	if !e.cleanupPending {
		return
	}
	e.cleanupPending = false
	if e.cfg.CleanupScript == "" {
		return
	}
	out, err := exec.Command("/bin/sh", e.cfg.CleanupScript).CombinedOutput()
	if err != nil {
		e.logger.Error("cleanup script failed", "script", e.cfg.CleanupScript, "output", string(out), tint.Err(err))
		return
	}
	e.logger.Debug("cleanup script finished", "script", e.cfg.CleanupScript)
}

// Close kills the target.
func (e *Executor) Close() error {
	if e.target == nil {
		return nil
	}
	return e.target.Kill()
}

func (e *Executor) ensureTarget(sink executor.EventSink) error {
	if e.target == nil {
		return nil
	}
	if !e.target.Started() {
		if err := e.target.Start(); err != nil {
			return err
		}
		e.waitStartup()
		return nil
	}
	if e.target.Exited() {
		e.logger.Warn("target exited between trials")
		return e.restart(sink, "target exited between trials")
	}
	return nil
}

func (e *Executor) restart(sink executor.EventSink, reason string) error {
	if e.target == nil {
		e.logger.Warn("no target to restart", "reason", reason)
		return nil
	}
	e.restarts++
	if e.cfg.MaxRestarts > 0 && e.restarts > e.cfg.MaxRestarts {
		return fmt.Errorf("%w: %d restarts", ErrRestartBudget, e.cfg.MaxRestarts)
	}
	e.logger.Info("restarting target", "reason", reason, "restarts", e.restarts)
	if err := e.target.Restart(); err != nil {
		return fmt.Errorf("failed to restart target: %w", err)
	}
	if sink != nil {
		sink.TargetRestarted(reason)
	}
	e.waitStartup()
	return nil
}

func (e *Executor) waitStartup() {
	e.logger.Debug("waiting for target startup", "delay", e.cfg.StartupDelay)
	time.Sleep(e.cfg.StartupDelay)
}

func (e *Executor) connect(sink executor.EventSink) (net.Conn, error) {
	addr := e.cfg.Addr()
	for attempt := 1; attempt <= e.cfg.ConnectRetries; attempt++ {
		conn, err := net.DialTimeout("tcp", addr, e.cfg.DialTimeout)
		if err == nil {
			e.readBanner(conn)
			return conn, nil
		}
		e.logger.Warn("failed to connect to target", "addr", addr, "attempt", attempt, tint.Err(err))
		if err := e.restart(sink, "connection to target failed"); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w at %s after %d retries", ErrConnectRetries, addr, e.cfg.ConnectRetries)
}

func (e *Executor) readBanner(conn net.Conn) {
	if b, ok := e.readSome(conn); ok {
		e.logger.Debug("target greeted", "banner", string(b))
	}
}

func (e *Executor) deliver(conn net.Conn, input executor.Input) {
	for _, frame := range SplitFrames(input) {
		if _, err := conn.Write(frame); err != nil {
			e.logger.Warn("failed to send frame", "frame", string(frame), tint.Err(err))
			continue
		}
		if b, ok := e.readSome(conn); ok {
			e.logger.Debug("target responded", "frame", string(frame), "response", string(b))
		} else {
			e.logger.Debug("no response to frame", "frame", string(frame))
		}
	}
}

func (e *Executor) readSome(conn net.Conn) ([]byte, bool) {
	if err := conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout)); err != nil {
		return nil, false
	}
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, 4096)
	n, _ := conn.Read(buf)
	if n == 0 {
		return nil, false
	}
	return buf[:n], true
}
