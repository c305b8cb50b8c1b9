// Package forked runs every trial in a fresh child process. Go cannot fork a
// running runtime, so the child is a re-exec of the current binary that looks
// its harness up by name; call Main first thing in main or TestMain.
package forked

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/harness"
	"github.com/programme-lv/fuzzexec/internal/logging"
	"github.com/programme-lv/fuzzexec/internal/shmem"
)

const (
	envHarness = "FUZZEXEC_CHILD_HARNESS"
	envTimeout = "FUZZEXEC_CHILD_TIMEOUT"
	envRegions = "FUZZEXEC_CHILD_REGIONS"

	envLogLevel      = "FUZZEXEC_CHILD_LOG_LEVEL"
	envLogFormat     = "FUZZEXEC_CHILD_LOG_FORMAT"
	envLogTimeFormat = "FUZZEXEC_CHILD_LOG_TIME_FORMAT"
)

type Executor struct {
	name      string
	timeout   time.Duration
	observers executor.Observers
	regions   []*shmem.Region

	path    string
	args    []string
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	logOpts *logging.Options
}

type Option func(*Executor)

func WithObservers(obs ...executor.Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, obs...) }
}

// WithRegions shares memory regions with every child, in order. The executor
// takes ownership and closes them in Close.
func WithRegions(regions ...*shmem.Region) Option {
	return func(e *Executor) { e.regions = append(e.regions, regions...) }
}

// WithChildOutput forwards the child's stdout and stderr.
func WithChildOutput(stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithBinary overrides the binary re-executed as the child.
func WithBinary(path string, args ...string) Option {
	return func(e *Executor) {
		e.path = path
		e.args = args
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithChildLog makes children log through the same handler setup as the
// parent instead of the slog default.
func WithChildLog(opts logging.Options) Option {
	return func(e *Executor) { e.logOpts = &opts }
}

// New returns a forked executor for the registered harness name.
func New(name string, opts ...Option) (*Executor, error) {
	return NewWithTimeout(name, 0, opts...)
}

// NewWithTimeout is the timed variant: every child arms a real-time interval
// timer of d right after it starts.
func NewWithTimeout(name string, d time.Duration, opts ...Option) (*Executor, error) {
	if _, err := harness.Lookup(name); err != nil {
		return nil, err
	}
	e := &Executor{name: name, timeout: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.path == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate own binary: %w", err)
		}
		e.path = self
	}
	return e, nil
}

// NewSharedMap creates a shared region and a map observer over it.
func NewSharedMap(name string, size int) (*shmem.Region, *executor.MapObserver, error) {
	r, err := shmem.New(name, size)
	if err != nil {
		return nil, nil, err
	}
	return r, executor.NewMapObserver(name, r.Bytes()), nil
}

func (e *Executor) Observers() executor.Observers {
	return e.observers
}

func (e *Executor) RunTarget(driver executor.Driver, state executor.State, sink executor.EventSink, input executor.Input) (api.ExitKind, error) {
	state.IncExecutions()
	if err := e.observers.PreExecAll(state, input); err != nil {
		return "", err
	}

	cmd := exec.Command(e.path, e.args...)
	cmd.Env = append(os.Environ(), e.childEnv()...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	for _, r := range e.regions {
		cmd.ExtraFiles = append(cmd.ExtraFiles, r.File())
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to fork child: %w", err)
	}
	err := cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("failed to wait for child: %w", err)
		}
	}

	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return "", fmt.Errorf("unsupported child status %T", cmd.ProcessState.Sys())
	}
	kind, err := DecodeStatus(ws)
	if err != nil {
		return "", err
	}
	e.logger.Debug("child finished", "pid", cmd.ProcessState.Pid(), "status", cmd.ProcessState.String(), "verdict", kind)

	if err := e.observers.PostExecAll(state, input, kind); err != nil {
		return kind, err
	}
	return kind, nil
}

// PostRunReset has nothing to restore; every trial gets a fresh child.
func (e *Executor) PostRunReset() {}

func (e *Executor) Close() error {
	var errs []error
	for _, r := range e.regions {
		errs = append(errs, r.Close())
	}
	e.regions = nil
	return errors.Join(errs...)
}

func (e *Executor) childEnv() []string {
	sizes := make([]string, len(e.regions))
	for i, r := range e.regions {
		sizes[i] = strconv.Itoa(r.Len())
	}
	env := []string{
		envHarness + "=" + e.name,
		envTimeout + "=" + strconv.FormatInt(int64(e.timeout), 10),
		envRegions + "=" + strings.Join(sizes, ","),
	}
	if e.logOpts != nil {
		env = append(env,
			envLogLevel+"="+e.logOpts.Level,
			envLogFormat+"="+e.logOpts.Format,
			envLogTimeFormat+"="+e.logOpts.TimeFormat,
		)
	}
	return env
}
