package forked

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/faultctx"
	"github.com/programme-lv/fuzzexec/internal/harness"
	"github.com/programme-lv/fuzzexec/internal/logging"
	"github.com/programme-lv/fuzzexec/internal/shmem"
	"golang.org/x/sys/unix"
)

// first descriptor of exec.Cmd.ExtraFiles in the child
const firstExtraFd = 3

// Main runs the trial and exits when the process is a forked child. It returns
// immediately otherwise.
func Main() {
	name, ok := os.LookupEnv(envHarness)
	if !ok {
		return
	}
	os.Exit(runChild(name))
}

// IsChild reports whether the process was started as a forked child.
func IsChild() bool {
	_, ok := os.LookupEnv(envHarness)
	return ok
}

func runChild(name string) int {
	logger := childLogger()

	factory, err := harness.Lookup(name)
	if err != nil {
		logger.Error("child cannot find harness", tint.Err(err))
		return ChildSetupExitCode
	}
	regions, err := childRegions(os.Getenv(envRegions))
	if err != nil {
		logger.Error("child cannot map shared memory", tint.Err(err))
		return ChildSetupExitCode
	}
	timeout, err := strconv.ParseInt(os.Getenv(envTimeout), 10, 64)
	if err != nil {
		logger.Error("child got a malformed timeout", tint.Err(err))
		return ChildSetupExitCode
	}
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Error("child cannot read its input", tint.Err(err))
		return ChildSetupExitCode
	}

	h, observers := factory(regions)
	c := &child{
		harness:   h,
		observers: observers,
		timeout:   time.Duration(timeout),
		fault:     faultctx.Global(),
		logger:    logger,
	}
	if err := faultctx.Install(c.fault); err != nil {
		logger.Error("child cannot install fault handlers", tint.Err(err))
		return ChildSetupExitCode
	}
	return c.run(input)
}

func childRegions(spec string) ([]*shmem.Region, error) {
	if spec == "" {
		return nil, nil
	}
	var regions []*shmem.Region
	for i, s := range strings.Split(spec, ",") {
		size, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("bad region size %q: %w", s, err)
		}
		f := os.NewFile(uintptr(firstExtraFd+i), fmt.Sprintf("region-%d", i))
		r, err := shmem.Open(f, size)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// child is the trial running inside the forked process.
type child struct {
	harness   executor.Harness
	observers executor.Observers
	timeout   time.Duration
	fault     *faultctx.Context
	logger    *slog.Logger
}

func (c *child) Observers() executor.Observers { return c.observers }

// PostRunReset disarms the child timer.
func (c *child) PostRunReset() {
	if c.timeout > 0 {
		_, _ = unix.Setitimer(unix.ItimerReal, unix.Itimerval{})
	}
}

func (c *child) run(input executor.Input) int {
	c.fault.Publish(faultctx.Refs{Executor: c}, input, childHandlers())
	if c.timeout > 0 {
		_, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{
			Value: unix.NsecToTimeval(c.timeout.Nanoseconds()),
		})
		if err != nil {
			c.logger.Error("child cannot arm its timer", tint.Err(err))
			return ChildSetupExitCode
		}
	}

	if err := c.observers.PreExecChildAll(input); err != nil {
		c.logger.Error("child pre-exec hooks failed", tint.Err(err))
		return ChildSetupExitCode
	}
	kind := c.call(input)
	c.PostRunReset()
	c.fault.Clear()
	if err := c.observers.PostExecChildAll(input, kind); err != nil {
		c.logger.Error("child post-exec hooks failed", tint.Err(err))
	}
	return verdictExitCode(kind)
}

func (c *child) call(input executor.Input) (kind api.ExitKind) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("harness panicked", "panic", fmt.Sprint(r))
			c.fault.Dispatch(unix.SIGABRT)
			kind = api.Crash
		}
	}()
	return c.harness(input)
}

func childHandlers() faultctx.Handlers {
	return faultctx.Handlers{
		Crash:   childFault(api.Crash),
		Timeout: childFault(api.Timeout),
	}
}

func childFault(kind api.ExitKind) faultctx.HandlerFunc {
	return func(c *faultctx.Context, sig os.Signal) {
		if input, refs, ok := c.Take(); ok {
			refs.Executor.PostRunReset()
			if err := refs.Executor.Observers().PostExecChildAll(input, kind); err != nil {
				c.Logger().Error("child post-exec hooks failed", tint.Err(err))
			}
		}
		c.Exit(faultctx.SignalExitCode(sig))
	}
}

func verdictExitCode(kind api.ExitKind) int {
	switch kind {
	case api.Crash:
		return faultctx.SignalExitCode(unix.SIGABRT)
	case api.Timeout:
		return faultctx.SignalExitCode(unix.SIGALRM)
	default:
		return 0
	}
}

// childLogger installs the parent's handler setup as the slog default, so the
// fault context logs through it too.
func childLogger() *slog.Logger {
	level, ok := os.LookupEnv(envLogLevel)
	if !ok {
		return slog.Default()
	}
	logger, err := logging.New(os.Stderr, logging.Options{
		Level:      level,
		Format:     os.Getenv(envLogFormat),
		TimeFormat: os.Getenv(envLogTimeFormat),
	})
	if err != nil {
		slog.Default().Warn("child keeps the default logger", tint.Err(err))
		return slog.Default()
	}
	slog.SetDefault(logger)
	return logger
}
