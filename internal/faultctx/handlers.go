package faultctx

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"golang.org/x/sys/unix"
)

// Dispatch is the entry point for every fault signal. A fault that arrives
// while another handler is still running is a double fault and terminates
// the process without evaluating anything.
func (c *Context) Dispatch(sig os.Signal) {
	if !c.inHandler.CompareAndSwap(false, true) {
		c.doubleFault(sig)
		return
	}
	defer c.inHandler.Store(false)

	h := c.handlers.Load()
	if h == nil {
		c.Logger().Error("fault signal with no handlers installed", "signal", sig)
		c.exit(SignalExitCode(sig))
		return
	}
	if IsTimeoutSignal(sig) {
		if h.Timeout != nil {
			h.Timeout(c, sig)
		}
		return
	}
	if h.Crash != nil {
		h.Crash(c, sig)
	}
}

// HandlePanic is called from a deferred recover around the harness. Panics
// outside a trial are re-raised untouched.
func (c *Context) HandlePanic(v any) {
	sig := unix.SIGABRT
	if !c.inHandler.CompareAndSwap(false, true) {
		c.doubleFault(sig)
		return
	}
	defer c.inHandler.Store(false)

	input, refs, ok := c.Take()
	if !ok {
		panic(v)
	}
	c.Logger().Error("harness panicked", "panic", fmt.Sprint(v))
	refs.Executor.PostRunReset()
	ReportFault(c, refs, input, api.Crash)
	c.exit(SignalExitCode(sig))
}

// InProcessHandlers is the handler pair used by the in-process strategy.
func InProcessHandlers() Handlers {
	return Handlers{
		Crash:   inProcessCrash,
		Timeout: inProcessTimeout,
	}
}

func inProcessCrash(c *Context, sig os.Signal) {
	c.Logger().Error("received fault signal", "signal", sig)
	input, refs, ok := c.Take()
	if !ok {
		c.Logger().Error("fault outside of a trial, the harness wiring is broken", "signal", sig)
		c.waitForOperator()
		c.exit(SignalExitCode(sig))
		return
	}
	// disarms the timer so it cannot fire while we report
	refs.Executor.PostRunReset()
	ReportFault(c, refs, input, api.Crash)
	c.exit(SignalExitCode(sig))
}

func inProcessTimeout(c *Context, sig os.Signal) {
	if box := c.claimer.Load(); box != nil && box.t.ClaimTimeout(c) {
		return
	}
	input, refs, ok := c.Take()
	if !ok {
		c.Logger().Warn("timeout signal while no trial is in flight", "signal", sig)
		return
	}
	c.Logger().Error("timeout in trial", "signal", sig, "input_bytes", len(input))
	ReportFault(c, refs, input, api.Timeout)
	c.exit(TimeoutExitCode)
}

// ReportFault runs the observers with the fault verdict, offers the input to
// the objective and announces the imminent restart.
func ReportFault(c *Context, refs *Refs, input executor.Input, kind api.ExitKind) {
	observers := refs.Executor.Observers()
	if err := observers.PostExecAll(refs.State, input, kind); err != nil {
		c.Logger().Error("failed to run observers after fault", tint.Err(err))
	}
	if _, err := executor.SaveIfObjective(refs.Driver, refs.State, refs.Sink, input, observers, kind); err != nil {
		c.Logger().Error("failed to report faulting input", tint.Err(err))
	}
	refs.Sink.RestartForPersistence(refs.State.Executions())
	c.Logger().Info("Bye!")
}

func (c *Context) doubleFault(sig os.Signal) {
	c.Logger().Error("double fault, giving up on recovery", "signal", sig)
	c.waitForOperator()
	c.exit(SignalExitCode(sig))
}

func (c *Context) waitForOperator() {
	if c.prompt == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Type QUIT to restart the fuzzer")
	sc := bufio.NewScanner(c.prompt)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "QUIT" {
			return
		}
	}
}
