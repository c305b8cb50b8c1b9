// Package inprocess runs the harness inside the fuzzer process and relies on
// the fault recovery context to survive crashes and hangs.
package inprocess

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/faultctx"
	"golang.org/x/sys/unix"
)

type Executor struct {
	harness   executor.Harness
	observers executor.Observers
	fault     *faultctx.Context
	handlers  faultctx.Handlers
	timeout   time.Duration
	armed     atomic.Bool
}

type Option func(*Executor)

func WithObservers(obs ...executor.Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, obs...) }
}

// WithTimeout arms a real-time interval timer around every harness call.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithFaultContext replaces the process-wide fault context.
func WithFaultContext(c *faultctx.Context) Option {
	return func(e *Executor) { e.fault = c }
}

// New installs the fault handlers and returns the executor.
func New(harness executor.Harness, opts ...Option) (*Executor, error) {
	e := &Executor{
		harness:  harness,
		fault:    faultctx.Global(),
		handlers: faultctx.InProcessHandlers(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := faultctx.Install(e.fault); err != nil {
		return nil, fmt.Errorf("failed to install fault handlers: %w", err)
	}
	if e.timeout > 0 {
		e.fault.SetTimeoutClaimer(e)
	}
	return e, nil
}

func (e *Executor) Observers() executor.Observers {
	return e.observers
}

func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

func (e *Executor) RunTarget(driver executor.Driver, state executor.State, sink executor.EventSink, input executor.Input) (api.ExitKind, error) {
	state.IncExecutions()
	if err := e.observers.PreExecAll(state, input); err != nil {
		return "", err
	}

	e.fault.Publish(faultctx.Refs{Executor: e, State: state, Sink: sink, Driver: driver}, input, e.handlers)
	if err := e.arm(); err != nil {
		e.fault.Clear()
		return "", fmt.Errorf("failed to arm timeout: %w", err)
	}

	kind, faulted := e.call(input)
	if faulted {
		// the panic hook already reported the trial
		return kind, nil
	}
	e.disarm()
	e.fault.Clear()

	if err := e.observers.PostExecAll(state, input, kind); err != nil {
		return kind, err
	}
	return kind, nil
}

func (e *Executor) call(input executor.Input) (kind api.ExitKind, faulted bool) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			e.fault.HandlePanic(r)
			kind, faulted = api.Crash, true
		}
	}()
	return e.harness(input), false
}

// PostRunReset disarms the timer.
func (e *Executor) PostRunReset() {
	e.disarm()
}

// ClaimTimeout swallows alarms that fire after the harness already returned.
func (e *Executor) ClaimTimeout(*faultctx.Context) bool {
	return !e.armed.Load()
}

func (e *Executor) arm() error {
	if e.timeout <= 0 {
		return nil
	}
	e.armed.Store(true)
	_, err := unix.Setitimer(unix.ItimerReal, unix.Itimerval{
		Value: unix.NsecToTimeval(e.timeout.Nanoseconds()),
	})
	if err != nil {
		e.armed.Store(false)
		return err
	}
	return nil
}

func (e *Executor) disarm() {
	if e.timeout <= 0 || !e.armed.Swap(false) {
		return
	}
	_, _ = unix.Setitimer(unix.ItimerReal, unix.Itimerval{})
}
