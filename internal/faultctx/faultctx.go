// Package faultctx holds the process-wide record of the trial in flight so
// that crash, timeout and panic handlers can report it before the process
// goes down.
package faultctx

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/programme-lv/fuzzexec/internal/executor"
)

const (
	// SignalExitBase is added to a signal number to form a fault exit code.
	SignalExitBase = 128
	// TimeoutExitCode is used by the in-process timeout handler.
	TimeoutExitCode = 55
)

// Target is the part of an executor the handlers need.
type Target interface {
	Observers() executor.Observers
	PostRunReset()
}

// Refs are the references borrowed for the duration of one trial. The driver
// fields may be nil where only child hooks run.
type Refs struct {
	Executor Target
	State    executor.State
	Sink     executor.EventSink
	Driver   executor.Driver
}

// HandlerFunc reacts to a fault signal.
type HandlerFunc func(c *Context, sig os.Signal)

type Handlers struct {
	Crash   HandlerFunc
	Timeout HandlerFunc
}

// TimeoutClaimer gets the first refusal on a timeout signal. Returning true
// means the signal was consumed and the timeout handler must not run.
type TimeoutClaimer interface {
	ClaimTimeout(c *Context) bool
}

type claimerBox struct{ t TimeoutClaimer }

// Context is the fault recovery record. The input pointer is non-nil exactly
// while a trial is in flight; everything else is only meaningful then.
type Context struct {
	input     atomic.Pointer[executor.Input]
	refs      atomic.Pointer[Refs]
	handlers  atomic.Pointer[Handlers]
	claimer   atomic.Pointer[claimerBox]
	inHandler atomic.Bool

	exit   func(code int)
	prompt io.Reader
	logger *slog.Logger
}

type Option func(*Context)

// WithExit replaces os.Exit.
func WithExit(exit func(code int)) Option {
	return func(c *Context) { c.exit = exit }
}

// WithPrompt makes fatal faults wait for an operator to type QUIT on r.
func WithPrompt(r io.Reader) Option {
	return func(c *Context) { c.prompt = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.logger = l }
}

func New(opts ...Option) *Context {
	c := &Context{exit: os.Exit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var global = New()

// Global returns the process-wide context.
func Global() *Context {
	return global
}

// Publish arms the context for a trial. The input is stored last, so a
// handler that observes it also observes the refs and handlers.
func (c *Context) Publish(refs Refs, input executor.Input, h Handlers) {
	c.refs.Store(&refs)
	c.handlers.Store(&h)
	c.input.Store(&input)
}

// Clear marks the trial as completed normally.
func (c *Context) Clear() {
	c.input.Store(nil)
}

// InFlight reports whether a trial is currently published.
func (c *Context) InFlight() bool {
	return c.input.Load() != nil
}

// Take claims the in-flight trial. Only one caller can succeed per trial.
func (c *Context) Take() (executor.Input, *Refs, bool) {
	in := c.input.Swap(nil)
	if in == nil {
		return nil, nil, false
	}
	return *in, c.refs.Load(), true
}

// InHandler reports whether a fault handler is running.
func (c *Context) InHandler() bool {
	return c.inHandler.Load()
}

func (c *Context) SetTimeoutClaimer(t TimeoutClaimer) {
	if t == nil {
		c.claimer.Store(nil)
		return
	}
	c.claimer.Store(&claimerBox{t: t})
}

// Logger returns the logger given with WithLogger, or the slog default at
// the time of the call.
func (c *Context) Logger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Exit terminates the process with code through the configured exit func.
func (c *Context) Exit(code int) {
	c.exit(code)
}
