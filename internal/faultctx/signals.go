package faultctx

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// CrashSignals are routed to the crash handler. SIGPIPE is left out: Go
// raises it for writes to any broken socket in the process, and a forked
// child killed by it is still decoded from its wait status.
var CrashSignals = []os.Signal{
	unix.SIGABRT,
	unix.SIGBUS,
	unix.SIGFPE,
	unix.SIGILL,
	unix.SIGSEGV,
	unix.SIGTRAP,
}

// TimeoutSignals are routed to the timeout handler.
var TimeoutSignals = []os.Signal{
	unix.SIGALRM,
	unix.SIGUSR2,
}

func IsTimeoutSignal(sig os.Signal) bool {
	for _, s := range TimeoutSignals {
		if s == sig {
			return true
		}
	}
	return false
}

// SignalExitCode is the exit code a fault handler uses for sig.
func SignalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return SignalExitBase + int(s)
	}
	return SignalExitBase + int(unix.SIGABRT)
}

var (
	installOnce sync.Once
	installed   atomic.Pointer[Context]
)

// Install routes fault signals to c. The dispatcher goroutine is started once
// per process; later calls only change the receiving context.
func Install(c *Context) error {
	if c == nil {
		return errors.New("no fault context to install")
	}
	installed.Store(c)
	installOnce.Do(func() {
		ch := make(chan os.Signal, 8)
		signal.Notify(ch, append(append([]os.Signal{}, CrashSignals...), TimeoutSignals...)...)
		go func() {
			for sig := range ch {
				if target := installed.Load(); target != nil {
					target.Dispatch(sig)
				}
			}
		}()
	})
	return nil
}

// Installed returns the context currently receiving signals.
func Installed() *Context {
	return installed.Load()
}
