// Package target manages the out-of-process program the network executor
// talks to.
package target

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Spec describes how to launch the target.
type Spec struct {
	Path string
	// Options are whitespace separated arguments.
	Options string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
}

func (s Spec) Args() []string {
	return strings.Fields(s.Options)
}

// Process is a restartable handle on the target. At most one instance of the
// target runs at a time.
type Process struct {
	spec   Spec
	logger *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	started  bool
	done     chan struct{}
	waitErr  error
	restarts int
}

func New(spec Spec, logger *slog.Logger) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{spec: spec, logger: logger}
}

func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		panic("target should not be started twice")
	}
	return p.startLocked()
}

func (p *Process) startLocked() error {
	cmd := exec.Command(p.spec.Path, p.spec.Args()...)
	cmd.Dir = p.spec.Dir
	cmd.Stdout = p.spec.Stdout
	cmd.Stderr = p.spec.Stderr
	// own process group so Kill takes helpers down too
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start target %s: %w", p.spec.Path, err)
	}
	p.cmd = cmd
	p.started = true
	p.waitErr = nil
	done := make(chan struct{})
	p.done = done
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.waitErr = err
		}
		p.mu.Unlock()
		close(done)
	}()
	p.logger.Info("target started", "path", p.spec.Path, "pid", cmd.Process.Pid)
	return nil
}

// Started reports whether a handle is held.
func (p *Process) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Exited reports whether the held target process has terminated.
func (p *Process) Exited() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Kill terminates the target and waits for it to be reaped.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killLocked()
}

func (p *Process) killLocked() error {
	if !p.started {
		return nil
	}
	p.started = false
	pid := p.cmd.Process.Pid
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("failed to kill target %d: %w", pid, err)
	}
	done := p.done
	p.mu.Unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		p.logger.Warn("target did not exit after kill", "pid", pid)
	}
	p.mu.Lock()
	return nil
}

// Restart kills the current instance, if any, and starts a new one.
func (p *Process) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.killLocked(); err != nil {
		return err
	}
	p.restarts++
	return p.startLocked()
}

// Restarts is the number of restarts since the handle was created.
func (p *Process) Restarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restarts
}

// ExitErr is the error returned by the last instance's Wait, if it exited.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

var _ io.Closer = (*Process)(nil)

func (p *Process) Close() error {
	return p.Kill()
}
