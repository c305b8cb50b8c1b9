// Package probe checks whether the network target is still alive.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

type Outcome int

const (
	Alive Outcome = iota
	// Unreachable is also reported for a target that is only slow to answer.
	Unreachable
)

func (o Outcome) String() string {
	switch o {
	case Alive:
		return "alive"
	case Unreachable:
		return "unreachable"
	}
	return "unknown"
}

var ErrProbe = errors.New("liveness probe failed")

// Prober reports whether the host at addr answers.
type Prober interface {
	Probe(addr string) (Outcome, error)
}

// AddrPlaceholder in Command.Args is replaced with the probed address.
const AddrPlaceholder = "{addr}"

// Command runs an external probe. Exit status 0 means alive, 1 means
// unreachable and anything else is a probe failure.
type Command struct {
	Path string
	Args []string
	// Deadline kills the probe when it runs longer.
	Deadline time.Duration
}

// NewPing returns a single-packet ICMP probe.
func NewPing(wait time.Duration) *Command {
	secs := int(wait.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &Command{
		Path:     "ping",
		Args:     []string{"-c", "1", "-W", strconv.Itoa(secs), AddrPlaceholder},
		Deadline: time.Duration(secs)*time.Second + 5*time.Second,
	}
}

func (c *Command) Probe(addr string) (Outcome, error) {
	ctx := context.Background()
	if c.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Deadline)
		defer cancel()
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strings.ReplaceAll(a, AddrPlaceholder, addr)
	}
	return Classify(exec.CommandContext(ctx, c.Path, args...).Run())
}

// Classify maps the result of running a probe command to an outcome.
func Classify(runErr error) (Outcome, error) {
	if runErr == nil {
		return Alive, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return 0, fmt.Errorf("%w: failed to run probe: %w", ErrProbe, runErr)
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 0, fmt.Errorf("%w: probe killed by %s", ErrProbe, ws.Signal())
	}
	switch code := exitErr.ExitCode(); code {
	case 1:
		return Unreachable, nil
	case 2:
		return 0, fmt.Errorf("%w: error executing probe", ErrProbe)
	default:
		return 0, fmt.Errorf("%w: unexpected probe exit code %d", ErrProbe, code)
	}
}
