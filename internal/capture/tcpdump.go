package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Capturer records traffic into path until ctx is cancelled. It calls ready
// once recording has begun, or with the reason it could not begin.
type Capturer interface {
	Capture(ctx context.Context, path string, ready func(error)) error
}

// Tcpdump captures TCP traffic on one port with the tcpdump binary.
type Tcpdump struct {
	Path      string
	Interface string
	Port      int
	Logger    *slog.Logger
}

func (t *Tcpdump) Args(path string) []string {
	return []string{
		"-i", t.Interface,
		"-U",
		"-w", path,
		"tcp and port " + strconv.Itoa(t.Port),
	}
}

func (t *Tcpdump) Capture(ctx context.Context, path string, ready func(error)) error {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bin := t.Path
	if bin == "" {
		bin = "tcpdump"
	}

	cmd := exec.Command(bin, t.Args(path)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to attach to tcpdump stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start tcpdump: %w", err)
	}

	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			line := sc.Text()
			if strings.Contains(line, "listening on") {
				ready(nil)
				continue
			}
			logger.Debug("tcpdump", "line", line)
		}
	}()

	select {
	case <-ctx.Done():
		// SIGINT lets tcpdump flush the capture file
		_ = cmd.Process.Signal(os.Interrupt)
		<-scanned
	case <-scanned:
	}
	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil
	}
	if waitErr == nil {
		waitErr = errors.New("no error reported")
	}
	return fmt.Errorf("tcpdump exited before it was stopped: %w", waitErr)
}
