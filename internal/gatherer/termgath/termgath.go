package termgath

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/gatherer/strtrim"
	"github.com/programme-lv/fuzzexec/internal/solutions"
)

const previewHeight, previewWidth = 4, 60

type TerminalGatherer struct {
	StartedAt time.Time
	out       io.Writer

	bold   *color.Color
	red    *color.Color
	yellow *color.Color
	green  *color.Color
	faint  *color.Color
}

func New() *TerminalGatherer { return NewWriter(os.Stdout) }

func NewWriter(w io.Writer) *TerminalGatherer {
	return &TerminalGatherer{
		StartedAt: time.Now(),
		out:       w,
		bold:      color.New(color.Bold),
		red:       color.New(color.FgRed, color.Bold),
		yellow:    color.New(color.FgYellow),
		green:     color.New(color.FgGreen),
		faint:     color.New(color.Faint),
	}
}

func (t *TerminalGatherer) StartRun(systemInfo string) {
	t.bold.Fprintln(t.out, "== Run started ==")
	if systemInfo != "" {
		fmt.Fprintln(t.out, "System info:")
		t.faint.Fprintln(t.out, systemInfo)
	}
}

func (t *TerminalGatherer) NewSolution(input executor.Input, kind api.ExitKind, total int) {
	c := t.red
	if kind == api.Timeout {
		c = t.yellow
	}
	c.Fprintf(t.out, "!! %s solution #%d", kind, total)
	fmt.Fprintf(t.out, " %s (%d bytes)\n", solutions.Sha256Hex(input)[:12], len(input))
	if p := strtrim.Preview(input, previewHeight, previewWidth); p != nil {
		t.faint.Fprintf(t.out, "%q\n", *p)
	}
}

func (t *TerminalGatherer) RestartForPersistence(executions uint64) {
	t.yellow.Fprintf(t.out, "-- Restarting after %d executions --\n", executions)
}

func (t *TerminalGatherer) TargetRestarted(reason string) {
	t.yellow.Fprintf(t.out, "-> Target restarted: %s\n", reason)
}

func (t *TerminalGatherer) FinishRun(executions uint64, err error) {
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	if err != nil {
		t.red.Fprintf(t.out, "== Internal error after %d executions: %v ==\n", executions, err)
		return
	}
	t.green.Fprintf(t.out, "== Run finished: %d executions in %s ==\n", executions, dur)
}
