package termgath_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/gatherer/termgath"
	"github.com/stretchr/testify/require"
)

func TestOutput(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	g := termgath.NewWriter(&buf)
	g.StartRun("8 cpus")
	g.NewSolution(executor.Input("abc"), api.Crash, 1)
	g.TargetRestarted("probe reported target down")
	g.FinishRun(10, nil)

	out := buf.String()
	require.Contains(t, out, "== Run started ==")
	require.Contains(t, out, "8 cpus")
	require.Contains(t, out, "!! crash solution #1 ba7816bf8f01 (3 bytes)")
	require.Contains(t, out, "\"abc\"")
	require.Contains(t, out, "-> Target restarted: probe reported target down")
	require.Contains(t, out, "== Run finished: 10 executions in")

	buf.Reset()
	g.FinishRun(2, errors.New("connect failed"))
	require.Equal(t, "== Internal error after 2 executions: connect failed ==\n", buf.String())
}
