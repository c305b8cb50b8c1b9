package forked_test

import (
	"bytes"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/forked"
	"github.com/programme-lv/fuzzexec/internal/harness"
	"github.com/programme-lv/fuzzexec/internal/logging"
	"github.com/programme-lv/fuzzexec/internal/shmem"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	harness.Simple("fk-ok", func(executor.Input) api.ExitKind { return api.Ok })
	harness.Simple("fk-exit-zero", func(executor.Input) api.ExitKind { os.Exit(0); return api.Ok })
	harness.Simple("fk-exit-alarm", func(executor.Input) api.ExitKind {
		os.Exit(128 + int(unix.SIGALRM))
		return api.Ok
	})
	harness.Simple("fk-exit-segv", func(executor.Input) api.ExitKind {
		os.Exit(128 + int(unix.SIGSEGV))
		return api.Ok
	})
	harness.Simple("fk-verdict", func(in executor.Input) api.ExitKind {
		kind, _ := api.ParseExitKind(string(in))
		return kind
	})
	harness.Simple("fk-panic", func(executor.Input) api.ExitKind { panic("boom") })
	harness.Simple("fk-hang", func(executor.Input) api.ExitKind {
		time.Sleep(time.Minute)
		return api.Ok
	})
	harness.Register("fk-map", func(regions []*shmem.Region) (executor.Harness, executor.Observers) {
		m := executor.NewMapObserver("shared", regions[0].Bytes())
		return func(in executor.Input) api.ExitKind {
			for _, b := range in {
				m.Set(int(b - '0'))
			}
			return api.Ok
		}, executor.Observers{m}
	})

	forked.Main()
	os.Exit(m.Run())
}

type trialState struct{ execs atomic.Uint64 }

func (s *trialState) Executions() uint64 { return s.execs.Load() }
func (s *trialState) IncExecutions()     { s.execs.Add(1) }
func (s *trialState) AddSolution(executor.Input, api.ExitKind) (int, bool, error) {
	return 0, true, nil
}

func run(t *testing.T, ex *forked.Executor, input string) api.ExitKind {
	t.Helper()
	state := &trialState{}
	kind, err := ex.RunTarget(nil, state, nil, executor.Input(input))
	require.NoError(t, err)
	require.Equal(t, uint64(1), state.Executions())
	ex.PostRunReset()
	ex.PostRunReset()
	return kind
}

func TestChildExitCodes(t *testing.T) {
	cases := map[string]api.ExitKind{
		"fk-ok":         api.Ok,
		"fk-exit-zero":  api.Ok,
		"fk-exit-alarm": api.Timeout,
		"fk-exit-segv":  api.Crash,
		"fk-panic":      api.Crash,
		"kill":          api.Crash,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			ex, err := forked.New(name)
			require.NoError(t, err)
			require.Equal(t, want, run(t, ex, "kill"))
		})
	}
}

func TestHarnessVerdictIsForwarded(t *testing.T) {
	ex, err := forked.New("fk-verdict")
	require.NoError(t, err)
	require.Equal(t, api.Crash, run(t, ex, "crash"))
	require.Equal(t, api.Timeout, run(t, ex, "timeout"))
	require.Equal(t, api.Ok, run(t, ex, "ok"))
}

func TestTimedChildIsStopped(t *testing.T) {
	ex, err := forked.NewWithTimeout("fk-hang", 100*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	require.Equal(t, api.Timeout, run(t, ex, ""))
	require.Less(t, time.Since(start), 30*time.Second)
}

func TestSharedMapReachesParent(t *testing.T) {
	region, m, err := forked.NewSharedMap("shared", 10)
	require.NoError(t, err)
	ex, err := forked.New("fk-map", forked.WithRegions(region), forked.WithObservers(m))
	require.NoError(t, err)
	defer ex.Close()

	m.Set(9)
	require.Equal(t, api.Ok, run(t, ex, "135"))
	require.Equal(t, []byte{0, 1, 0, 1, 0, 1, 0, 0, 0, 0}, m.Map())
}

func TestUnknownHarness(t *testing.T) {
	_, err := forked.New("no-such-harness")
	require.ErrorIs(t, err, harness.ErrUnknown)
}

func TestChildLogsThroughConfiguredHandler(t *testing.T) {
	var stderr bytes.Buffer
	ex, err := forked.New("fk-panic",
		forked.WithChildOutput(io.Discard, &stderr),
		forked.WithChildLog(logging.Options{Level: "info", Format: "json"}),
	)
	require.NoError(t, err)

	require.Equal(t, api.Crash, run(t, ex, "x"))
	require.Contains(t, stderr.String(), `"msg":"harness panicked"`)
	require.Contains(t, stderr.String(), `"level":"ERROR"`)
}
