package capture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/capture"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/stretchr/testify/require"
)

type trialState struct{ execs atomic.Uint64 }

func (s *trialState) Executions() uint64 { return s.execs.Load() }
func (s *trialState) IncExecutions()     { s.execs.Add(1) }
func (s *trialState) AddSolution(executor.Input, api.ExitKind) (int, bool, error) {
	return 0, true, nil
}

type fakeCapturer struct {
	setupErr  error
	quitEarly bool
	running   atomic.Int32
	paths     []string
}

func (f *fakeCapturer) Capture(ctx context.Context, path string, ready func(error)) error {
	if f.setupErr != nil {
		ready(f.setupErr)
		return f.setupErr
	}
	if f.quitEarly {
		return nil
	}
	if err := os.WriteFile(path, []byte("pcap"), 0644); err != nil {
		return err
	}
	f.paths = append(f.paths, path)
	f.running.Add(1)
	defer f.running.Add(-1)
	ready(nil)
	<-ctx.Done()
	return nil
}

type fakeScorer struct {
	triggered []int
	err       error
	calls     int
	existed   bool
}

func (f *fakeScorer) Score(_ context.Context, path string) (mapset.Set[int], error) {
	f.calls++
	_, err := os.Stat(path)
	f.existed = err == nil
	if f.err != nil {
		return nil, f.err
	}
	return mapset.NewSet(f.triggered...), nil
}

func TestCaptureIsScoredIntoMap(t *testing.T) {
	dir := t.TempDir()
	cp := &fakeCapturer{}
	sc := &fakeScorer{triggered: []int{1, 5, 99}}
	m := executor.NewMapObserver("hmm", make([]byte, 8))

	ex, err := capture.New(cp, sc, m, dir)
	require.NoError(t, err)

	state := &trialState{}
	kind, err := ex.RunTarget(nil, state, nil, executor.Input("x"))
	require.NoError(t, err)
	require.Equal(t, api.Ok, kind)
	require.Equal(t, uint64(1), state.Executions())
	require.Equal(t, int32(1), cp.running.Load(), "capture is live when RunTarget returns")

	ex.PostRunReset()
	require.Equal(t, int32(0), cp.running.Load(), "capture goroutine is joined")
	require.Equal(t, 1, sc.calls)
	require.True(t, sc.existed)
	require.Equal(t, []byte{0, 1, 0, 0, 0, 1, 0, 0}, m.Map())

	_, err = os.Stat(cp.paths[0])
	require.True(t, os.IsNotExist(err), "capture file is removed after scoring")

	ex.PostRunReset()
	require.Equal(t, 1, sc.calls)

	// the next trial starts from a clean map
	_, err = ex.RunTarget(nil, state, nil, executor.Input("y"))
	require.NoError(t, err)
	require.Equal(t, 0, m.CountNonZero())
	require.NoError(t, ex.Close())
	require.Equal(t, 2, sc.calls)
}

func TestKeepDumps(t *testing.T) {
	cp := &fakeCapturer{}
	ex, err := capture.New(cp, &fakeScorer{}, executor.NewMapObserver("hmm", make([]byte, 2)), t.TempDir(), capture.WithKeepDumps(true))
	require.NoError(t, err)

	_, err = ex.RunTarget(nil, &trialState{}, nil, executor.Input("x"))
	require.NoError(t, err)
	ex.PostRunReset()
	require.FileExists(t, cp.paths[0])
	require.Equal(t, ".pcap", filepath.Ext(cp.paths[0]))
}

func TestCaptureSetupFailure(t *testing.T) {
	boom := errors.New("permission denied")
	ex, err := capture.New(&fakeCapturer{setupErr: boom}, &fakeScorer{}, executor.NewMapObserver("hmm", make([]byte, 2)), t.TempDir())
	require.NoError(t, err)

	state := &trialState{}
	_, err = ex.RunTarget(nil, state, nil, executor.Input("x"))
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint64(1), state.Executions())
	ex.PostRunReset()
}

func TestCaptureEndingEarlyIsAnError(t *testing.T) {
	sc := &fakeScorer{}
	ex, err := capture.New(&fakeCapturer{quitEarly: true}, sc, executor.NewMapObserver("hmm", make([]byte, 2)), t.TempDir())
	require.NoError(t, err)

	_, err = ex.RunTarget(nil, &trialState{}, nil, executor.Input("x"))
	require.Error(t, err)
	ex.PostRunReset()
	require.Zero(t, sc.calls)
}

func TestScorerFailureLeavesMapEmpty(t *testing.T) {
	m := executor.NewMapObserver("hmm", make([]byte, 4))
	ex, err := capture.New(&fakeCapturer{}, &fakeScorer{err: errors.New("model crashed")}, m, t.TempDir())
	require.NoError(t, err)

	_, err = ex.RunTarget(nil, &trialState{}, nil, executor.Input("x"))
	require.NoError(t, err)
	ex.PostRunReset()
	require.Zero(t, m.CountNonZero())
}

func TestInterleavedWithCapture(t *testing.T) {
	cp := &fakeCapturer{}
	m := executor.NewMapObserver("hmm", make([]byte, 4))
	hmm, err := capture.New(cp, &fakeScorer{triggered: []int{2}}, m, t.TempDir())
	require.NoError(t, err)

	var liveDuringTrial bool
	secondary := &probeExec{run: func() { liveDuringTrial = cp.running.Load() == 1 }, kind: api.Crash}

	state := &trialState{}
	ex := executor.NewInterleaved(hmm, secondary)
	kind, err := ex.RunTarget(nil, state, nil, executor.Input("USER a\r\n"))
	require.NoError(t, err)
	require.Equal(t, api.Crash, kind)
	require.True(t, liveDuringTrial)
	require.Equal(t, uint64(1), state.Executions())
	require.Equal(t, []byte{0, 0, 1, 0}, m.Map())
	require.Equal(t, "hmm", ex.Observers()[0].Name())
}

type probeExec struct {
	run  func()
	kind api.ExitKind
}

func (p *probeExec) Observers() executor.Observers { return nil }
func (p *probeExec) RunTarget(_ executor.Driver, state executor.State, _ executor.EventSink, _ executor.Input) (api.ExitKind, error) {
	state.IncExecutions()
	p.run()
	return p.kind, nil
}
func (p *probeExec) PostRunReset() {}

func TestTcpdumpArgs(t *testing.T) {
	td := &capture.Tcpdump{Interface: "lo", Port: 8082}
	require.Equal(t, []string{"-i", "lo", "-U", "-w", "/tmp/a.pcap", "tcp and port 8082"}, td.Args("/tmp/a.pcap"))
}
