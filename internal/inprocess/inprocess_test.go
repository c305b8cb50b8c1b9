package inprocess_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/executor/mocks"
	"github.com/programme-lv/fuzzexec/internal/faultctx"
	"github.com/programme-lv/fuzzexec/internal/inprocess"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type trialState struct {
	execs     atomic.Uint64
	solutions atomic.Int64
}

func (s *trialState) Executions() uint64 { return s.execs.Load() }
func (s *trialState) IncExecutions()     { s.execs.Add(1) }
func (s *trialState) AddSolution(executor.Input, api.ExitKind) (int, bool, error) {
	return int(s.solutions.Add(1)), true, nil
}

type exitRecorder struct {
	mu    sync.Mutex
	codes []int
	done  chan struct{}
}

func newExitRecorder() *exitRecorder {
	return &exitRecorder{done: make(chan struct{})}
}

func (r *exitRecorder) exit(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
	if len(r.codes) == 1 {
		close(r.done)
	}
}

func (r *exitRecorder) Codes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.codes...)
}

func TestRunTargetCountsAndClears(t *testing.T) {
	rec := newExitRecorder()
	fc := faultctx.New(faultctx.WithExit(rec.exit))
	m := executor.NewMapObserver("edges", make([]byte, 16))

	var seen bool
	ex, err := inprocess.New(func(in executor.Input) api.ExitKind {
		seen = fc.InFlight()
		m.Set(len(in))
		if string(in) == "bad" {
			return api.Crash
		}
		return api.Ok
	}, inprocess.WithFaultContext(fc), inprocess.WithObservers(m))
	require.NoError(t, err)

	state := &trialState{}
	kind, err := ex.RunTarget(nil, state, nil, executor.Input("good"))
	require.NoError(t, err)
	require.Equal(t, api.Ok, kind)
	require.True(t, seen, "trial is published while the harness runs")
	require.False(t, fc.InFlight())
	require.Equal(t, uint64(1), state.Executions())
	require.Equal(t, 1, m.CountNonZero())

	kind, err = ex.RunTarget(nil, state, nil, executor.Input("bad"))
	require.NoError(t, err)
	require.Equal(t, api.Crash, kind)
	require.Equal(t, uint64(2), state.Executions())

	ex.PostRunReset()
	ex.PostRunReset()
	require.Empty(t, rec.Codes())
}

func TestPanicIsReportedAsCrash(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := mocks.NewMockDriver(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	state := &trialState{}

	driver.EXPECT().IsObjective(state, sink, executor.Input("abc"), gomock.Any(), api.Crash).Return(true, nil)
	sink.EXPECT().NewSolution(executor.Input("abc"), api.Crash, 1)
	sink.EXPECT().RestartForPersistence(uint64(1))

	rec := newExitRecorder()
	fc := faultctx.New(faultctx.WithExit(rec.exit))
	ex, err := inprocess.New(func(in executor.Input) api.ExitKind {
		var p *int
		if string(in) == "abc" {
			return api.ExitKind(rune(*p))
		}
		return api.Ok
	}, inprocess.WithFaultContext(fc))
	require.NoError(t, err)

	kind, err := ex.RunTarget(driver, state, sink, executor.Input("abc"))
	require.NoError(t, err)
	require.Equal(t, api.Crash, kind)
	require.Equal(t, []int{faultctx.SignalExitBase + 6}, rec.Codes())
	require.False(t, fc.InFlight())
	require.Equal(t, uint64(1), state.Executions())
}

func TestTimeoutIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := mocks.NewMockDriver(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	state := &trialState{}

	driver.EXPECT().IsObjective(state, sink, executor.Input("hang"), gomock.Any(), api.Timeout).Return(true, nil)
	sink.EXPECT().NewSolution(executor.Input("hang"), api.Timeout, 1)
	sink.EXPECT().RestartForPersistence(uint64(1))

	rec := newExitRecorder()
	fc := faultctx.New(faultctx.WithExit(rec.exit))
	ex, err := inprocess.New(func(in executor.Input) api.ExitKind {
		select {
		case <-rec.done:
		case <-time.After(5 * time.Second):
		}
		return api.Ok
	}, inprocess.WithFaultContext(fc), inprocess.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = ex.RunTarget(driver, state, sink, executor.Input("hang"))
	require.NoError(t, err)
	require.Equal(t, []int{faultctx.TimeoutExitCode}, rec.Codes())
	require.False(t, fc.InFlight())

	ex.PostRunReset()
}

func TestFastHarnessBeatsTimer(t *testing.T) {
	rec := newExitRecorder()
	fc := faultctx.New(faultctx.WithExit(rec.exit))
	ex, err := inprocess.New(func(executor.Input) api.ExitKind { return api.Ok },
		inprocess.WithFaultContext(fc), inprocess.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	state := &trialState{}
	for i := 0; i < 5; i++ {
		kind, err := ex.RunTarget(nil, state, nil, executor.Input("x"))
		require.NoError(t, err)
		require.Equal(t, api.Ok, kind)
		ex.PostRunReset()
	}
	time.Sleep(60 * time.Millisecond)
	require.Empty(t, rec.Codes())
	require.Equal(t, uint64(5), state.Executions())
}
