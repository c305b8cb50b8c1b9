package executor_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/executor/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type countState struct {
	execs     atomic.Uint64
	solutions []executor.Input
}

func (s *countState) Executions() uint64 { return s.execs.Load() }
func (s *countState) IncExecutions()     { s.execs.Add(1) }
func (s *countState) AddSolution(in executor.Input, _ api.ExitKind) (int, bool, error) {
	s.solutions = append(s.solutions, in)
	return len(s.solutions), true, nil
}

// fakeExec behaves like a real executor: it counts its own executions.
type fakeExec struct {
	kind   api.ExitKind
	err    error
	obs    executor.Observers
	runs   int
	resets int
	log    *[]string
	name   string
}

func (f *fakeExec) Observers() executor.Observers { return f.obs }

func (f *fakeExec) RunTarget(_ executor.Driver, state executor.State, _ executor.EventSink, _ executor.Input) (api.ExitKind, error) {
	state.IncExecutions()
	f.runs++
	if f.log != nil {
		*f.log = append(*f.log, "run "+f.name)
	}
	return f.kind, f.err
}

func (f *fakeExec) PostRunReset() {
	f.resets++
	if f.log != nil {
		*f.log = append(*f.log, "reset "+f.name)
	}
}

func TestMergeExitKinds(t *testing.T) {
	cases := []struct {
		a, b api.ExitKind
		want api.ExitKind
	}{
		{api.Ok, api.Ok, api.Ok},
		{api.Ok, api.Timeout, api.Timeout},
		{api.Timeout, api.Ok, api.Timeout},
		{api.Timeout, api.Timeout, api.Timeout},
		{api.Crash, api.Ok, api.Crash},
		{api.Ok, api.Crash, api.Crash},
		{api.Timeout, api.Crash, api.Crash},
		{api.Crash, api.Timeout, api.Crash},
		{api.Crash, api.Crash, api.Crash},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, executor.MergeExitKinds(c.a, c.b), "%s + %s", c.a, c.b)
	}
}

func TestInterleavedRunsInOrderAndCountsOnce(t *testing.T) {
	var log []string
	primaryObs := executor.NewMapObserver("hmm", make([]byte, 4))
	a := &fakeExec{kind: api.Ok, name: "a", log: &log, obs: executor.Observers{primaryObs}}
	b := &fakeExec{kind: api.Crash, name: "b", log: &log}

	state := &countState{}
	ex := executor.NewInterleaved(a, b)

	kind, err := ex.RunTarget(nil, state, nil, executor.Input("x"))
	require.NoError(t, err)
	require.Equal(t, api.Crash, kind)
	require.Equal(t, uint64(1), state.Executions())
	require.Equal(t, []string{"run a", "run b", "reset a", "reset b"}, log)

	obs := ex.Observers()
	require.Len(t, obs, 1)
	require.Equal(t, "hmm", obs[0].Name())

	ex.PostRunReset()
	ex.PostRunReset()
	require.Equal(t, 1, a.resets)
	require.Equal(t, 1, b.resets)
}

func TestInterleavedPrimaryErrorStillResets(t *testing.T) {
	ctrl := gomock.NewController(t)
	primary := mocks.NewMockExecutor(ctrl)
	secondary := mocks.NewMockExecutor(ctrl)

	gomock.InOrder(
		primary.EXPECT().RunTarget(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(api.ExitKind(""), errors.New("boom")),
		primary.EXPECT().PostRunReset(),
		secondary.EXPECT().PostRunReset(),
	)

	state := &countState{}
	_, err := executor.NewInterleaved(primary, secondary).RunTarget(nil, state, nil, executor.Input("x"))
	require.Error(t, err)
	require.Equal(t, uint64(1), state.Executions())
}

func TestSaveIfObjective(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := mocks.NewMockDriver(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	state := &countState{}
	input := executor.Input("abc")

	driver.EXPECT().IsObjective(state, sink, input, gomock.Any(), api.Crash).Return(true, nil)
	sink.EXPECT().NewSolution(input, api.Crash, 1)

	kept, err := executor.SaveIfObjective(driver, state, sink, input, nil, api.Crash)
	require.NoError(t, err)
	require.True(t, kept)
	require.Len(t, state.solutions, 1)

	driver.EXPECT().IsObjective(state, sink, input, gomock.Any(), api.Ok).Return(false, nil)
	kept, err = executor.SaveIfObjective(driver, state, sink, input, nil, api.Ok)
	require.NoError(t, err)
	require.False(t, kept)
	require.Len(t, state.solutions, 1)
}

func TestWithObservers(t *testing.T) {
	m := executor.NewMapObserver("map", make([]byte, 8))
	m.Set(3)
	inner := &fakeExec{kind: api.Ok}
	state := &countState{}

	ex := executor.WithObservers(inner, m)
	kind, err := ex.RunTarget(nil, state, nil, executor.Input("a"))
	require.NoError(t, err)
	require.Equal(t, api.Ok, kind)
	require.Equal(t, uint64(1), state.Executions())
	require.Equal(t, 0, m.CountNonZero(), "map is cleared before the trial")

	ex.PostRunReset()
	require.Equal(t, 1, inner.resets)
}

func TestInputClone(t *testing.T) {
	in := executor.Input("abc")
	c := in.Clone()
	c[0] = 'x'
	assert.Equal(t, "abc", string(in))
	assert.Nil(t, executor.Input(nil).Clone())
}
