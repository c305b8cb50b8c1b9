package respbuilder_test

import (
	"errors"
	"testing"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/programme-lv/fuzzexec/internal/gatherer/respbuilder"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	b := respbuilder.New("run-3")
	var g internal.Gatherer = b

	g.StartRun("linux/amd64")
	g.NewSolution(executor.Input("abc"), api.Crash, 1)
	g.NewSolution(executor.Input("hang"), api.Timeout, 2)
	g.TargetRestarted("exited")
	g.TargetRestarted("probe reported target down")

	s := b.Summary()
	require.Equal(t, api.Finished, s.Status)
	require.Empty(t, s.FinishedAt)

	g.FinishRun(12, nil)
	s = b.Summary()
	require.Equal(t, "run-3", s.RunUuid)
	require.Equal(t, "linux/amd64", s.SystemInfo)
	require.Equal(t, uint64(12), s.Executions)
	require.Equal(t, 2, s.TargetRestarts)
	require.Equal(t, 1, s.CrashSolutions)
	require.Equal(t, 1, s.TimeoutSolutions)
	require.Len(t, s.Solutions, 2)
	require.Equal(t, 4, s.Solutions[1].InputBytes)
	require.Nil(t, s.ErrorMessage)
	require.NotEmpty(t, s.FinishedAt)
}

func TestSummaryInternalError(t *testing.T) {
	b := respbuilder.New("run-4")
	b.FinishRun(1, errors.New("target exited during startup"))

	s := b.Summary()
	require.Equal(t, api.InternalError, s.Status)
	require.NotNil(t, s.ErrorMessage)
	require.Equal(t, "target exited during startup", *s.ErrorMessage)
}

func TestMultiFansOut(t *testing.T) {
	a, b := respbuilder.New("a"), respbuilder.New("b")
	m := internal.Multi{a, b}
	m.StartRun("x")
	m.NewSolution(executor.Input("1"), api.Crash, 1)
	m.RestartForPersistence(3)
	m.FinishRun(3, nil)

	for _, r := range []*respbuilder.Builder{a, b} {
		s := r.Summary()
		require.Equal(t, 1, s.CrashSolutions)
		require.Equal(t, 1, s.PersistRestarts)
		require.Equal(t, uint64(3), s.Executions)
	}
}
