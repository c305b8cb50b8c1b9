package promgath_test

import (
	"testing"

	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/gatherer/promgath"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			key := f.GetName()
			for _, l := range m.GetLabel() {
				key += "/" + l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[key] = m.GetGauge().GetValue()
			}
		}
	}
	return values
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	g, err := promgath.New(reg)
	require.NoError(t, err)

	g.StartRun("")
	g.NewSolution(nil, api.Crash, 1)
	g.NewSolution(nil, api.Crash, 2)
	g.NewSolution(nil, api.Timeout, 3)
	g.TargetRestarted("exited")
	g.RestartForPersistence(5)

	v := gather(t, reg)
	require.Equal(t, 2.0, v["fuzzexec_solutions_total/crash"])
	require.Equal(t, 1.0, v["fuzzexec_solutions_total/timeout"])
	require.Equal(t, 1.0, v["fuzzexec_target_restarts_total"])
	require.Equal(t, 1.0, v["fuzzexec_persist_restarts_total"])
	require.Equal(t, 5.0, v["fuzzexec_executions"])
	require.Equal(t, 1.0, v["fuzzexec_run_active"])

	g.FinishRun(8, nil)
	v = gather(t, reg)
	require.Equal(t, 8.0, v["fuzzexec_executions"])
	require.Equal(t, 0.0, v["fuzzexec_run_active"])
}

func TestDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := promgath.New(reg)
	require.NoError(t, err)
	_, err = promgath.New(reg)
	require.Error(t, err)
}
