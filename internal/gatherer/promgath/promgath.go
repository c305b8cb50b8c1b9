// Package promgath exposes run events as Prometheus metrics.
package promgath

import (
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"github.com/prometheus/client_golang/prometheus"
)

type PromGatherer struct {
	solutions       *prometheus.CounterVec
	persistRestarts prometheus.Counter
	targetRestarts  prometheus.Counter
	executions      prometheus.Gauge
	running         prometheus.Gauge
}

// New registers the run metrics on reg.
func New(reg prometheus.Registerer) (*PromGatherer, error) {
	g := &PromGatherer{
		solutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuzzexec_solutions_total",
				Help: "Solutions kept by the objective, by verdict",
			},
			[]string{"verdict"},
		),
		persistRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuzzexec_persist_restarts_total",
			Help: "Process restarts requested by a fault handler",
		}),
		targetRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuzzexec_target_restarts_total",
			Help: "Network target restarts",
		}),
		executions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuzzexec_executions",
			Help: "Executions reported by the last finished or faulted run",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuzzexec_run_active",
			Help: "1 while a run is in progress",
		}),
	}
	for _, c := range []prometheus.Collector{g.solutions, g.persistRestarts, g.targetRestarts, g.executions, g.running} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	for _, k := range []api.ExitKind{api.Crash, api.Timeout} {
		g.solutions.WithLabelValues(k.String())
	}
	return g, nil
}

func (g *PromGatherer) StartRun(string) {
	g.running.Set(1)
}

func (g *PromGatherer) NewSolution(_ executor.Input, kind api.ExitKind, _ int) {
	g.solutions.WithLabelValues(kind.String()).Inc()
}

func (g *PromGatherer) RestartForPersistence(executions uint64) {
	g.persistRestarts.Inc()
	g.executions.Set(float64(executions))
}

func (g *PromGatherer) TargetRestarted(string) {
	g.targetRestarts.Inc()
}

func (g *PromGatherer) FinishRun(executions uint64, _ error) {
	g.executions.Set(float64(executions))
	g.running.Set(0)
}
