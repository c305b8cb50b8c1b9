package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/programme-lv/fuzzexec/api"
	"github.com/programme-lv/fuzzexec/internal/executor"
	"golang.org/x/time/rate"
)

// Fuzzer keeps inputs whose verdict is an objective and tracks the maximum
// value ever seen in each feedback map.
type Fuzzer struct {
	objectives mapset.Set[api.ExitKind]
	feedback   []string

	mu     sync.Mutex
	maxMap map[string][]byte
	corpus []executor.Input

	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ executor.Driver = (*Fuzzer)(nil)

type Option func(*Fuzzer)

// WithObjectives replaces the default {Crash, Timeout} objective set.
func WithObjectives(kinds ...api.ExitKind) Option {
	return func(f *Fuzzer) { f.objectives = mapset.NewSet(kinds...) }
}

// WithFeedbackMaps names the map observers whose new maxima put an input into
// the corpus.
func WithFeedbackMaps(names ...string) Option {
	return func(f *Fuzzer) { f.feedback = append(f.feedback, names...) }
}

// WithRateLimit caps trials per second. Zero or less means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(f *Fuzzer) {
		if perSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fuzzer) { f.logger = l }
}

func New(opts ...Option) *Fuzzer {
	f := &Fuzzer{
		objectives: mapset.NewSet(api.Crash, api.Timeout),
		maxMap:     make(map[string][]byte),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsObjective does not lock: it is reached from fault handlers while a trial
// may be mid-flight.
func (f *Fuzzer) IsObjective(_ executor.State, _ executor.EventSink, _ executor.Input, _ executor.Observers, kind api.ExitKind) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("unknown verdict %q", kind)
	}
	return f.objectives.Contains(kind), nil
}

// Novel merges the feedback maps of observers into the running maxima and
// reports whether any slot grew.
func (f *Fuzzer) Novel(observers executor.Observers) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	novel := false
	for _, name := range f.feedback {
		o, ok := observers.Lookup(name)
		if !ok {
			continue
		}
		mo, ok := o.(*executor.MapObserver)
		if !ok {
			continue
		}
		top, ok := f.maxMap[name]
		if !ok {
			top = make([]byte, mo.Len())
			f.maxMap[name] = top
		}
		for i, v := range mo.Map() {
			if i < len(top) && v > top[i] {
				top[i] = v
				novel = true
			}
		}
	}
	return novel
}

// Corpus returns the inputs that produced new feedback.
func (f *Fuzzer) Corpus() []executor.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executor.Input(nil), f.corpus...)
}

// MaxMap returns a copy of the running maximum for a feedback map.
func (f *Fuzzer) MaxMap(name string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.maxMap[name]...)
}

// Outcome is the result of one trial.
type Outcome struct {
	Kind      api.ExitKind
	Novel     bool
	Objective bool
}

// Trial runs input once. The executor is always reset before the observers
// are evaluated since some executors fill their maps during the reset.
func (f *Fuzzer) Trial(ex executor.Executor, state executor.State, sink executor.EventSink, input executor.Input) (Outcome, error) {
	kind, err := ex.RunTarget(f, state, sink, input)
	ex.PostRunReset()
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to run trial: %w", err)
	}

	out := Outcome{Kind: kind}
	if f.Novel(ex.Observers()) {
		out.Novel = true
		f.mu.Lock()
		f.corpus = append(f.corpus, input.Clone())
		f.mu.Unlock()
	}
	out.Objective, err = executor.SaveIfObjective(f, state, sink, input, ex.Observers(), kind)
	if err != nil {
		return out, err
	}
	return out, nil
}

// Run feeds every input to ex, loops times over. A non-positive loops runs
// until ctx is done. The first infrastructural error stops the run.
func (f *Fuzzer) Run(ctx context.Context, ex executor.Executor, state executor.State, sink executor.EventSink, inputs []executor.Input, loops int) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs to run")
	}
	for loop := 0; loops <= 0 || loop < loops; loop++ {
		for _, in := range inputs {
			if err := ctx.Err(); err != nil {
				return nil
			}
			if f.limiter != nil {
				if err := f.limiter.Wait(ctx); err != nil {
					return nil
				}
			}
			out, err := f.Trial(ex, state, sink, in)
			if err != nil {
				return err
			}
			f.logger.Debug("trial finished",
				"executions", state.Executions(),
				"verdict", out.Kind,
				"novel", out.Novel,
				"objective", out.Objective)
		}
	}
	return nil
}
