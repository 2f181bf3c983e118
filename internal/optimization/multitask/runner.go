package multitask

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/TAIGA/internal/metrics"
	"github.com/copyleftdev/TAIGA/internal/optimization"
)

// Strategy supplies the evolutionary operators for every task: it creates
// the initial evaluated population and advances a population by one
// generation. Implementations must call the engine's Evaluate for every
// evaluation so budgets and statistics stay correct, and must leave a
// fitness vector on the returned population.
type Strategy interface {
	Initialize(ctx context.Context, task int, alg *Algorithm) (*optimization.Population, error)
	Advance(ctx context.Context, task int, alg *Algorithm, pop *optimization.Population) (*optimization.Population, error)
}

// Result is the outcome of one finished task.
type Result struct {
	Task        int
	Best        *optimization.Population
	Final       *optimization.Population
	Generations int
	Evaluations int
	Elapsed     time.Duration
}

// TaskProgress is a point-in-time snapshot of one task, safe for
// concurrent readers while the run executes.
type TaskProgress struct {
	Task        int
	Generation  int
	Evaluations int
	Stagnation  int
	Elapsed     time.Duration
	Best        *float64
	// TraceTail holds the most recent best-objective history entries, at
	// most traceTailLen of them.
	TraceTail []float64
	Finished  bool
}

// traceTailLen bounds the history carried in progress snapshots.
const traceTailLen = 10

// Runner drives every task of an engine in lockstep: one generation per
// task per sweep, stopping each task as its termination condition fires
// and finalizing all of them once the last one stops. The engine itself
// stays single-threaded; the runner only adds snapshot bookkeeping so a
// concurrent observer (the HTTP API) can poll progress.
type Runner struct {
	alg      *Algorithm
	strategy Strategy
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	progress []TaskProgress
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's structured logger.
func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithRunnerMetrics attaches run-level instrumentation.
func WithRunnerMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner creates a runner for the given engine and strategy.
func NewRunner(alg *Algorithm, strategy Strategy, opts ...RunnerOption) *Runner {
	r := &Runner{
		alg:      alg,
		strategy: strategy,
		logger:   zap.NewNop(),
		progress: make([]TaskProgress, alg.TaskCount()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Progress returns a snapshot of every task's progress.
func (r *Runner) Progress() []TaskProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TaskProgress(nil), r.progress...)
}

func (r *Runner) snapshot(task int) {
	p := TaskProgress{
		Task:        task,
		Generation:  r.alg.Generation(task),
		Evaluations: r.alg.Evaluations(task),
		Stagnation:  r.alg.Stagnation(task),
		Elapsed:     r.alg.Elapsed(task),
		Finished:    r.alg.Finished(task),
	}
	if best := r.alg.Best(task); best.Size() > 0 {
		v := best.ObjV.At(0, 0)
		p.Best = &v
	}
	if tail := r.alg.TraceOf(task).FBest; len(tail) > 0 {
		if len(tail) > traceTailLen {
			tail = tail[len(tail)-traceTailLen:]
		}
		p.TraceTail = tail
	}
	r.mu.Lock()
	r.progress[task] = p
	r.mu.Unlock()
}

// Run executes every task to termination and returns one result per task.
// Cancelling the context stops the run between generation steps; budgets
// are polled, never preemptive, so a step in flight always completes.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	r.metrics.RunStarted()
	defer r.metrics.RunStopped()

	n := r.alg.TaskCount()
	r.alg.Initialize()

	pops := make([]*optimization.Population, n)
	for i := 0; i < n; i++ {
		pop, err := r.strategy.Initialize(ctx, i, r.alg)
		if err != nil {
			return nil, optimization.WrapErrorf(err, "task %d initialization failed", i).
				WithComponent("runner")
		}
		pops[i] = pop
		r.snapshot(i)
	}

	active := n
	done := make([]bool, n)
	for active > 0 {
		for i := 0; i < n; i++ {
			if done[i] {
				continue
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			if r.alg.Terminated(i, pops[i]) {
				done[i] = true
				active--
				r.snapshot(i)
				r.logger.Info("task terminated",
					zap.Int("task", i),
					zap.Int("generation", r.alg.Generation(i)),
					zap.Int("evaluations", r.alg.Evaluations(i)))
				continue
			}
			next, err := r.strategy.Advance(ctx, i, r.alg, pops[i])
			if err != nil {
				return nil, optimization.WrapErrorf(err, "task %d failed at generation %d", i, r.alg.Generation(i)).
					WithComponent("runner")
			}
			pops[i] = next
			r.snapshot(i)
		}
	}

	results := make([]Result, n)
	for i := 0; i < n; i++ {
		best, final := r.alg.Finishing(i, pops[i])
		results[i] = Result{
			Task:        i,
			Best:        best,
			Final:       final,
			Generations: r.alg.Generation(i),
			Evaluations: r.alg.Evaluations(i),
			Elapsed:     r.alg.Elapsed(i),
		}
		r.snapshot(i)
	}
	return results, nil
}
