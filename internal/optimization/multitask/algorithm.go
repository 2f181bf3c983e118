// Package multitask implements the orchestration core of TAIGA's
// multi-task single-objective evolutionary optimization: per-task progress
// tracking, best-individual bookkeeping under feasibility constraints,
// stagnation detection, budget-based termination and structured progress
// logging. The evolutionary operators themselves are external collaborators
// (see the soga package); the caller advances each task's population by one
// generation and asks the engine whether the task should stop.
package multitask

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/TAIGA/internal/metrics"
	"github.com/copyleftdev/TAIGA/internal/optimization"
)

// TaskConfig holds the per-task budgets and reporting knobs.
type TaskConfig struct {
	// MaxGen is the generation budget. The generation counter is
	// zero-based, so a task runs generations 0 .. MaxGen-1.
	MaxGen int

	// MaxTime is the optimization-time budget. Zero means no time budget.
	MaxTime time.Duration

	// MaxEvals is the evaluation budget. It is declared for callers that
	// want to enforce it themselves; the termination evaluator does not
	// check it. See DESIGN.md.
	MaxEvals int

	// TrappedValue is the improvement tolerance: a generation whose
	// direction-adjusted improvement magnitude stays strictly below it
	// counts as stagnated.
	TrappedValue float64

	// MaxTrappedCount is the stagnation budget.
	MaxTrappedCount int

	// LogTras is the logging cadence in generations. Zero disables
	// logging for the task entirely.
	LogTras int

	// Verbose renders each appended log entry to the engine's output.
	Verbose bool

	// Drawing selects the drawing collaborator's mode. The engine only
	// forwards it.
	Drawing DrawMode
}

// DefaultTaskConfig returns the stock per-task configuration.
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		MaxGen:          100,
		TrappedValue:    0,
		MaxTrappedCount: 1000,
		LogTras:         1,
		Verbose:         true,
		Drawing:         DrawTrace,
	}
}

// Algorithm is the multi-task engine. Tasks are identified by index in
// [0, TaskCount()) and are mutually independent: processing task i never
// touches task j's state. Within one task the caller must keep the
// Evaluate/Terminated/Finishing sequence strictly ordered; across tasks
// there is no ordering requirement.
type Algorithm struct {
	problems []optimization.Problem
	configs  []TaskConfig
	states   []*taskState

	logger  *zap.Logger
	drawer  Drawer
	out     io.Writer
	metrics *metrics.Metrics
}

// Option customizes an Algorithm.
type Option func(*Algorithm)

// WithLogger sets the structured logger used for advisory warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Algorithm) { a.logger = logger }
}

// WithDrawer sets the drawing collaborator.
func WithDrawer(d Drawer) Option {
	return func(a *Algorithm) { a.drawer = d }
}

// WithOutput sets the writer the console renderer prints to.
func WithOutput(w io.Writer) Option {
	return func(a *Algorithm) { a.out = w }
}

// WithTaskConfigs sets the per-task configuration. The slice length must
// match the number of problems.
func WithTaskConfigs(configs []TaskConfig) Option {
	return func(a *Algorithm) { a.configs = configs }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Algorithm) { a.metrics = m }
}

// New creates an engine for the given tasks. A nil entry in problems is
// allowed at construction time; evaluating that task fails with a
// configuration error.
func New(problems []optimization.Problem, opts ...Option) (*Algorithm, error) {
	if len(problems) == 0 {
		return nil, optimization.NewConfigurationError("multitask engine needs at least one task").
			WithComponent("multitask")
	}
	a := &Algorithm{
		problems: problems,
		logger:   zap.NewNop(),
		drawer:   NopDrawer{},
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.configs == nil {
		a.configs = make([]TaskConfig, len(problems))
		for i := range a.configs {
			a.configs[i] = DefaultTaskConfig()
		}
	}
	if len(a.configs) != len(problems) {
		return nil, optimization.NewConfigurationErrorf("%d task configs for %d tasks", len(a.configs), len(problems)).
			WithComponent("multitask")
	}
	for i, cfg := range a.configs {
		if cfg.MaxGen < 1 {
			return nil, optimization.NewConfigurationErrorf("task %d: generation budget must be positive, got %d", i, cfg.MaxGen).
				WithComponent("multitask")
		}
	}
	return a, nil
}

// TaskCount returns the number of tasks.
func (a *Algorithm) TaskCount() int {
	return len(a.problems)
}

// Config returns the configuration of task i.
func (a *Algorithm) Config(i int) TaskConfig {
	return a.configs[i]
}

// Problem returns the problem bound to task i, or nil when unbound.
func (a *Algorithm) Problem(i int) optimization.Problem {
	return a.problems[i]
}

// Initialize allocates the dynamic per-task state and starts the clocks.
// It must be called once, before the first generation of any task; state
// persists for the task's entire run and is never reset mid-run.
func (a *Algorithm) Initialize() {
	a.states = make([]*taskState, len(a.problems))
	for i := range a.states {
		a.states[i] = newTaskState(a.configs[i].LogTras != 0)
	}
}

// Evaluate decodes the population's phenotype, invokes task i's problem to
// populate ObjV (and optionally CV) in place, and charges the evaluations
// to the task. The matrices the problem produced are checked against the
// declared objective count; a violation is a fatal data format error, the
// hard contract boundary between the engine and user-supplied objective
// functions.
func (a *Algorithm) Evaluate(i int, pop *optimization.Population) error {
	if a.problems[i] == nil {
		return optimization.NewConfigurationErrorf("task %d has no bound problem", i).
			WithComponent("multitask").WithOperation("evaluate")
	}
	pop.Decode()
	if err := a.problems[i].Evaluate(pop); err != nil {
		return optimization.WrapErrorf(err, "task %d evaluation failed", i).
			WithComponent("multitask").WithOperation("evaluate")
	}
	st := a.states[i]
	st.evalsNum += pop.Size()
	a.metrics.ObserveEvaluations(i, pop.Size())

	m := a.problems[i].Objectives()
	if pop.ObjV == nil {
		return optimization.NewDataFormatErrorf("task %d: evaluation left ObjV unset", i).
			WithComponent("multitask").WithOperation("evaluate")
	}
	rows, cols := pop.ObjV.Dims()
	if rows != pop.Size() || cols != m {
		return optimization.NewDataFormatErrorf("task %d: ObjV is %dx%d, want %dx%d", i, rows, cols, pop.Size(), m).
			WithComponent("multitask").WithOperation("evaluate")
	}
	if pop.CV != nil {
		cvRows, _ := pop.CV.Dims()
		if cvRows != pop.Size() {
			return optimization.NewDataFormatErrorf("task %d: CV has %d rows for %d individuals", i, cvRows, pop.Size()).
				WithComponent("multitask").WithOperation("evaluate")
		}
	}
	return nil
}

// check inspects a population's matrices for NaN and Inf. Detection is
// advisory: one warning per affected matrix, execution continues with the
// anomalous data as-is.
func (a *Algorithm) check(i int, pop *optimization.Population) {
	if pop.ObjV != nil {
		if hasNaN(pop.ObjV.RawMatrix().Data) {
			a.logger.Warn("some elements of ObjV are NaN, check the objective function",
				zap.Int("task", i))
		} else if hasInf(pop.ObjV.RawMatrix().Data) {
			a.logger.Warn("some elements of ObjV are Inf, check the objective function",
				zap.Int("task", i))
		}
	}
	if pop.CV != nil {
		if hasNaN(pop.CV.RawMatrix().Data) {
			a.logger.Warn("some elements of CV are NaN, check the constraint calculation",
				zap.Int("task", i))
		} else if hasInf(pop.CV.RawMatrix().Data) {
			a.logger.Warn("some elements of CV are Inf, check the constraint calculation",
				zap.Int("task", i))
		}
	}
}

// stat records one generation of task i: best-individual tracking,
// stagnation accounting, trace update, cadence-gated logging and drawing.
// A generation without any feasible individual contributes nothing and
// leaves every piece of task state unchanged.
func (a *Algorithm) stat(i int, pop *optimization.Population) {
	feasible := pop.Feasible()
	if len(feasible) == 0 {
		return
	}
	st := a.states[i]
	cfg := a.configs[i]

	feasiblePop := pop.Take(feasible)
	best := feasiblePop.BestIndex()
	if best < 0 {
		return
	}
	genBest := feasiblePop.Take([]int{best})

	if st.bestIndi.Size() == 0 {
		st.bestIndi = genBest
	} else {
		delta := a.delta(i, st.bestIndi.ObjV.At(0, 0), genBest.ObjV.At(0, 0))
		// The stagnation counter only increments; a genuine improvement
		// does not reset it. Kept intentionally, see DESIGN.md.
		if math.Abs(delta) < cfg.TrappedValue {
			st.trappedCount++
		}
		if delta > 0 {
			st.bestIndi = genBest
		}
	}

	st.trace.FBest = append(st.trace.FBest, genBest.ObjV.At(0, 0))
	st.trace.FAvg = append(st.trace.FAvg, stat.Mean(feasiblePop.ObjColumn(0), nil))

	if cfg.LogTras != 0 && st.currentGen%cfg.LogTras == 0 {
		a.logging(i, feasiblePop)
		if cfg.Verbose {
			a.display(i)
		}
	}
	a.draw(i, feasiblePop, false)
}

// delta computes the direction-adjusted improvement of candidate over the
// incumbent best objective value. Without declared directions the raw
// difference incumbent-candidate is used, which treats lower as better.
func (a *Algorithm) delta(i int, incumbent, candidate float64) float64 {
	if a.problems[i] != nil {
		if dirs := a.problems[i].Directions(); len(dirs) > 0 {
			return dirs[0].Delta(incumbent, candidate)
		}
	}
	return incumbent - candidate
}

// logging appends one entry to task i's logbook: current generation,
// cumulative evaluations, the global best objective and the feasible
// population's max/mean/min/std objective. The time spent here is excluded
// from optimization-time accounting.
func (a *Algorithm) logging(i int, feasiblePop *optimization.Population) {
	st := a.states[i]
	st.pause()
	defer st.resume()

	if st.log.Len() == 0 {
		st.log.DeclareFields("f_opt", "f_max", "f_avg", "f_min", "f_std")
	}
	objs := feasiblePop.ObjColumn(0)
	err := st.log.Append(st.currentGen, st.evalsNum, map[string]float64{
		"f_opt": st.bestIndi.ObjV.At(0, 0),
		"f_max": floats.Max(objs),
		"f_avg": stat.Mean(objs, nil),
		"f_min": floats.Min(objs),
		"f_std": stat.PopStdDev(objs, nil),
	})
	if err != nil {
		a.logger.Error("logbook append failed", zap.Int("task", i), zap.Error(err))
	}
}

// display renders the latest log entry of task i as a table row, with the
// header above the first row. Excluded from optimization-time accounting.
func (a *Algorithm) display(i int) {
	st := a.states[i]
	st.pause()
	defer st.resume()

	fmt.Fprintf(a.out, "Task %d\n", i+1)
	st.log.RenderLast(a.out, len(strconv.Itoa(a.configs[i].MaxGen-1)))
}

// draw notifies the drawing collaborator. During the run the call is
// excluded from optimization-time accounting; the final call happens after
// the task's clock has already settled.
func (a *Algorithm) draw(i int, pop *optimization.Population, final bool) {
	st := a.states[i]
	if !final {
		st.pause()
		defer st.resume()
	}
	a.drawer.Draw(i, a.configs[i].Drawing, pop, st.trace.clone(), final)
}

// Terminated runs the per-generation bookkeeping for task i (validation,
// statistics, time accounting) and decides whether the task should stop.
// Stop conditions, any one of which suffices: the time budget is spent,
// the upcoming generation would reach the generation budget, or the
// stagnation budget is reached. When the task continues, the generation
// counter advances by exactly one. A true return is terminal for the task;
// the caller must switch to Finishing instead of calling Terminated again.
func (a *Algorithm) Terminated(i int, pop *optimization.Population) bool {
	st := a.states[i]
	cfg := a.configs[i]

	a.check(i, pop)
	a.stat(i, pop)
	st.pause()
	st.resume()

	if (cfg.MaxTime > 0 && st.passTime >= cfg.MaxTime) ||
		st.currentGen+1 >= cfg.MaxGen ||
		st.trappedCount >= cfg.MaxTrappedCount {
		st.finished = true
		a.metrics.ObserveTaskFinished()
		return true
	}
	st.currentGen++
	a.metrics.ObserveGeneration(i)
	return false
}

// Finishing completes task i: it flushes a final log entry when the last
// regular entry does not already cover the current generation, settles the
// task's clock, notifies the drawer in final mode, and returns the best
// individual found across the whole run together with the final
// population. The best individual is the empty sentinel when no feasible
// individual ever appeared.
func (a *Algorithm) Finishing(i int, pop *optimization.Population) (*optimization.Population, *optimization.Population) {
	st := a.states[i]
	cfg := a.configs[i]

	feasible := pop.Feasible()
	if len(feasible) > 0 && cfg.LogTras != 0 {
		if last, ok := st.log.LastGen(); !ok || last != st.currentGen {
			feasiblePop := pop.Take(feasible)
			a.logging(i, feasiblePop)
			if cfg.Verbose {
				a.display(i)
			}
		}
	}
	st.pause()
	a.draw(i, pop, true)
	return st.bestIndi, pop
}

// Generation returns task i's zero-based generation counter.
func (a *Algorithm) Generation(i int) int {
	return a.states[i].currentGen
}

// Evaluations returns task i's cumulative evaluation count.
func (a *Algorithm) Evaluations(i int) int {
	return a.states[i].evalsNum
}

// Elapsed returns task i's accumulated optimization time. Time spent
// logging, displaying and drawing is excluded.
func (a *Algorithm) Elapsed(i int) time.Duration {
	return a.states[i].passTime
}

// Stagnation returns task i's stagnation counter.
func (a *Algorithm) Stagnation(i int) int {
	return a.states[i].trappedCount
}

// Finished reports whether task i has reached a termination condition.
func (a *Algorithm) Finished(i int) bool {
	return a.states[i].finished
}

// Best returns the best feasible individual found so far for task i; the
// empty sentinel when none was found.
func (a *Algorithm) Best(i int) *optimization.Population {
	return a.states[i].bestIndi
}

// TraceOf returns a copy of task i's per-generation history.
func (a *Algorithm) TraceOf(i int) Trace {
	return a.states[i].trace.clone()
}

// LogbookOf returns task i's logbook, or nil when logging is disabled.
func (a *Algorithm) LogbookOf(i int) *Logbook {
	return a.states[i].log
}

func hasNaN(data []float64) bool {
	for _, v := range data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func hasInf(data []float64) bool {
	for _, v := range data {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
