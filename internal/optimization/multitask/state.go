package multitask

import (
	"time"

	"github.com/copyleftdev/TAIGA/internal/optimization"
)

// Trace is the per-generation history of a task: the best feasible
// objective value and the feasible population's mean objective value, one
// entry per generation in which statistics were computed. It is appended
// independently of the log cadence.
type Trace struct {
	FBest []float64
	FAvg  []float64
}

// clone returns a deep copy, safe to hand to concurrent readers.
func (t *Trace) clone() Trace {
	return Trace{
		FBest: append([]float64(nil), t.FBest...),
		FAvg:  append([]float64(nil), t.FAvg...),
	}
}

// taskState owns all mutable state of one task. One instance per task,
// allocated by Initialize and never reset mid-run.
type taskState struct {
	// bestIndi is the best feasible individual found so far; the empty
	// sentinel until any feasible individual appears.
	bestIndi *optimization.Population

	// trappedCount counts sub-threshold improvement generations. It only
	// ever increments; there is no reset on genuine improvement.
	trappedCount int

	// currentGen is zero-based and incremented only when the termination
	// check decides to continue.
	currentGen int

	// evalsNum is the cumulative number of objective evaluations.
	evalsNum int

	// passTime accumulates optimization time. Time spent in logging,
	// display and drawing is excluded by bracketing those calls with
	// checkpoint subtraction against timeSlot.
	passTime time.Duration

	// timeSlot is the wall-clock checkpoint the next passTime increment
	// is measured from.
	timeSlot time.Time

	trace Trace

	// log is nil when logging is disabled for the task (LogTras == 0).
	log *Logbook

	finished bool
}

func newTaskState(loggingEnabled bool) *taskState {
	st := &taskState{
		bestIndi: optimization.NewEmptyPopulation(),
		timeSlot: time.Now(),
	}
	if loggingEnabled {
		st.log = NewLogbook()
	}
	return st
}

// pause folds the wall-clock time since the last checkpoint into passTime.
// Instrumented calls (logging, display, drawing) bracket themselves with
// pause/resume so the time they spend is not counted as optimization time.
func (st *taskState) pause() {
	st.passTime += time.Since(st.timeSlot)
}

// resume moves the checkpoint to now.
func (st *taskState) resume() {
	st.timeSlot = time.Now()
}
