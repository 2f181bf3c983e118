// Package optimization defines the contracts shared by the evolutionary
// engine: problems, populations and the error taxonomy. The engine itself
// lives in the multitask sub-package; concrete operators live in soga.
package optimization

// Direction declares whether an objective is minimized or maximized.
type Direction int

const (
	// Minimize means lower objective values are better.
	Minimize Direction = iota
	// Maximize means higher objective values are better.
	Maximize
)

// String returns a human-readable name for the direction.
func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Delta returns the direction-adjusted improvement of a candidate objective
// value over the incumbent best. A positive result means the candidate is
// strictly better; the magnitude is the size of the improvement.
func (d Direction) Delta(best, candidate float64) float64 {
	if d == Maximize {
		return candidate - best
	}
	return best - candidate
}

// Problem is the per-task collaborator the engine evaluates populations
// against. Evaluate must populate the population's ObjV matrix in place with
// one row per individual and Objectives() columns, and may populate CV the
// same way for constrained problems.
type Problem interface {
	// Name identifies the problem instance, used in logs.
	Name() string

	// Objectives returns the number of objectives (M). The multitask
	// engine handles single-objective problems, so this is 1 for every
	// problem it drives.
	Objectives() int

	// Directions returns the optimization direction per objective.
	// A nil slice means objective values are directly comparable:
	// the engine treats a positive (incumbent - candidate) difference
	// as an improvement, which only makes sense for minimization.
	Directions() []Direction

	// Evaluate computes objective (and optionally constraint-violation)
	// values for every individual in pop, writing them into pop.ObjV and
	// pop.CV. The population's Phen matrix is already decoded when
	// Evaluate is called.
	Evaluate(pop *Population) error
}
