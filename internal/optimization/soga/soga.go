// Package soga implements a reference single-objective real-coded genetic
// algorithm as a multitask.Strategy: tournament selection, blend crossover
// and gaussian mutation, with direction-aware fitness assignment and a
// feasibility penalty. It supplies the evolutionary operators the multitask
// engine deliberately does not own.
package soga

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/TAIGA/internal/optimization"
	"github.com/copyleftdev/TAIGA/internal/optimization/multitask"
)

// Blend crossover spread and the feasibility penalty weight.
const (
	blendAlpha        = 0.5
	infeasiblePenalty = 1e12
)

// Config holds the GA operator parameters, shared by every task.
type Config struct {
	// PopulationSize is the number of individuals per task.
	PopulationSize int
	// TournamentSize is the number of contestants per selection.
	TournamentSize int
	// CrossoverRate is the probability a child pair is produced by blend
	// crossover instead of copying its parents.
	CrossoverRate float64
	// MutationRate is the per-gene mutation probability.
	MutationRate float64
	// MutationSigma is the gaussian mutation standard deviation as a
	// fraction of the variable's range.
	MutationSigma float64
	// Elites is the number of best individuals copied unchanged into the
	// next generation.
	Elites int
}

// DefaultConfig returns the stock GA parameters.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 50,
		TournamentSize: 2,
		CrossoverRate:  0.9,
		MutationRate:   0.1,
		MutationSigma:  0.1,
		Elites:         1,
	}
}

// Strategy is the GA. One instance drives all tasks of a run; per-task
// domains come from the fields slice, indexed by task.
type Strategy struct {
	fields []*optimization.Field
	cfg    Config
	rng    *rand.Rand
}

// New creates a GA strategy over the given per-task domains.
func New(fields []*optimization.Field, cfg Config, seed int64) (*Strategy, error) {
	if len(fields) == 0 {
		return nil, optimization.NewConfigurationError("soga strategy needs at least one task field").
			WithComponent("soga")
	}
	if cfg.PopulationSize < 2 {
		return nil, optimization.NewConfigurationErrorf("population size must be at least 2, got %d", cfg.PopulationSize).
			WithComponent("soga")
	}
	if cfg.TournamentSize < 1 {
		cfg.TournamentSize = 2
	}
	if cfg.Elites < 0 || cfg.Elites >= cfg.PopulationSize {
		cfg.Elites = 1
	}
	return &Strategy{
		fields: fields,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Initialize implements multitask.Strategy: a uniform random population
// over the task's domain, evaluated and fitness-assigned.
func (s *Strategy) Initialize(ctx context.Context, task int, alg *multitask.Algorithm) (*optimization.Population, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	field := s.fields[task]
	vars := field.Vars()
	chrom := mat.NewDense(s.cfg.PopulationSize, vars, nil)
	for i := 0; i < s.cfg.PopulationSize; i++ {
		for j := 0; j < vars; j++ {
			chrom.Set(i, j, field.Lower[j]+s.rng.Float64()*(field.Upper[j]-field.Lower[j]))
		}
	}
	pop := optimization.NewPopulation(chrom, field)
	if err := alg.Evaluate(task, pop); err != nil {
		return nil, err
	}
	s.assignFitness(task, alg, pop)
	return pop, nil
}

// Advance implements multitask.Strategy: one generational replacement with
// elitism.
func (s *Strategy) Advance(ctx context.Context, task int, alg *multitask.Algorithm, pop *optimization.Population) (*optimization.Population, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	field := s.fields[task]
	n := pop.Size()
	_, vars := pop.Chrom.Dims()
	next := mat.NewDense(n, vars, nil)

	// Elites survive untouched.
	for e, idx := range s.eliteIndices(pop) {
		for j := 0; j < vars; j++ {
			next.Set(e, j, pop.Chrom.At(idx, j))
		}
	}

	row := make([]float64, vars)
	for i := s.cfg.Elites; i < n; i += 2 {
		p1 := s.tournament(pop)
		p2 := s.tournament(pop)
		mat.Row(row, p1, pop.Chrom)
		c1 := append([]float64(nil), row...)
		mat.Row(row, p2, pop.Chrom)
		c2 := append([]float64(nil), row...)

		if s.rng.Float64() < s.cfg.CrossoverRate {
			s.blend(c1, c2)
		}
		s.mutate(c1, field)
		s.mutate(c2, field)

		next.SetRow(i, c1)
		if i+1 < n {
			next.SetRow(i+1, c2)
		}
	}

	child := optimization.NewPopulation(next, field)
	if err := alg.Evaluate(task, child); err != nil {
		return nil, err
	}
	s.assignFitness(task, alg, child)
	return child, nil
}

// eliteIndices returns the indices of the cfg.Elites fittest individuals.
func (s *Strategy) eliteIndices(pop *optimization.Population) []int {
	n := pop.Size()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// Partial selection sort; Elites is tiny.
	for e := 0; e < s.cfg.Elites && e < n; e++ {
		best := e
		for i := e + 1; i < n; i++ {
			if pop.FitnV.AtVec(idx[i]) > pop.FitnV.AtVec(idx[best]) {
				best = i
			}
		}
		idx[e], idx[best] = idx[best], idx[e]
	}
	return idx[:s.cfg.Elites]
}

// tournament returns the index of the fittest of TournamentSize random
// contestants.
func (s *Strategy) tournament(pop *optimization.Population) int {
	n := pop.Size()
	best := s.rng.Intn(n)
	for k := 1; k < s.cfg.TournamentSize; k++ {
		c := s.rng.Intn(n)
		if pop.FitnV.AtVec(c) > pop.FitnV.AtVec(best) {
			best = c
		}
	}
	return best
}

// blend applies BLX-alpha crossover in place.
func (s *Strategy) blend(c1, c2 []float64) {
	for j := range c1 {
		lo, hi := c1[j], c2[j]
		if lo > hi {
			lo, hi = hi, lo
		}
		span := (hi - lo) * blendAlpha
		lo, hi = lo-span, hi+span
		c1[j] = lo + s.rng.Float64()*(hi-lo)
		c2[j] = lo + s.rng.Float64()*(hi-lo)
	}
}

// mutate applies clamped gaussian mutation in place.
func (s *Strategy) mutate(c []float64, field *optimization.Field) {
	for j := range c {
		if s.rng.Float64() >= s.cfg.MutationRate {
			continue
		}
		sigma := s.cfg.MutationSigma * (field.Upper[j] - field.Lower[j])
		c[j] = field.Clamp(j, c[j]+s.rng.NormFloat64()*sigma)
	}
}

// assignFitness writes a fitness vector where higher is fitter: objective
// values are negated for minimization tasks and constraint violations are
// penalized so feasible individuals always dominate infeasible ones.
func (s *Strategy) assignFitness(task int, alg *multitask.Algorithm, pop *optimization.Population) {
	dir := optimization.Minimize
	if p := alg.Problem(task); p != nil {
		if dirs := p.Directions(); len(dirs) > 0 {
			dir = dirs[0]
		}
	}
	n := pop.Size()
	fitn := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		f := pop.ObjV.At(i, 0)
		if dir == optimization.Minimize {
			f = -f
		}
		if pop.CV != nil {
			_, c := pop.CV.Dims()
			for j := 0; j < c; j++ {
				if v := pop.CV.At(i, j); v > 0 {
					f -= infeasiblePenalty * v
				}
			}
		}
		if math.IsNaN(f) {
			f = math.Inf(-1)
		}
		fitn.SetVec(i, f)
	}
	pop.FitnV = fitn
}
