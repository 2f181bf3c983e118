// Package benchmarks provides the standard continuous test functions the
// TAIGA server exposes as optimization tasks. All of them are minimization
// problems over a box-bounded real domain with optimum value 0.
package benchmarks

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/TAIGA/internal/optimization"
)

// Benchmark is a single-objective box-bounded test function.
type Benchmark struct {
	name         string
	dim          int
	lower, upper float64
	fn           func(x []float64) float64
}

// Name implements optimization.Problem.
func (b *Benchmark) Name() string { return b.name }

// Objectives implements optimization.Problem.
func (b *Benchmark) Objectives() int { return 1 }

// Directions implements optimization.Problem.
func (b *Benchmark) Directions() []optimization.Direction {
	return []optimization.Direction{optimization.Minimize}
}

// Dim returns the number of decision variables.
func (b *Benchmark) Dim() int { return b.dim }

// Field returns the decoding bounds of the benchmark's domain.
func (b *Benchmark) Field() *optimization.Field {
	f, _ := optimization.UniformField(b.dim, b.lower, b.upper)
	return f
}

// Evaluate implements optimization.Problem, writing one objective value
// per individual into pop.ObjV.
func (b *Benchmark) Evaluate(pop *optimization.Population) error {
	if pop.Phen == nil {
		return optimization.NewDataFormatErrorf("%s: population has no decoded phenotype", b.name).
			WithComponent("benchmarks")
	}
	n, vars := pop.Phen.Dims()
	if vars != b.dim {
		return optimization.NewDataFormatErrorf("%s: phenotype has %d variables, want %d", b.name, vars, b.dim).
			WithComponent("benchmarks")
	}
	objv := mat.NewDense(n, 1, nil)
	x := make([]float64, vars)
	for i := 0; i < n; i++ {
		mat.Row(x, i, pop.Phen)
		objv.Set(i, 0, b.fn(x))
	}
	pop.ObjV = objv
	return nil
}

// Sphere returns the sphere function over [-100, 100]^dim.
func Sphere(dim int) *Benchmark {
	return &Benchmark{
		name:  "sphere",
		dim:   dim,
		lower: -100, upper: 100,
		fn: func(x []float64) float64 {
			return floats.Dot(x, x)
		},
	}
}

// Rastrigin returns the Rastrigin function over [-5.12, 5.12]^dim.
func Rastrigin(dim int) *Benchmark {
	return &Benchmark{
		name:  "rastrigin",
		dim:   dim,
		lower: -5.12, upper: 5.12,
		fn: func(x []float64) float64 {
			sum := 10 * float64(len(x))
			for _, v := range x {
				sum += v*v - 10*math.Cos(2*math.Pi*v)
			}
			return sum
		},
	}
}

// Rosenbrock returns the Rosenbrock function over [-30, 30]^dim.
func Rosenbrock(dim int) *Benchmark {
	return &Benchmark{
		name:  "rosenbrock",
		dim:   dim,
		lower: -30, upper: 30,
		fn: func(x []float64) float64 {
			sum := 0.0
			for i := 0; i < len(x)-1; i++ {
				a := x[i+1] - x[i]*x[i]
				b := 1 - x[i]
				sum += 100*a*a + b*b
			}
			return sum
		},
	}
}

// Ackley returns the Ackley function over [-32, 32]^dim.
func Ackley(dim int) *Benchmark {
	return &Benchmark{
		name:  "ackley",
		dim:   dim,
		lower: -32, upper: 32,
		fn: func(x []float64) float64 {
			n := float64(len(x))
			sumSq := floats.Dot(x, x)
			sumCos := 0.0
			for _, v := range x {
				sumCos += math.Cos(2 * math.Pi * v)
			}
			return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E
		},
	}
}

// ByName returns the named benchmark, matching case-insensitively.
func ByName(name string, dim int) (*Benchmark, error) {
	if dim < 1 {
		return nil, optimization.NewConfigurationErrorf("benchmark dimension must be positive, got %d", dim)
	}
	switch strings.ToLower(name) {
	case "sphere":
		return Sphere(dim), nil
	case "rastrigin":
		return Rastrigin(dim), nil
	case "rosenbrock":
		return Rosenbrock(dim), nil
	case "ackley":
		return Ackley(dim), nil
	default:
		return nil, optimization.NewConfigurationErrorf("unknown benchmark %q", name)
	}
}

// Names lists the available benchmark names.
func Names() []string {
	return []string{"sphere", "rastrigin", "rosenbrock", "ackley"}
}
