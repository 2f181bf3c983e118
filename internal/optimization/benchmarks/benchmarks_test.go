package benchmarks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/TAIGA/internal/optimization"
)

func evalAt(t *testing.T, b *Benchmark, points [][]float64) []float64 {
	t.Helper()
	n := len(points)
	phen := mat.NewDense(n, b.Dim(), nil)
	for i, p := range points {
		phen.SetRow(i, p)
	}
	pop := &optimization.Population{Phen: phen}
	require.NoError(t, b.Evaluate(pop))
	return pop.ObjColumn(0)
}

func TestKnownOptima(t *testing.T) {
	t.Run("sphere is zero at the origin", func(t *testing.T) {
		got := evalAt(t, Sphere(3), [][]float64{{0, 0, 0}, {1, 2, 3}})
		assert.InDelta(t, 0, got[0], 1e-12)
		assert.InDelta(t, 14, got[1], 1e-12)
	})

	t.Run("rastrigin is zero at the origin", func(t *testing.T) {
		got := evalAt(t, Rastrigin(4), [][]float64{{0, 0, 0, 0}})
		assert.InDelta(t, 0, got[0], 1e-9)
	})

	t.Run("rosenbrock is zero at all ones", func(t *testing.T) {
		got := evalAt(t, Rosenbrock(3), [][]float64{{1, 1, 1}, {0, 0, 0}})
		assert.InDelta(t, 0, got[0], 1e-12)
		assert.InDelta(t, 2, got[1], 1e-12)
	})

	t.Run("ackley is zero at the origin", func(t *testing.T) {
		got := evalAt(t, Ackley(5), [][]float64{{0, 0, 0, 0, 0}})
		assert.InDelta(t, 0, got[0], 1e-9)
	})
}

func TestProblemContract(t *testing.T) {
	b := Rastrigin(6)
	assert.Equal(t, "rastrigin", b.Name())
	assert.Equal(t, 1, b.Objectives())
	assert.Equal(t, []optimization.Direction{optimization.Minimize}, b.Directions())

	field := b.Field()
	require.Equal(t, 6, field.Vars())
	assert.Equal(t, -5.12, field.Lower[0])
	assert.Equal(t, 5.12, field.Upper[5])
}

func TestEvaluateRejectsWrongArity(t *testing.T) {
	b := Sphere(3)

	pop := &optimization.Population{Phen: mat.NewDense(1, 2, []float64{1, 2})}
	err := b.Evaluate(pop)
	require.Error(t, err)
	assert.True(t, optimization.IsDataFormatError(err))

	err = b.Evaluate(&optimization.Population{})
	require.Error(t, err)
	assert.True(t, optimization.IsDataFormatError(err))
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		b, err := ByName(name, 2)
		require.NoError(t, err, name)
		assert.Equal(t, name, b.Name())
	}

	b, err := ByName("Sphere", 2)
	require.NoError(t, err, "lookup is case-insensitive")
	assert.Equal(t, "sphere", b.Name())

	_, err = ByName("himmelblau", 2)
	require.Error(t, err)
	assert.True(t, optimization.IsConfigurationError(err))

	_, err = ByName("sphere", 0)
	require.Error(t, err)
	assert.True(t, optimization.IsConfigurationError(err))
}
