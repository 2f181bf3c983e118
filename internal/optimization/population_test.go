package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFieldValidation(t *testing.T) {
	_, err := NewField([]float64{0, 0}, []float64{1})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	_, err = NewField([]float64{2}, []float64{1})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	f, err := UniformField(3, -5, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Vars())
	assert.Equal(t, -5.0, f.Clamp(0, -7))
	assert.Equal(t, 5.0, f.Clamp(1, 9))
	assert.Equal(t, 1.5, f.Clamp(2, 1.5))
}

func TestPopulationSize(t *testing.T) {
	assert.Equal(t, 0, NewEmptyPopulation().Size())
	assert.Equal(t, 0, (*Population)(nil).Size())

	pop := NewPopulation(mat.NewDense(4, 2, nil), nil)
	assert.Equal(t, 4, pop.Size())

	objOnly := &Population{ObjV: mat.NewDense(3, 1, nil)}
	assert.Equal(t, 3, objOnly.Size())
}

func TestDecodeClampsToField(t *testing.T) {
	field, err := UniformField(2, 0, 1)
	require.NoError(t, err)

	pop := NewPopulation(mat.NewDense(2, 2, []float64{
		-0.5, 0.25,
		2.0, 0.75,
	}), field)
	pop.Decode()

	require.NotNil(t, pop.Phen)
	assert.Equal(t, 0.0, pop.Phen.At(0, 0))
	assert.Equal(t, 0.25, pop.Phen.At(0, 1))
	assert.Equal(t, 1.0, pop.Phen.At(1, 0))
	assert.Equal(t, -0.5, pop.Chrom.At(0, 0), "decoding must not mutate the genotype")
}

func TestDecodeWithoutField(t *testing.T) {
	pop := NewPopulation(mat.NewDense(1, 2, []float64{3, -9}), nil)
	pop.Decode()
	assert.Equal(t, 3.0, pop.Phen.At(0, 0))
	assert.Equal(t, -9.0, pop.Phen.At(0, 1))
}

func TestFeasible(t *testing.T) {
	t.Run("no CV means all feasible", func(t *testing.T) {
		pop := &Population{ObjV: mat.NewDense(3, 1, []float64{1, 2, 3})}
		assert.Equal(t, []int{0, 1, 2}, pop.Feasible())
	})

	t.Run("boundary values are feasible", func(t *testing.T) {
		pop := &Population{
			ObjV: mat.NewDense(3, 1, []float64{1, 2, 3}),
			CV: mat.NewDense(3, 2, []float64{
				0, -1, // feasible: all <= 0
				0.001, -5, // infeasible: one positive violation
				-2, 0, // feasible
			}),
		}
		assert.Equal(t, []int{0, 2}, pop.Feasible())
	})

	t.Run("fully infeasible", func(t *testing.T) {
		pop := &Population{
			ObjV: mat.NewDense(2, 1, []float64{1, 2}),
			CV:   mat.NewDense(2, 1, []float64{1, 2}),
		}
		assert.Empty(t, pop.Feasible())
	})
}

func TestTakeDeepCopies(t *testing.T) {
	field, err := UniformField(2, -10, 10)
	require.NoError(t, err)
	pop := &Population{
		Chrom: mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
		ObjV:  mat.NewDense(3, 1, []float64{10, 20, 30}),
		CV:    mat.NewDense(3, 1, []float64{-1, 0, 1}),
		FitnV: mat.NewVecDense(3, []float64{-10, -20, -30}),
		Field: field,
	}

	sub := pop.Take([]int{2, 0})
	assert.Equal(t, 2, sub.Size())
	assert.Equal(t, 30.0, sub.ObjV.At(0, 0))
	assert.Equal(t, 10.0, sub.ObjV.At(1, 0))
	assert.Equal(t, 5.0, sub.Chrom.At(0, 0))
	assert.Equal(t, -30.0, sub.FitnV.AtVec(0))
	assert.Same(t, field, sub.Field)

	// Mutating the subset must not touch the source.
	sub.ObjV.Set(0, 0, 999)
	assert.Equal(t, 30.0, pop.ObjV.At(2, 0))
}

func TestBestIndex(t *testing.T) {
	pop := &Population{
		ObjV:  mat.NewDense(3, 1, []float64{5, 1, 3}),
		FitnV: mat.NewVecDense(3, []float64{-5, -1, -3}),
	}
	assert.Equal(t, 1, pop.BestIndex())

	assert.Equal(t, -1, NewEmptyPopulation().BestIndex())
	assert.Equal(t, -1, (&Population{ObjV: mat.NewDense(1, 1, nil)}).BestIndex())
}

func TestObjColumn(t *testing.T) {
	pop := &Population{ObjV: mat.NewDense(3, 2, []float64{1, 10, 2, 20, 3, 30})}
	assert.Equal(t, []float64{1, 2, 3}, pop.ObjColumn(0))
	assert.Equal(t, []float64{10, 20, 30}, pop.ObjColumn(1))
	assert.Nil(t, NewEmptyPopulation().ObjColumn(0))
}

func TestDirectionDelta(t *testing.T) {
	// Minimization: a lower candidate is an improvement.
	assert.Equal(t, 2.0, Minimize.Delta(10, 8))
	assert.Equal(t, -2.0, Minimize.Delta(8, 10))
	// Maximization is the mirror image.
	assert.Equal(t, 2.0, Maximize.Delta(8, 10))
	assert.Equal(t, -2.0, Maximize.Delta(10, 8))
}
