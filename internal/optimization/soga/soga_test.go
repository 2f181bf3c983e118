package soga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/TAIGA/internal/optimization"
	"github.com/copyleftdev/TAIGA/internal/optimization/benchmarks"
	"github.com/copyleftdev/TAIGA/internal/optimization/multitask"
)

func TestNewValidation(t *testing.T) {
	field, err := optimization.UniformField(2, -1, 1)
	require.NoError(t, err)

	_, err = New(nil, DefaultConfig(), 1)
	require.Error(t, err)
	assert.True(t, optimization.IsConfigurationError(err))

	cfg := DefaultConfig()
	cfg.PopulationSize = 1
	_, err = New([]*optimization.Field{field}, cfg, 1)
	require.Error(t, err)
	assert.True(t, optimization.IsConfigurationError(err))
}

func TestInitializeRespectsDomain(t *testing.T) {
	b := benchmarks.Sphere(3)
	alg, err := multitask.New(
		[]optimization.Problem{b},
		multitask.WithLogger(zap.NewNop()),
		multitask.WithTaskConfigs([]multitask.TaskConfig{{
			MaxGen:          5,
			TrappedValue:    1e-9,
			MaxTrappedCount: 1000,
		}}),
	)
	require.NoError(t, err)
	alg.Initialize()

	cfg := DefaultConfig()
	cfg.PopulationSize = 20
	s, err := New([]*optimization.Field{b.Field()}, cfg, 7)
	require.NoError(t, err)

	pop, err := s.Initialize(context.Background(), 0, alg)
	require.NoError(t, err)
	require.Equal(t, 20, pop.Size())
	require.NotNil(t, pop.ObjV)
	require.NotNil(t, pop.FitnV)

	rows, cols := pop.Chrom.Dims()
	require.Equal(t, 20, rows)
	require.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := pop.Chrom.At(i, j)
			assert.GreaterOrEqual(t, v, -100.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
	assert.Equal(t, 20, alg.Evaluations(0))
}

func TestRunOverBenchmarks(t *testing.T) {
	const (
		popSize = 40
		maxGen  = 30
	)
	problems := []optimization.Problem{
		benchmarks.Sphere(4),
		benchmarks.Rastrigin(4),
	}
	configs := make([]multitask.TaskConfig, len(problems))
	fields := make([]*optimization.Field, len(problems))
	for i, p := range problems {
		configs[i] = multitask.TaskConfig{
			MaxGen:          maxGen,
			TrappedValue:    1e-12,
			MaxTrappedCount: 10 * maxGen,
			LogTras:         1,
		}
		fields[i] = p.(*benchmarks.Benchmark).Field()
	}

	alg, err := multitask.New(problems,
		multitask.WithLogger(zap.NewNop()),
		multitask.WithTaskConfigs(configs),
	)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.PopulationSize = popSize
	s, err := New(fields, cfg, 42)
	require.NoError(t, err)

	results, err := multitask.NewRunner(alg, s, multitask.WithRunnerLogger(zap.NewNop())).
		Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, len(problems))

	for i, res := range results {
		require.NotNil(t, res.Best, "task %d", i)
		require.Equal(t, 1, res.Best.Size())
		assert.Equal(t, maxGen-1, res.Generations)
		assert.Equal(t, popSize*maxGen, res.Evaluations)

		trace := alg.TraceOf(i)
		require.Len(t, trace.FBest, maxGen)
		require.Len(t, trace.FAvg, maxGen)

		// Best-so-far traces of a minimization task never rise.
		for g := 1; g < maxGen; g++ {
			assert.LessOrEqual(t, trace.FBest[g], trace.FBest[g-1], "task %d gen %d", i, g)
		}
		assert.Less(t, trace.FBest[maxGen-1], trace.FBest[0],
			"task %d: thirty generations should improve on a random population", i)
	}
}

func TestElitePreservesIncumbent(t *testing.T) {
	b := benchmarks.Sphere(2)
	alg, err := multitask.New(
		[]optimization.Problem{b},
		multitask.WithLogger(zap.NewNop()),
		multitask.WithTaskConfigs([]multitask.TaskConfig{{
			MaxGen:          3,
			TrappedValue:    1e-12,
			MaxTrappedCount: 1000,
		}}),
	)
	require.NoError(t, err)
	alg.Initialize()

	cfg := DefaultConfig()
	cfg.PopulationSize = 10
	cfg.Elites = 2
	s, err := New([]*optimization.Field{b.Field()}, cfg, 3)
	require.NoError(t, err)

	pop, err := s.Initialize(context.Background(), 0, alg)
	require.NoError(t, err)
	bestFit := pop.FitnV.AtVec(0)
	for i := 1; i < pop.Size(); i++ {
		if f := pop.FitnV.AtVec(i); f > bestFit {
			bestFit = f
		}
	}

	next, err := s.Advance(context.Background(), 0, alg, pop)
	require.NoError(t, err)
	nextBest := next.FitnV.AtVec(0)
	for i := 1; i < next.Size(); i++ {
		if f := next.FitnV.AtVec(i); f > nextBest {
			nextBest = f
		}
	}
	assert.GreaterOrEqual(t, nextBest, bestFit, "elitism keeps the incumbent alive")
}

func TestCancelledContext(t *testing.T) {
	b := benchmarks.Sphere(2)
	alg, err := multitask.New(
		[]optimization.Problem{b},
		multitask.WithLogger(zap.NewNop()),
		multitask.WithTaskConfigs([]multitask.TaskConfig{{
			MaxGen:          3,
			TrappedValue:    1e-12,
			MaxTrappedCount: 1000,
		}}),
	)
	require.NoError(t, err)
	alg.Initialize()

	s, err := New([]*optimization.Field{b.Field()}, DefaultConfig(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Initialize(ctx, 0, alg)
	assert.ErrorIs(t, err, context.Canceled)
}
