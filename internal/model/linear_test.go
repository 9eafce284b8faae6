package model

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictStaysInUnitRange(t *testing.T) {
	m := NewLinearModel(4, rand.New(rand.NewSource(1)))

	vectors := [][]float64{
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{0.5, 0.1, 0.9, 0.3},
	}
	for _, v := range vectors {
		out, err := m.Predict(v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out, 0.0)
		assert.LessOrEqual(t, out, 1.0)
	}
}

func TestPredictArityMismatch(t *testing.T) {
	m := NewLinearModel(4, rand.New(rand.NewSource(1)))

	_, err := m.Predict([]float64{0.5, 0.5})
	assert.Error(t, err)

	_, err = m.Predict([]float64{0.5, 0.5, 0.5, 0.5, 0.5})
	assert.Error(t, err)
}

func TestTrainTooFewExamplesIsNoOp(t *testing.T) {
	m := NewLinearModel(3, rand.New(rand.NewSource(2)))
	before := m.Snapshot()

	examples := []Example{
		{Features: []float64{0.1, 0.2, 0.3}, Target: 0.5},
		{Features: []float64{0.4, 0.5, 0.6}, Target: 0.7},
	}
	require.NoError(t, m.Train(context.Background(), examples))

	assert.False(t, m.Trained())
	assert.Equal(t, before.Weights, m.Snapshot().Weights)
	assert.Equal(t, before.Bias, m.Snapshot().Bias)
}

func TestTrainExampleArityMismatch(t *testing.T) {
	m := NewLinearModel(3, rand.New(rand.NewSource(2)))

	examples := make([]Example, MinTrainExamples)
	for i := range examples {
		examples[i] = Example{Features: []float64{0.1, 0.2, 0.3}, Target: 0.5}
	}
	examples[3] = Example{Features: []float64{0.1, 0.2}, Target: 0.5}

	err := m.Train(context.Background(), examples)
	assert.Error(t, err)
	assert.False(t, m.Trained())
}

func TestTrainConvergesOnConsistentData(t *testing.T) {
	m := NewLinearModel(3, rand.New(rand.NewSource(3)))

	features := []float64{0.33, 0.14, 0.9}
	examples := make([]Example, 100)
	for i := range examples {
		examples[i] = Example{Features: features, Target: 0.5}
	}

	before, err := m.Predict(features)
	require.NoError(t, err)

	require.NoError(t, m.Train(context.Background(), examples))
	require.True(t, m.Trained())

	after, err := m.Predict(features)
	require.NoError(t, err)

	assert.Less(t, math.Abs(after-0.5), math.Abs(before-0.5))
	assert.InDelta(t, 0.5, after, 0.05)
}

func TestTrainCancelledContextLeavesModelUntouched(t *testing.T) {
	m := NewLinearModel(3, rand.New(rand.NewSource(4)))
	before := m.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	examples := make([]Example, 10)
	for i := range examples {
		examples[i] = Example{Features: []float64{0.1, 0.2, 0.3}, Target: 0.8}
	}

	err := m.Train(ctx, examples)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.Trained())
	assert.Equal(t, before.Weights, m.Snapshot().Weights)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	src := NewLinearModel(3, rand.New(rand.NewSource(5)))
	examples := make([]Example, 20)
	for i := range examples {
		examples[i] = Example{Features: []float64{0.2, 0.6, 0.4}, Target: 0.7}
	}
	require.NoError(t, src.Train(context.Background(), examples))

	dst := NewLinearModel(3, rand.New(rand.NewSource(6)))
	require.NoError(t, dst.Restore(src.Snapshot()))
	assert.True(t, dst.Trained())

	a, err := src.Predict([]float64{0.2, 0.6, 0.4})
	require.NoError(t, err)
	b, err := dst.Predict([]float64{0.2, 0.6, 0.4})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRestoreArityMismatch(t *testing.T) {
	m := NewLinearModel(3, rand.New(rand.NewSource(7)))
	err := m.Restore(Snapshot{Weights: []float64{0.1, 0.2}, Bias: 0})
	assert.Error(t, err)
	assert.False(t, m.Trained())
}

func TestConfidenceBounds(t *testing.T) {
	// Identical features have zero dispersion and maximal confidence
	assert.Equal(t, 1.0, Confidence([]float64{0.5, 0.5, 0.5, 0.5}))

	// Extreme spread still floors at 0.1
	c := Confidence([]float64{0, 1, 0, 1})
	assert.GreaterOrEqual(t, c, 0.1)
	assert.LessOrEqual(t, c, 1.0)

	assert.Equal(t, 0.1, Confidence(nil))
}
