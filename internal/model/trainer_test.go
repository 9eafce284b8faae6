package model

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func repeatedExamples(n int, features []float64, target float64) []Example {
	examples := make([]Example, n)
	for i := range examples {
		examples[i] = Example{Features: features, Target: target}
	}
	return examples
}

func TestTrainerDeliversResult(t *testing.T) {
	tr := NewTrainer(discardLogger())
	defer tr.Stop()

	examples := repeatedExamples(20, []float64{0.3, 0.1, 0.5}, 0.5)
	tr.Submit(context.Background(), "drink", 3, Snapshot{}, examples)

	select {
	case res := <-tr.Results():
		assert.Equal(t, "drink", res.Name)
		assert.Equal(t, 20, res.Examples)
		assert.Len(t, res.Snapshot.Weights, 3)
		assert.False(t, res.Snapshot.TrainedAt.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for training result")
	}
}

func TestTrainerSupersedesInFlightRun(t *testing.T) {
	tr := NewTrainer(discardLogger())
	defer tr.Stop()

	// Large enough to still be training when superseded
	slow := repeatedExamples(200000, []float64{0.3, 0.1, 0.5}, 0.9)
	fast := repeatedExamples(20, []float64{0.3, 0.1, 0.5}, 0.5)

	tr.Submit(context.Background(), "drink", 3, Snapshot{}, slow)
	tr.Submit(context.Background(), "drink", 3, Snapshot{}, fast)

	select {
	case res := <-tr.Results():
		// Only the superseding run's result may arrive
		assert.Equal(t, len(fast), res.Examples)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for training result")
	}

	// No second result from the cancelled run
	select {
	case res := <-tr.Results():
		t.Fatalf("unexpected second result with %d examples", res.Examples)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestTrainerStopCancelsRun(t *testing.T) {
	tr := NewTrainer(discardLogger())

	slow := repeatedExamples(200000, []float64{0.3, 0.1, 0.5}, 0.9)
	tr.Submit(context.Background(), "drink", 3, Snapshot{}, slow)
	tr.Stop()

	select {
	case <-tr.Results():
		t.Fatal("cancelled run must not deliver a result")
	case <-time.After(time.Second):
	}
}

func TestTrainerStopInvalidatesDeliveredResult(t *testing.T) {
	tr := NewTrainer(discardLogger())

	examples := repeatedExamples(20, []float64{0.3, 0.1, 0.5}, 0.5)
	tr.Submit(context.Background(), "drink", 3, Snapshot{}, examples)

	var res Result
	select {
	case res = <-tr.Results():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for training result")
	}
	require.True(t, tr.Current(res))

	// A result sitting in the channel when Stop fires must not be applied
	tr.Stop()
	assert.False(t, tr.Current(res))
}

func TestTrainerEmitsProgress(t *testing.T) {
	tr := NewTrainer(discardLogger())
	defer tr.Stop()

	// Big enough to outlast at least one progress tick
	examples := repeatedExamples(500000, []float64{0.3, 0.1, 0.5}, 0.5)
	tr.Submit(context.Background(), "reminder", 3, Snapshot{}, examples)

	select {
	case p := <-tr.Progress():
		assert.Equal(t, "reminder", p.Name)
		assert.GreaterOrEqual(t, p.Step, 1)
		assert.Equal(t, 10, p.Steps)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for progress")
	}
}

func TestTrainerUsesBaseSnapshot(t *testing.T) {
	tr := NewTrainer(discardLogger())
	defer tr.Stop()

	base := Snapshot{Weights: []float64{0.2, 0.2, 0.2}, Bias: 0.1}
	examples := repeatedExamples(20, []float64{0.3, 0.1, 0.5}, 0.5)
	tr.Submit(context.Background(), "drink", 3, base, examples)

	var res Result
	select {
	case res = <-tr.Results():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for training result")
	}

	m := NewLinearModel(3, nil)
	require.NoError(t, m.Restore(res.Snapshot))
	out, err := m.Predict([]float64{0.3, 0.1, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out, 0.05)
}
