package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Training constants. Epoch count is the only stopping criterion: there is
// no regularization and no convergence check.
const (
	// MinTrainExamples is the smallest batch Train will act on
	MinTrainExamples = 5

	epochs       = 75
	learningRate = 0.01
	initialSpan  = 0.1
)

// Example is one training pair: a normalized feature vector and its target
// in [0,1].
type Example struct {
	Features []float64
	Target   float64
}

// Snapshot is an immutable copy of trained parameters. The weight length
// always equals the model arity.
type Snapshot struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Examples  int       `json:"examples"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
}

// LinearModel is a single-layer linear model: bias + Σ(weight_i * feature_i),
// clamped to [0,1]. Arity is fixed at construction; a mismatched feature
// vector is a checked error rather than a silent truncation.
type LinearModel struct {
	arity   int
	weights []float64
	bias    float64
	trained bool
}

// NewLinearModel creates a model with randomized initial parameters.
func NewLinearModel(arity int, rng *rand.Rand) *LinearModel {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	weights := make([]float64, arity)
	for i := range weights {
		weights[i] = rng.Float64()*2*initialSpan - initialSpan
	}
	return &LinearModel{
		arity:   arity,
		weights: weights,
		bias:    rng.Float64()*2*initialSpan - initialSpan,
	}
}

// Arity returns the fixed feature count.
func (m *LinearModel) Arity() int {
	return m.arity
}

// Trained reports whether a training pass has been applied.
func (m *LinearModel) Trained() bool {
	return m.trained
}

// Predict computes the clamped linear output for a feature vector.
func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(features) != m.arity {
		return 0, fmt.Errorf("feature arity mismatch: got %d, model expects %d", len(features), m.arity)
	}
	sum := m.bias
	for i, f := range features {
		sum += m.weights[i] * f
	}
	return clamp(sum, 0, 1), nil
}

// Train runs full-batch gradient descent over the examples. Fewer than
// MinTrainExamples is a silent no-op. The model state is replaced atomically
// only after the full pass; a cancelled context leaves it untouched.
func (m *LinearModel) Train(ctx context.Context, examples []Example) error {
	if len(examples) < MinTrainExamples {
		return nil
	}
	for _, ex := range examples {
		if len(ex.Features) != m.arity {
			return fmt.Errorf("example arity mismatch: got %d, model expects %d", len(ex.Features), m.arity)
		}
	}

	weights := make([]float64, m.arity)
	copy(weights, m.weights)
	bias := m.bias

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, ex := range examples {
			sum := bias
			for i, f := range ex.Features {
				sum += weights[i] * f
			}
			err := ex.Target - clamp(sum, 0, 1)
			for i, f := range ex.Features {
				weights[i] += learningRate * err * f
			}
			bias += learningRate * err
		}
	}

	m.weights = weights
	m.bias = bias
	m.trained = true
	return nil
}

// Snapshot returns an immutable copy of the current parameters.
func (m *LinearModel) Snapshot() Snapshot {
	weights := make([]float64, len(m.weights))
	copy(weights, m.weights)
	return Snapshot{
		Weights: weights,
		Bias:    m.bias,
	}
}

// Restore replaces the model parameters from a snapshot. The snapshot must
// match the model arity.
func (m *LinearModel) Restore(s Snapshot) error {
	if len(s.Weights) != m.arity {
		return fmt.Errorf("snapshot arity mismatch: got %d, model expects %d", len(s.Weights), m.arity)
	}
	weights := make([]float64, m.arity)
	copy(weights, s.Weights)
	m.weights = weights
	m.bias = s.Bias
	m.trained = true
	return nil
}

// Confidence is a cheap heuristic derived from the feature vector's own
// dispersion, independent of prediction accuracy. It is not a calibrated
// probability.
func Confidence(features []float64) float64 {
	if len(features) == 0 {
		return 0.1
	}
	mean := 0.0
	for _, f := range features {
		mean += f
	}
	mean /= float64(len(features))

	variance := 0.0
	for _, f := range features {
		d := f - mean
		variance += d * d
	}
	variance /= float64(len(features))

	return clamp(1-math.Sqrt(variance), 0.1, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
