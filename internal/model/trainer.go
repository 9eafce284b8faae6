package model

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Result carries an immutable snapshot produced by a completed training run.
// Generation identifies the submission the run belongs to; consumers check it
// with Current before applying, since a result can sit in the channel across
// a Stop or a newer submission.
type Result struct {
	Name       string
	Snapshot   Snapshot
	Examples   int
	Generation uint64
}

// Progress is a discrete step of the simulated training ramp. It is a
// fixed-duration indicator for interactive surfaces, not tied to actual
// epoch completion.
type Progress struct {
	Name  string
	Step  int
	Steps int
}

const (
	progressSteps    = 10
	progressInterval = 150 * time.Millisecond
)

// Trainer runs training as a cancellable background unit of work. A new
// submission cancels and supersedes any in-flight run: last writer wins,
// and a superseded run's result is discarded even if it completes after
// cancellation.
type Trainer struct {
	logger   *slog.Logger
	results  chan Result
	progress chan Progress

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// NewTrainer creates a trainer. Completed snapshots are delivered on
// Results; the consumer applies them to the live model.
func NewTrainer(logger *slog.Logger) *Trainer {
	return &Trainer{
		logger:   logger,
		results:  make(chan Result, 4),
		progress: make(chan Progress, progressSteps),
	}
}

// Results returns the channel of completed training snapshots.
func (t *Trainer) Results() <-chan Result {
	return t.results
}

// Progress returns the channel of simulated progress steps.
func (t *Trainer) Progress() <-chan Progress {
	return t.progress
}

// Submit starts a training run for the named model, cancelling any run
// already in flight.
func (t *Trainer) Submit(ctx context.Context, name string, arity int, base Snapshot, examples []Example) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	t.logger.Info("Training submitted",
		"model", name,
		"examples", len(examples),
		"generation", gen)

	go t.run(runCtx, gen, name, arity, base, examples)
}

// Stop cancels any in-flight training run and invalidates results already
// delivered but not yet applied.
func (t *Trainer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
}

// Current reports whether a delivered result still belongs to the latest
// submission. Stop and newer submissions invalidate older results.
func (t *Trainer) Current(r Result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return r.Generation == t.gen
}

func (t *Trainer) run(ctx context.Context, gen uint64, name string, arity int, base Snapshot, examples []Example) {
	done := make(chan struct{})
	go t.ramp(ctx, name, done)
	defer close(done)

	m := NewLinearModel(arity, rand.New(rand.NewSource(time.Now().UnixNano())))
	if len(base.Weights) == arity {
		if err := m.Restore(base); err != nil {
			t.logger.Warn("Failed to restore base snapshot, training from fresh weights",
				"model", name, "error", err)
		}
	}

	start := time.Now()
	if err := m.Train(ctx, examples); err != nil {
		t.logger.Info("Training cancelled",
			"model", name,
			"generation", gen,
			"error", err)
		return
	}

	snapshot := m.Snapshot()
	snapshot.Examples = len(examples)
	snapshot.TrainedAt = time.Now()

	// Deliver only if this run is still the latest one. A superseded run
	// that finished anyway is discarded here.
	t.mu.Lock()
	current := t.gen
	t.mu.Unlock()
	if gen != current {
		t.logger.Debug("Discarding superseded training result",
			"model", name,
			"generation", gen,
			"current", current)
		return
	}

	select {
	case t.results <- Result{Name: name, Snapshot: snapshot, Examples: len(examples), Generation: gen}:
		t.logger.Info("Training completed",
			"model", name,
			"examples", len(examples),
			"duration_ms", time.Since(start).Milliseconds())
	case <-ctx.Done():
	}
}

// ramp emits the fixed-duration simulated progress steps while a run is
// active.
func (t *Trainer) ramp(ctx context.Context, name string, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for step := 1; step <= progressSteps; step++ {
		select {
		case <-ticker.C:
			select {
			case t.progress <- Progress{Name: name, Step: step, Steps: progressSteps}:
			default:
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
