package hydration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okuusi/hydromind/internal/behavior"
	"github.com/okuusi/hydromind/internal/insight"
	"github.com/okuusi/hydromind/internal/model"
	"github.com/okuusi/hydromind/internal/patterns"
	"github.com/okuusi/hydromind/internal/suggest"
	"github.com/okuusi/hydromind/pkg/config"
	"github.com/okuusi/hydromind/pkg/redis"
)

// ErrUnknownSuggestion is returned when an accept/dismiss call names a
// suggestion that is not pending.
var ErrUnknownSuggestion = errors.New("unknown suggestion")

// Retrain thresholds: below these counts feedback is recorded but the model
// stays at its initial state and predictions are low confidence.
const (
	drinkRetrainMin    = 10
	reminderRetrainMin = 5
	rollingAvgWindow   = 10
)

const (
	drinkModelName    = "drink"
	reminderModelName = "reminder"
)

// Prediction is the drink-model answer to "what should happen next".
type Prediction struct {
	Hour       int     `json:"hour"`
	AmountL    float64 `json:"amount_l"`
	Confidence float64 `json:"confidence"`
}

// PatternAnalysis bundles the analyzer output with its derived slot sets.
type PatternAnalysis struct {
	Patterns     []patterns.Pattern `json:"patterns"`
	GoodSlots    []patterns.Slot    `json:"good_slots"`
	PoorSlots    []patterns.Slot    `json:"poor_slots"`
	MissingSlots []patterns.Slot    `json:"missing_slots"`
}

// Service owns the behavior log, both linear models, and the suggestion
// engine. All mutation runs on a single loop goroutine; public methods post
// commands to it, so no internal locking exists. Training runs on the
// trainer's worker and re-enters the loop through its result channel.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	kv      behavior.KeyValue
	log     *behavior.Log
	drink   *model.LinearModel
	rmdr    *model.LinearModel
	trainer *model.Trainer
	engine  *suggest.Engine
	plan    []suggest.ScheduleItem

	temperatureC float64
	clock        func() time.Time
	runCtx       context.Context // loop lifetime, set by Run

	onTrained func(name string, s model.Snapshot)

	cmds    chan func()
	running chan struct{}
}

// NewService wires the core. archive may be nil; clock may be nil for
// wall-clock time.
func NewService(cfg *config.Config, kv behavior.KeyValue, archive behavior.Archiver, logger *slog.Logger, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}

	plan := suggest.DefaultPlan()
	if cfg.PlanFile != "" {
		loaded, err := suggest.LoadPlan(cfg.PlanFile)
		if err != nil {
			logger.Warn("Failed to load hydration plan, using built-in defaults",
				"file", cfg.PlanFile, "error", err)
		} else {
			plan = loaded
			logger.Info("Hydration plan loaded", "file", cfg.PlanFile, "items", len(plan))
		}
	}

	rng := rand.New(rand.NewSource(clock().UnixNano()))

	return &Service{
		cfg:     cfg,
		logger:  logger,
		kv:      kv,
		log:     behavior.NewLog(kv, archive, cfg.MaxLogEntries, logger),
		drink:   model.NewLinearModel(behavior.DrinkArity, rng),
		rmdr:    model.NewLinearModel(behavior.ReminderArity, rng),
		trainer: model.NewTrainer(logger),
		engine:  suggest.NewEngine(logger),
		plan:    plan,
		clock:   clock,
		cmds:    make(chan func()),
		running: make(chan struct{}),
	}
}

// Ready is closed once Run has loaded persisted state and begun serving
// commands.
func (s *Service) Ready() <-chan struct{} {
	return s.running
}

// SetTrainedHook registers a callback invoked on the service loop after a
// training snapshot is applied. Must be called before Run.
func (s *Service) SetTrainedHook(fn func(name string, snap model.Snapshot)) {
	s.onTrained = fn
}

// TrainingProgress exposes the trainer's simulated progress steps.
func (s *Service) TrainingProgress() <-chan model.Progress {
	return s.trainer.Progress()
}

// Run loads persisted state and serves commands until the context is
// cancelled. It is the single writer for all core state.
func (s *Service) Run(ctx context.Context) {
	s.runCtx = ctx
	s.log.Open(ctx)
	s.restoreModel(ctx, drinkModelName, s.drink)
	s.restoreModel(ctx, reminderModelName, s.rmdr)
	close(s.running)

	s.logger.Info("Hydration service started",
		"entries", s.log.Len(),
		"drink_trained", s.drink.Trained(),
		"reminder_trained", s.rmdr.Trained())

	for {
		select {
		case fn := <-s.cmds:
			fn()
		case res := <-s.trainer.Results():
			s.applyTraining(ctx, res)
		case <-ctx.Done():
			s.trainer.Stop()
			s.logger.Info("Hydration service stopped")
			return
		}
	}
}

// do runs fn on the service loop and waits for it.
func (s *Service) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddBehaviorData appends a pre-built entry and checks the retrain
// threshold for its kind.
func (s *Service) AddBehaviorData(ctx context.Context, e behavior.Entry) error {
	return s.do(ctx, func() {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		s.log.Append(ctx, e)
		s.maybeRetrain(e.Kind)
	})
}

// RecordDrink captures the situational context, appends a drink entry, and
// checks the retrain threshold.
func (s *Service) RecordDrink(ctx context.Context, at time.Time, amountL float64) (behavior.Entry, error) {
	var entry behavior.Entry
	err := s.do(ctx, func() {
		entry = behavior.NewDrinkEntry(at, amountL, s.contextAt(at))
		s.log.Append(ctx, entry)
		s.maybeRetrain(behavior.KindDrink)
	})
	return entry, err
}

// RecordReminderOutcome appends a reminder outcome entry for a reminder
// shown outside the suggestion flow.
func (s *Service) RecordReminderOutcome(ctx context.Context, at time.Time, accepted bool) (behavior.Entry, error) {
	var entry behavior.Entry
	err := s.do(ctx, func() {
		entry = behavior.NewReminderEntry(at, accepted, s.contextAt(at))
		s.log.Append(ctx, entry)
		s.maybeRetrain(behavior.KindReminder)
	})
	return entry, err
}

// SetTemperature updates the cached ambient temperature used in new context
// snapshots.
func (s *Service) SetTemperature(ctx context.Context, temperatureC float64) error {
	return s.do(ctx, func() {
		s.temperatureC = temperatureC
	})
}

// PredictOptimal returns the best drink suggestion for today, or nil while
// the model is untrained.
func (s *Service) PredictOptimal(ctx context.Context) (*Prediction, error) {
	var out *Prediction
	err := s.do(ctx, func() {
		if !s.drink.Trained() {
			return
		}
		now := s.clock()
		candidates := suggest.DrinkCandidates(s.drink, s.contextAt(now), s.window(now), s.logger)
		for _, c := range candidates {
			if out == nil || c.AmountL > out.AmountL {
				out = &Prediction{Hour: c.Hour, AmountL: c.AmountL, Confidence: c.Confidence}
			}
		}
	})
	return out, err
}

// PredictAt returns the recommended amount for the given hour of day, or
// nil while the drink model is untrained.
func (s *Service) PredictAt(ctx context.Context, hour int) (*Prediction, error) {
	var out *Prediction
	err := s.do(ctx, func() {
		if !s.drink.Trained() {
			return
		}
		c := s.contextAt(s.clock())
		c.Hour = hour
		features := behavior.DrinkFeatures(c)
		amount, perr := s.drink.Predict(features)
		if perr != nil {
			s.logger.Warn("Drink prediction failed", "hour", hour, "error", perr)
			return
		}
		out = &Prediction{Hour: hour, AmountL: amount, Confidence: model.Confidence(features)}
	})
	return out, err
}

// GetPersonalizedSchedule returns the model-driven schedule, or the plan
// while too little data exists.
func (s *Service) GetPersonalizedSchedule(ctx context.Context) ([]suggest.ScheduleItem, error) {
	var out []suggest.ScheduleItem
	err := s.do(ctx, func() {
		now := s.clock()
		out = suggest.PersonalizedSchedule(s.drink, s.contextAt(now), s.window(now), s.plan, s.logger)
	})
	return out, err
}

// ContextNow returns the situational snapshot the service would attach to
// an event happening right now.
func (s *Service) ContextNow(ctx context.Context) (behavior.Context, error) {
	var out behavior.Context
	err := s.do(ctx, func() {
		out = s.contextAt(s.clock())
	})
	return out, err
}

// AnalyzePatterns runs the pattern analyzer over the full log.
func (s *Service) AnalyzePatterns(ctx context.Context) (PatternAnalysis, error) {
	var out PatternAnalysis
	err := s.do(ctx, func() {
		ps := patterns.Analyze(s.log.Entries())
		out = PatternAnalysis{
			Patterns:     ps,
			GoodSlots:    patterns.GoodSlots(ps),
			PoorSlots:    patterns.PoorSlots(ps),
			MissingSlots: patterns.MissingSlots(ps),
		}
	})
	return out, err
}

// GetLearningInsights summarizes the drink history.
func (s *Service) GetLearningInsights(ctx context.Context) (insight.Insights, error) {
	var out insight.Insights
	err := s.do(ctx, func() {
		out = insight.Learning(s.log.Entries(), s.drink.Trained())
	})
	return out, err
}

// GetReminderInsights summarizes the reminder history.
func (s *Service) GetReminderInsights(ctx context.Context) (insight.Insights, error) {
	var out insight.Insights
	err := s.do(ctx, func() {
		out = insight.Reminders(s.log.Entries(), s.rmdr.Trained())
	})
	return out, err
}

// AnalyzeAndSuggestReminders regenerates the pending reminder suggestions
// from current patterns.
func (s *Service) AnalyzeAndSuggestReminders(ctx context.Context) ([]suggest.Suggestion, error) {
	var out []suggest.Suggestion
	err := s.do(ctx, func() {
		ps := patterns.Analyze(s.log.Entries())
		out = s.engine.SuggestReminders(ps, s.rmdr, s.contextAt(s.clock()))
	})
	return out, err
}

// SuggestedReminders lists the pending suggestions.
func (s *Service) SuggestedReminders(ctx context.Context) ([]suggest.Suggestion, error) {
	var out []suggest.Suggestion
	err := s.do(ctx, func() {
		out = s.engine.Pending()
	})
	return out, err
}

// AcceptSuggestion resolves a pending suggestion as accepted: the decision
// becomes a behavior entry and retraining is signalled. The suggestion is
// returned so the caller can promote it into a persisted reminder.
func (s *Service) AcceptSuggestion(ctx context.Context, id uuid.UUID) (suggest.Suggestion, error) {
	return s.resolveSuggestion(ctx, id, true)
}

// DismissSuggestion resolves a pending suggestion as declined.
func (s *Service) DismissSuggestion(ctx context.Context, id uuid.UUID) (suggest.Suggestion, error) {
	return s.resolveSuggestion(ctx, id, false)
}

// ResetData discards the behavior log, pending suggestions, and persisted
// model weights. Models re-initialize with random weights.
func (s *Service) ResetData(ctx context.Context) error {
	return s.do(ctx, func() {
		// Kill any training run over the discarded entries, including a
		// completed result still sitting in the channel.
		s.trainer.Stop()

		s.log.Reset(ctx)
		s.engine.Clear()

		rng := rand.New(rand.NewSource(s.clock().UnixNano()))
		s.drink = model.NewLinearModel(behavior.DrinkArity, rng)
		s.rmdr = model.NewLinearModel(behavior.ReminderArity, rng)

		for _, name := range []string{drinkModelName, reminderModelName} {
			if err := s.kv.Delete(ctx, redis.ModelKey(name)); err != nil {
				s.logger.Warn("Failed to delete persisted model", "model", name, "error", err)
			}
		}

		s.logger.Info("All hydration data reset")
	})
}

func (s *Service) resolveSuggestion(ctx context.Context, id uuid.UUID, accepted bool) (suggest.Suggestion, error) {
	var (
		out   suggest.Suggestion
		rsErr error
	)
	err := s.do(ctx, func() {
		sg, ok := s.engine.Take(id)
		if !ok {
			rsErr = fmt.Errorf("%w: %s", ErrUnknownSuggestion, id)
			return
		}
		out = sg

		now := s.clock()
		entryCtx := s.contextAt(now)
		entryCtx.Hour = sg.Hour
		s.log.Append(ctx, behavior.NewReminderEntry(now, accepted, entryCtx))
		s.maybeRetrain(behavior.KindReminder)

		s.logger.Info("Suggestion resolved",
			"id", sg.ID,
			"hour", sg.Hour,
			"accepted", accepted)
	})
	if err != nil {
		return suggest.Suggestion{}, err
	}
	return out, rsErr
}

// contextAt builds a context snapshot from the current log state.
func (s *Service) contextAt(at time.Time) behavior.Context {
	return behavior.ContextAt(
		at,
		s.temperatureC,
		s.log.LastDrink(),
		s.log.DrinksOn(at),
		s.log.RollingAverage(rollingAvgWindow),
	)
}

// window returns the suggestion window, optionally clamped to daylight.
func (s *Service) window(at time.Time) suggest.Window {
	w := suggest.Window{StartHour: s.cfg.WindowStartHour, EndHour: s.cfg.WindowEndHour}
	if s.cfg.ClampToDaylight {
		w = suggest.DaylightWindow(w, at, s.cfg.Latitude, s.cfg.Longitude)
	}
	return w
}

// maybeRetrain submits a background training run once the entry count for
// the kind crosses its threshold. A run already in flight is cancelled and
// superseded. The run is tied to the loop's lifetime, not the triggering
// call's context: training must survive the caller hanging up.
func (s *Service) maybeRetrain(kind behavior.Kind) {
	switch kind {
	case behavior.KindDrink:
		entries := s.log.ByKind(behavior.KindDrink)
		if len(entries) < drinkRetrainMin {
			return
		}
		examples := make([]model.Example, 0, len(entries))
		for _, e := range entries {
			target := e.AmountL
			if target > 1 {
				target = 1
			}
			examples = append(examples, model.Example{
				Features: behavior.DrinkFeatures(e.Context),
				Target:   target,
			})
		}
		s.trainer.Submit(s.runCtx, drinkModelName, behavior.DrinkArity, s.drink.Snapshot(), examples)

	case behavior.KindReminder:
		entries := s.log.ByKind(behavior.KindReminder)
		if len(entries) < reminderRetrainMin {
			return
		}
		examples := make([]model.Example, 0, len(entries))
		for _, e := range entries {
			target := 0.0
			if e.Accepted {
				target = 1.0
			}
			examples = append(examples, model.Example{
				Features: behavior.ReminderFeatures(e.Context),
				Target:   target,
			})
		}
		s.trainer.Submit(s.runCtx, reminderModelName, behavior.ReminderArity, s.rmdr.Snapshot(), examples)
	}
}

// applyTraining swaps the completed snapshot into the live model and
// persists it. Persistence failure is logged and ignored.
func (s *Service) applyTraining(ctx context.Context, res model.Result) {
	if !s.trainer.Current(res) {
		s.logger.Debug("Discarding stale training result", "model", res.Name)
		return
	}

	var m *model.LinearModel
	switch res.Name {
	case drinkModelName:
		m = s.drink
	case reminderModelName:
		m = s.rmdr
	default:
		s.logger.Warn("Training result for unknown model", "model", res.Name)
		return
	}

	if err := m.Restore(res.Snapshot); err != nil {
		s.logger.Error("Failed to apply training snapshot", "model", res.Name, "error", err)
		return
	}

	data, err := json.Marshal(res.Snapshot)
	if err != nil {
		s.logger.Warn("Failed to serialize model snapshot", "model", res.Name, "error", err)
	} else if err := s.kv.Save(ctx, redis.ModelKey(res.Name), data); err != nil {
		s.logger.Warn("Failed to persist model snapshot", "model", res.Name, "error", err)
	}

	s.logger.Info("Model updated",
		"model", res.Name,
		"examples", res.Examples)

	if s.onTrained != nil {
		s.onTrained(res.Name, res.Snapshot)
	}
}

// restoreModel loads persisted weights; any failure falls back to the fresh
// random initialization.
func (s *Service) restoreModel(ctx context.Context, name string, m *model.LinearModel) {
	data, err := s.kv.Load(ctx, redis.ModelKey(name))
	if err != nil {
		s.logger.Warn("Failed to load persisted model, keeping fresh weights", "model", name, "error", err)
		return
	}
	if data == nil {
		return
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("Malformed persisted model, keeping fresh weights", "model", name, "error", err)
		return
	}
	if err := m.Restore(snap); err != nil {
		s.logger.Warn("Persisted model incompatible, keeping fresh weights", "model", name, "error", err)
		return
	}

	s.logger.Info("Model restored", "model", name, "examples", snap.Examples)
}
