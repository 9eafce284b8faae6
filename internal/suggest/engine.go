package suggest

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okuusi/hydromind/internal/behavior"
	"github.com/okuusi/hydromind/internal/model"
	"github.com/okuusi/hydromind/internal/patterns"
)

// Predictor is the model surface the engine consumes.
type Predictor interface {
	Predict(features []float64) (float64, error)
	Trained() bool
}

// MinRecommendedAmountL filters out drink candidates too small to suggest.
const MinRecommendedAmountL = 0.1

// Suggestion is a candidate reminder or drink-time proposal. It is ephemeral:
// it lives in the pending set until accepted or declined, and the decision
// itself becomes a new behavior entry.
type Suggestion struct {
	ID         uuid.UUID     `json:"id"`
	Kind       behavior.Kind `json:"kind"`
	Hour       int           `json:"hour"`
	AmountL    float64       `json:"amount_l,omitempty"`
	Message    string        `json:"message"`
	Confidence float64       `json:"confidence"`
	Priority   string        `json:"priority"`
	Reason     string        `json:"reason"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Engine generates ranked suggestions and tracks the pending set. Single
// writer by contract, like the rest of the core.
type Engine struct {
	pending map[uuid.UUID]Suggestion
	order   []uuid.UUID
	logger  *slog.Logger
}

// NewEngine creates an engine with an empty pending set.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		pending: make(map[uuid.UUID]Suggestion),
		logger:  logger,
	}
}

// DrinkCandidates builds one candidate per hour of the window, keeping only
// hours where the model recommends more than MinRecommendedAmountL.
func DrinkCandidates(predictor Predictor, base behavior.Context, window Window, logger *slog.Logger) []Suggestion {
	var out []Suggestion
	for hour := window.StartHour; hour <= window.EndHour; hour++ {
		ctx := base
		ctx.Hour = hour

		features := behavior.DrinkFeatures(ctx)
		amount, err := predictor.Predict(features)
		if err != nil {
			logger.Warn("Drink prediction failed", "hour", hour, "error", err)
			continue
		}
		if amount <= MinRecommendedAmountL {
			continue
		}

		confidence := model.Confidence(features)
		out = append(out, Suggestion{
			ID:         uuid.New(),
			Kind:       behavior.KindDrink,
			Hour:       hour,
			AmountL:    amount,
			Message:    fmt.Sprintf("Drink %.2f L around %02d:00", amount, hour),
			Confidence: confidence,
			Priority:   priorityFor(confidence),
			Reason:     "predicted_amount",
			CreatedAt:  time.Now(),
		})
	}
	return out
}

// defaultReminderHours pad the reminder times when fewer than three good
// slots exist: morning, lunch, evening.
var defaultReminderHours = []int{8, 12, 18}

// ReminderTimes maps good time slots to canonical hours, pads with the
// default hours up to three, sorts chronologically, and deduplicates by
// hour.
func ReminderTimes(ps []patterns.Pattern) []int {
	seen := make(map[int]bool)
	var hours []int

	for _, slot := range patterns.GoodSlots(ps) {
		hour := patterns.CanonicalHour(slot)
		if !seen[hour] {
			seen[hour] = true
			hours = append(hours, hour)
		}
	}

	for _, hour := range defaultReminderHours {
		if len(hours) >= 3 {
			break
		}
		if !seen[hour] {
			seen[hour] = true
			hours = append(hours, hour)
		}
	}

	sort.Ints(hours)
	return hours
}

// SuggestReminders regenerates the pending reminder suggestions from the
// current patterns. Previously pending reminder suggestions are replaced.
func (e *Engine) SuggestReminders(ps []patterns.Pattern, predictor Predictor, base behavior.Context) []Suggestion {
	e.clearKind(behavior.KindReminder)

	var out []Suggestion
	for _, hour := range ReminderTimes(ps) {
		ctx := base
		ctx.Hour = hour

		features := behavior.ReminderFeatures(ctx)
		confidence := model.Confidence(features)
		reason := "default_schedule"
		if predictor.Trained() {
			if p, err := predictor.Predict(features); err == nil {
				// Blend the acceptance prediction into the ranking once
				// the model has actually been trained.
				confidence = (confidence + p) / 2
				reason = "predicted_acceptance"
			}
		}

		s := Suggestion{
			ID:         uuid.New(),
			Kind:       behavior.KindReminder,
			Hour:       hour,
			Message:    fmt.Sprintf("Hydration reminder at %02d:00", hour),
			Confidence: confidence,
			Priority:   priorityFor(confidence),
			Reason:     reason,
			CreatedAt:  time.Now(),
		}
		e.add(s)
		out = append(out, s)
	}

	e.logger.Info("Reminder suggestions generated", "count", len(out))
	return out
}

// Pending returns the pending suggestions in generation order.
func (e *Engine) Pending() []Suggestion {
	out := make([]Suggestion, 0, len(e.order))
	for _, id := range e.order {
		if s, ok := e.pending[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Take removes and returns a pending suggestion.
func (e *Engine) Take(id uuid.UUID) (Suggestion, bool) {
	s, ok := e.pending[id]
	if !ok {
		return Suggestion{}, false
	}
	delete(e.pending, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return s, true
}

// Clear discards all pending suggestions.
func (e *Engine) Clear() {
	e.pending = make(map[uuid.UUID]Suggestion)
	e.order = nil
}

func (e *Engine) add(s Suggestion) {
	e.pending[s.ID] = s
	e.order = append(e.order, s.ID)
}

func (e *Engine) clearKind(kind behavior.Kind) {
	var kept []uuid.UUID
	for _, id := range e.order {
		if s, ok := e.pending[id]; ok && s.Kind == kind {
			delete(e.pending, id)
			continue
		}
		kept = append(kept, id)
	}
	e.order = kept
}

func priorityFor(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
