package suggest

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuusi/hydromind/internal/behavior"
	"github.com/okuusi/hydromind/internal/patterns"
)

// fakePredictor returns a fixed value per hour feature, or a constant.
type fakePredictor struct {
	trained bool
	fn      func(features []float64) (float64, error)
}

func (f *fakePredictor) Predict(features []float64) (float64, error) {
	return f.fn(features)
}

func (f *fakePredictor) Trained() bool { return f.trained }

func constPredictor(v float64, trained bool) *fakePredictor {
	return &fakePredictor{trained: trained, fn: func([]float64) (float64, error) {
		return v, nil
	}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDrinkCandidatesFiltersSmallAmounts(t *testing.T) {
	// Recommend only in the morning; afternoon predictions fall under the
	// minimum amount
	p := &fakePredictor{trained: true, fn: func(features []float64) (float64, error) {
		hour := features[0] * 24
		if hour < 12 {
			return 0.35, nil
		}
		return 0.05, nil
	}}

	out := DrinkCandidates(p, behavior.Context{Weekday: 1}, Window{StartHour: 8, EndHour: 20}, testLogger())

	require.NotEmpty(t, out)
	for _, s := range out {
		assert.Less(t, s.Hour, 12)
		assert.Greater(t, s.AmountL, MinRecommendedAmountL)
		assert.Equal(t, behavior.KindDrink, s.Kind)
		assert.Equal(t, "predicted_amount", s.Reason)
		assert.NotEmpty(t, s.Message)
	}
}

func TestDrinkCandidatesCoverWindow(t *testing.T) {
	p := constPredictor(0.3, true)
	out := DrinkCandidates(p, behavior.Context{Weekday: 1}, Window{StartHour: 6, EndHour: 22}, testLogger())

	require.Len(t, out, 17)
	assert.Equal(t, 6, out[0].Hour)
	assert.Equal(t, 22, out[len(out)-1].Hour)
}

func TestDrinkCandidatesSkipPredictionErrors(t *testing.T) {
	p := &fakePredictor{trained: true, fn: func(features []float64) (float64, error) {
		if int(math.Round(features[0]*24)) == 10 {
			return 0, fmt.Errorf("bad features")
		}
		return 0.3, nil
	}}

	out := DrinkCandidates(p, behavior.Context{Weekday: 1}, Window{StartHour: 9, EndHour: 11}, testLogger())

	require.Len(t, out, 2)
	for _, s := range out {
		assert.NotEqual(t, 10, s.Hour)
	}
}

func TestReminderTimesPadsToThree(t *testing.T) {
	// No patterns at all: the full default schedule comes back
	assert.Equal(t, []int{8, 12, 18}, ReminderTimes(nil))

	// One good slot still gets padded with defaults up to three
	ps := []patterns.Pattern{
		{Slot: patterns.SlotEvening, Reminders: 4, AcceptanceRate: 0.9},
	}
	assert.Equal(t, []int{8, 12, 18}, ReminderTimes(ps))
}

func TestReminderTimesDeduplicatesAndSorts(t *testing.T) {
	ps := []patterns.Pattern{
		{Slot: patterns.SlotNight, Reminders: 3, AcceptanceRate: 0.8},
		{Slot: patterns.SlotMorning, Reminders: 5, AcceptanceRate: 0.7},
	}

	hours := ReminderTimes(ps)

	// Good slots 21 and 8, padded with 12; chronological and unique
	assert.Equal(t, []int{8, 12, 21}, hours)
	seen := make(map[int]bool)
	for _, h := range hours {
		assert.False(t, seen[h])
		seen[h] = true
	}
}

func TestSuggestRemindersUntrainedUsesDefaults(t *testing.T) {
	e := NewEngine(testLogger())
	out := e.SuggestReminders(nil, constPredictor(0.9, false), behavior.Context{Weekday: 1})

	require.Len(t, out, 3)
	for _, s := range out {
		assert.Equal(t, behavior.KindReminder, s.Kind)
		assert.Equal(t, "default_schedule", s.Reason)
	}
	assert.Len(t, e.Pending(), 3)
}

func TestSuggestRemindersTrainedBlendsPrediction(t *testing.T) {
	e := NewEngine(testLogger())
	out := e.SuggestReminders(nil, constPredictor(1.0, true), behavior.Context{Weekday: 1})

	require.Len(t, out, 3)
	for _, s := range out {
		assert.Equal(t, "predicted_acceptance", s.Reason)
		assert.Greater(t, s.Confidence, 0.5)
	}
}

func TestSuggestRemindersReplacesPending(t *testing.T) {
	e := NewEngine(testLogger())
	first := e.SuggestReminders(nil, constPredictor(0.5, false), behavior.Context{Weekday: 1})
	second := e.SuggestReminders(nil, constPredictor(0.5, false), behavior.Context{Weekday: 1})

	pending := e.Pending()
	require.Len(t, pending, len(second))
	for _, s := range pending {
		assert.NotEqual(t, first[0].ID, s.ID)
	}
}

func TestTakeRemovesSuggestion(t *testing.T) {
	e := NewEngine(testLogger())
	out := e.SuggestReminders(nil, constPredictor(0.5, false), behavior.Context{Weekday: 1})
	require.NotEmpty(t, out)

	s, ok := e.Take(out[0].ID)
	require.True(t, ok)
	assert.Equal(t, out[0].ID, s.ID)
	assert.Len(t, e.Pending(), len(out)-1)

	// A second take of the same id misses
	_, ok = e.Take(out[0].ID)
	assert.False(t, ok)
}

func TestClearEmptiesPending(t *testing.T) {
	e := NewEngine(testLogger())
	e.SuggestReminders(nil, constPredictor(0.5, false), behavior.Context{Weekday: 1})
	e.Clear()
	assert.Empty(t, e.Pending())
}

func TestPriorityBuckets(t *testing.T) {
	assert.Equal(t, "high", priorityFor(0.85))
	assert.Equal(t, "high", priorityFor(0.8))
	assert.Equal(t, "medium", priorityFor(0.6))
	assert.Equal(t, "medium", priorityFor(0.5))
	assert.Equal(t, "low", priorityFor(0.49))
}
