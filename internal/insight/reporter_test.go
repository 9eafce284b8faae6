package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuusi/hydromind/internal/behavior"
)

func drinks(amounts ...float64) []behavior.Entry {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	out := make([]behavior.Entry, 0, len(amounts))
	for i, a := range amounts {
		out = append(out, behavior.NewDrinkEntry(at.Add(time.Duration(i)*time.Hour), a, behavior.Context{Hour: 8, Weekday: 1}))
	}
	return out
}

func reminders(outcomes ...bool) []behavior.Entry {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	out := make([]behavior.Entry, 0, len(outcomes))
	for i, accepted := range outcomes {
		out = append(out, behavior.NewReminderEntry(at.Add(time.Duration(i)*time.Hour), accepted, behavior.Context{Hour: 8, Weekday: 1}))
	}
	return out
}

func TestLearningEmptyHistoryDegradesToZero(t *testing.T) {
	in := Learning(nil, false)

	assert.Equal(t, "drink", in.Model)
	assert.Equal(t, 0, in.DataPoints)
	assert.Equal(t, 0.0, in.RecentAccuracy)
	assert.Equal(t, 0.0, in.ImprovementTrend)
	assert.Equal(t, 0.0, in.Confidence)
	assert.False(t, in.Trained)
}

func TestLearningCountsOnlyDrinks(t *testing.T) {
	entries := append(drinks(0.3, 0.3), reminders(true, false)...)
	in := Learning(entries, true)

	assert.Equal(t, 2, in.DataPoints)
	assert.True(t, in.Trained)
}

func TestRecentAccuracyUsesLastEntries(t *testing.T) {
	// Ten small (failed) drinks followed by ten successful ones: the
	// recent window only sees the successes
	history := append(drinks(0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1),
		drinks(0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3)...)

	in := Learning(history, true)
	assert.Equal(t, 1.0, in.RecentAccuracy)
}

func TestImprovementTrend(t *testing.T) {
	// First half all failures, second half all successes
	var history []behavior.Entry
	for i := 0; i < 10; i++ {
		history = append(history, drinks(0.1)...)
	}
	for i := 0; i < 10; i++ {
		history = append(history, drinks(0.3)...)
	}

	in := Learning(history, true)
	assert.InDelta(t, 1.0, in.ImprovementTrend, 1e-9)
}

func TestImprovementTrendRequiresEnoughData(t *testing.T) {
	in := Learning(drinks(0.1, 0.1, 0.3, 0.3, 0.3), true)
	assert.Equal(t, 0.0, in.ImprovementTrend)
}

func TestBlendedConfidenceMixesVolumeAndAccuracy(t *testing.T) {
	// 25 successful drinks: volume 25/50 = 0.5, accuracy 1.0
	var history []behavior.Entry
	for i := 0; i < 25; i++ {
		history = append(history, drinks(0.3)...)
	}

	in := Learning(history, true)
	assert.InDelta(t, 0.5*0.5+0.5*1.0, in.Confidence, 1e-9)
}

func TestBlendedConfidenceVolumeSaturates(t *testing.T) {
	var history []behavior.Entry
	for i := 0; i < 80; i++ {
		history = append(history, drinks(0.3)...)
	}

	in := Learning(history, true)
	assert.InDelta(t, 1.0, in.Confidence, 1e-9)
}

func TestRemindersAcceptanceRate(t *testing.T) {
	in := Reminders(reminders(true, true, false, true), true)

	require.Equal(t, 4, in.DataPoints)
	assert.Equal(t, "reminder", in.Model)
	assert.InDelta(t, 0.75, in.AcceptanceRate, 1e-9)
	assert.InDelta(t, 0.75, in.RecentAccuracy, 1e-9)
}

func TestRemindersIgnoreDrinkEntries(t *testing.T) {
	entries := append(reminders(true, false), drinks(0.3, 0.4, 0.5)...)
	in := Reminders(entries, false)

	assert.Equal(t, 2, in.DataPoints)
	assert.InDelta(t, 0.5, in.AcceptanceRate, 1e-9)
}
