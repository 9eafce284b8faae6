package insight

import (
	"github.com/okuusi/hydromind/internal/behavior"
)

// Insights is the read-only learning summary shown to the user. All
// insufficient-data cases degrade to 0.0 instead of failing.
type Insights struct {
	Model            string  `json:"model"`
	DataPoints       int     `json:"data_points"`
	RecentAccuracy   float64 `json:"recent_accuracy"`
	ImprovementTrend float64 `json:"improvement_trend"`
	Confidence       float64 `json:"confidence"`
	AcceptanceRate   float64 `json:"acceptance_rate,omitempty"`
	Trained          bool    `json:"trained"`
}

const (
	// recentWindow is the entry count the accuracy proxy looks back over
	recentWindow = 10
	// trendMinEntries is required before an improvement trend is reported
	trendMinEntries = 20
	// volumeTarget is the entry count at which data volume saturates the
	// blended confidence
	volumeTarget = 50
)

// Learning summarizes the drink-model history. The accuracy figure is a
// simplistic success-rate proxy over the last entries, not a held-out
// evaluation.
func Learning(entries []behavior.Entry, trained bool) Insights {
	drinks := filter(entries, behavior.KindDrink)
	return Insights{
		Model:            "drink",
		DataPoints:       len(drinks),
		RecentAccuracy:   recentAccuracy(drinks),
		ImprovementTrend: improvementTrend(drinks),
		Confidence:       blendedConfidence(drinks),
		Trained:          trained,
	}
}

// Reminders summarizes the reminder history, including the overall
// acceptance rate.
func Reminders(entries []behavior.Entry, trained bool) Insights {
	reminders := filter(entries, behavior.KindReminder)

	accepted := 0
	for _, e := range reminders {
		if e.Accepted {
			accepted++
		}
	}
	rate := 0.0
	if len(reminders) > 0 {
		rate = float64(accepted) / float64(len(reminders))
	}

	return Insights{
		Model:            "reminder",
		DataPoints:       len(reminders),
		RecentAccuracy:   recentAccuracy(reminders),
		ImprovementTrend: improvementTrend(reminders),
		Confidence:       blendedConfidence(reminders),
		AcceptanceRate:   rate,
		Trained:          trained,
	}
}

// recentAccuracy is the success fraction of the last recentWindow entries.
func recentAccuracy(entries []behavior.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	start := len(entries) - recentWindow
	if start < 0 {
		start = 0
	}
	recent := entries[start:]
	return successRate(recent)
}

// improvementTrend compares the success rate of the second half of the
// history against the first. Below trendMinEntries it reports 0.
func improvementTrend(entries []behavior.Entry) float64 {
	if len(entries) < trendMinEntries {
		return 0
	}
	mid := len(entries) / 2
	return successRate(entries[mid:]) - successRate(entries[:mid])
}

// blendedConfidence mixes data volume with the accuracy proxy, half each.
func blendedConfidence(entries []behavior.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	volume := float64(len(entries)) / volumeTarget
	if volume > 1 {
		volume = 1
	}
	return 0.5*volume + 0.5*recentAccuracy(entries)
}

func successRate(entries []behavior.Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	ok := 0
	for _, e := range entries {
		if e.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(entries))
}

func filter(entries []behavior.Entry, kind behavior.Kind) []behavior.Entry {
	var out []behavior.Entry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
