package patterns

import (
	"sort"

	"github.com/okuusi/hydromind/internal/behavior"
)

// Slot is a time-of-day bucket.
type Slot string

const (
	SlotMorning   Slot = "morning"   // [6,12)
	SlotAfternoon Slot = "afternoon" // [12,17)
	SlotEvening   Slot = "evening"   // [17,21)
	SlotNight     Slot = "night"     // everything else
)

// acceptanceCutoff separates poor slots from good ones.
const acceptanceCutoff = 0.6

// AllSlots lists the slots in canonical day order.
var AllSlots = []Slot{SlotMorning, SlotAfternoon, SlotEvening, SlotNight}

// SlotForHour buckets an hour of day into its slot.
func SlotForHour(hour int) Slot {
	switch {
	case hour >= 6 && hour < 12:
		return SlotMorning
	case hour >= 12 && hour < 17:
		return SlotAfternoon
	case hour >= 17 && hour < 21:
		return SlotEvening
	default:
		return SlotNight
	}
}

// CanonicalHour maps a slot to its representative hour for reminder times.
func CanonicalHour(s Slot) int {
	switch s {
	case SlotMorning:
		return 8
	case SlotAfternoon:
		return 14
	case SlotEvening:
		return 18
	default:
		return 21
	}
}

// Pattern aggregates one slot's statistics. Frequencies across all returned
// patterns sum to 1.0 for a non-empty input.
type Pattern struct {
	Slot           Slot    `json:"slot"`
	Frequency      float64 `json:"frequency"`
	AverageAmount  float64 `json:"average_amount_l"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	Entries        int     `json:"entries"`
	Reminders      int     `json:"reminders"`
}

// Analyze groups entries by time slot and computes per-slot frequency,
// average drink amount, and reminder acceptance rate. Patterns are sorted
// descending by frequency; ties keep the order slots were first seen in the
// input, so a given input always yields the same order.
func Analyze(entries []behavior.Entry) []Pattern {
	if len(entries) == 0 {
		return nil
	}

	type slotStats struct {
		entries   int
		drinks    int
		amountSum float64
		reminders int
		accepted  int
	}

	stats := make(map[Slot]*slotStats)
	var order []Slot

	for _, e := range entries {
		slot := SlotForHour(e.Context.Hour)
		s, ok := stats[slot]
		if !ok {
			s = &slotStats{}
			stats[slot] = s
			order = append(order, slot)
		}
		s.entries++
		switch e.Kind {
		case behavior.KindDrink:
			s.drinks++
			s.amountSum += e.AmountL
		case behavior.KindReminder:
			s.reminders++
			if e.Accepted {
				s.accepted++
			}
		}
	}

	patterns := make([]Pattern, 0, len(order))
	total := float64(len(entries))
	for _, slot := range order {
		s := stats[slot]
		p := Pattern{
			Slot:      slot,
			Frequency: float64(s.entries) / total,
			Entries:   s.entries,
			Reminders: s.reminders,
		}
		if s.drinks > 0 {
			p.AverageAmount = s.amountSum / float64(s.drinks)
		}
		if s.reminders > 0 {
			p.AcceptanceRate = float64(s.accepted) / float64(s.reminders)
		}
		patterns = append(patterns, p)
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Frequency > patterns[j].Frequency
	})

	return patterns
}

// GoodSlots returns slots with reminder data and acceptance above the
// cutoff; these are eligible for new suggestion times.
func GoodSlots(patterns []Pattern) []Slot {
	var out []Slot
	for _, p := range patterns {
		if p.Reminders > 0 && p.AcceptanceRate > acceptanceCutoff {
			out = append(out, p.Slot)
		}
	}
	return out
}

// PoorSlots returns slots with reminder data and acceptance below the
// cutoff; these should not receive new suggestions.
func PoorSlots(patterns []Pattern) []Slot {
	var out []Slot
	for _, p := range patterns {
		if p.Reminders > 0 && p.AcceptanceRate < acceptanceCutoff {
			out = append(out, p.Slot)
		}
	}
	return out
}

// MissingSlots returns slots with no entries at all.
func MissingSlots(patterns []Pattern) []Slot {
	seen := make(map[Slot]bool, len(patterns))
	for _, p := range patterns {
		seen[p.Slot] = true
	}
	var out []Slot
	for _, slot := range AllSlots {
		if !seen[slot] {
			out = append(out, slot)
		}
	}
	return out
}
