package suggest

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okuusi/hydromind/internal/behavior"
)

// ScheduleItem is one entry of the daily hydration schedule.
type ScheduleItem struct {
	Hour    int     `json:"hour"`
	Minute  int     `json:"minute"`
	AmountL float64 `json:"amount_l"`
	Source  string  `json:"source"` // "plan" or "model"
}

// DefaultPlan returns the built-in six-item schedule used until enough data
// exists to train the drink model.
func DefaultPlan() []ScheduleItem {
	return []ScheduleItem{
		{Hour: 8, Minute: 0, AmountL: 0.30, Source: "plan"},
		{Hour: 10, Minute: 0, AmountL: 0.25, Source: "plan"},
		{Hour: 12, Minute: 0, AmountL: 0.40, Source: "plan"},
		{Hour: 15, Minute: 0, AmountL: 0.30, Source: "plan"},
		{Hour: 18, Minute: 0, AmountL: 0.25, Source: "plan"},
		{Hour: 20, Minute: 0, AmountL: 0.20, Source: "plan"},
	}
}

// planFile is the YAML shape of a hydration plan file.
type planFile struct {
	Schedule []struct {
		Time    string  `yaml:"time"` // "HH:MM"
		AmountL float64 `yaml:"amount_l"`
	} `yaml:"schedule"`
}

// LoadPlan reads a hydration plan from a YAML file. Callers fall back to
// DefaultPlan on error.
func LoadPlan(path string) ([]ScheduleItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	if len(pf.Schedule) == 0 {
		return nil, fmt.Errorf("plan file has no schedule items")
	}

	items := make([]ScheduleItem, 0, len(pf.Schedule))
	for _, raw := range pf.Schedule {
		var hour, minute int
		if _, err := fmt.Sscanf(raw.Time, "%d:%d", &hour, &minute); err != nil {
			return nil, fmt.Errorf("invalid time %q in plan file: %w", raw.Time, err)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("time %q in plan file out of range", raw.Time)
		}
		if raw.AmountL <= 0 {
			return nil, fmt.Errorf("amount %.2f in plan file must be positive", raw.AmountL)
		}
		items = append(items, ScheduleItem{
			Hour:    hour,
			Minute:  minute,
			AmountL: raw.AmountL,
			Source:  "plan",
		})
	}
	return items, nil
}

// PersonalizedSchedule derives the daily schedule. Until the drink model has
// been trained, or when it yields no usable candidates, the plan is returned
// unchanged.
func PersonalizedSchedule(predictor Predictor, base behavior.Context, window Window, plan []ScheduleItem, logger *slog.Logger) []ScheduleItem {
	if !predictor.Trained() {
		return plan
	}

	candidates := DrinkCandidates(predictor, base, window, logger)
	if len(candidates) == 0 {
		return plan
	}

	items := make([]ScheduleItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, ScheduleItem{
			Hour:    c.Hour,
			Minute:  0,
			AmountL: c.AmountL,
			Source:  "model",
		})
	}
	return items
}
