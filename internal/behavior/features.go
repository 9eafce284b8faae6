package behavior

// Feature extraction maps a context snapshot to a fixed-length vector with
// every component normalized to roughly [0,1]. The normalization constants
// are part of the model contract: changing them invalidates previously
// trained weights.

const (
	// DrinkArity is the feature count of the drink-amount model
	DrinkArity = 7
	// ReminderArity is the feature count of the reminder-acceptance model
	ReminderArity = 6

	hourScale       = 24.0
	weekdayScale    = 7.0
	tempScaleC      = 50.0
	eventsScale     = 10.0
	sinceLastMaxSec = 24 * 60 * 60
)

// ReminderFeatures encodes a context for the reminder-acceptance model.
// Deterministic and side-effect free; missing optional fields map to 0.
func ReminderFeatures(c Context) []float64 {
	hasPrior := 0.0
	if c.SinceLastSec > 0 {
		hasPrior = 1.0
	}
	return []float64{
		float64(c.Hour) / hourScale,
		float64(c.Weekday) / weekdayScale,
		c.TemperatureC / tempScaleC,
		hasPrior,
		float64(c.EventsToday) / eventsScale,
		c.RollingAvgL,
	}
}

// DrinkFeatures encodes a context for the drink-amount model. It extends the
// reminder encoding with the time since the previous drink, clamped to a
// 24-hour window.
func DrinkFeatures(c Context) []float64 {
	sinceLast := c.SinceLastSec
	if sinceLast > sinceLastMaxSec {
		sinceLast = sinceLastMaxSec
	}
	if sinceLast < 0 {
		sinceLast = 0
	}
	return append(ReminderFeatures(c), sinceLast/sinceLastMaxSec)
}
