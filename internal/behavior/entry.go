package behavior

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a behavior entry records
type Kind string

const (
	// KindDrink records a logged drinking event
	KindDrink Kind = "drink"
	// KindReminder records a shown reminder and its accept/skip outcome
	KindReminder Kind = "reminder"
)

// Context is the situational snapshot captured at event time. It is never
// recomputed retroactively.
type Context struct {
	Hour         int     `json:"hour"`                     // 0-23
	Weekday      int     `json:"weekday"`                  // 1-7, Monday=1
	TemperatureC float64 `json:"temperature_c"`            // ambient, °C
	SinceLastSec float64 `json:"since_last_sec,omitempty"` // seconds since previous drink, 0 = no prior event
	EventsToday  int     `json:"events_today"`
	RollingAvgL  float64 `json:"rolling_avg_l"` // rolling average drink amount, liters
}

// Entry is one immutable behavior record. Entries are append-only and owned
// exclusively by the Log; they are never mutated or deleted except by a full
// data reset.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	AmountL   float64   `json:"amount_l,omitempty"` // liters drunk (drink entries)
	Accepted  bool      `json:"accepted,omitempty"` // reminder outcome
	Success   bool      `json:"success"`
	Context   Context   `json:"context"`
}

// successAmountL is the minimal drink amount considered a successful event.
const successAmountL = 0.2

// NewDrinkEntry creates an entry for a logged drink.
func NewDrinkEntry(at time.Time, amountL float64, ctx Context) Entry {
	return Entry{
		ID:        uuid.New(),
		Timestamp: at,
		Kind:      KindDrink,
		AmountL:   amountL,
		Success:   amountL >= successAmountL,
		Context:   ctx,
	}
}

// NewReminderEntry creates an entry for a resolved reminder.
func NewReminderEntry(at time.Time, accepted bool, ctx Context) Entry {
	return Entry{
		ID:        uuid.New(),
		Timestamp: at,
		Kind:      KindReminder,
		Accepted:  accepted,
		Success:   accepted,
		Context:   ctx,
	}
}

// WeekdayNumber maps a time.Weekday to the 1-7 range used in contexts,
// Monday first.
func WeekdayNumber(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// ContextAt builds a context snapshot for the given moment. lastEvent may be
// nil when no prior drink exists.
func ContextAt(at time.Time, temperatureC float64, lastEvent *time.Time, eventsToday int, rollingAvgL float64) Context {
	ctx := Context{
		Hour:         at.Hour(),
		Weekday:      WeekdayNumber(at.Weekday()),
		TemperatureC: temperatureC,
		EventsToday:  eventsToday,
		RollingAvgL:  rollingAvgL,
	}
	if lastEvent != nil && at.After(*lastEvent) {
		ctx.SinceLastSec = at.Sub(*lastEvent).Seconds()
	}
	return ctx
}
