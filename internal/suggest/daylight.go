package suggest

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// Window is the inclusive hour range drink suggestions are generated for.
type Window struct {
	StartHour int
	EndHour   int
}

// Bounds the daylight clamp never narrows past: suggestions stay useful
// even at high latitudes in winter.
const (
	clampFloorStart = 8
	clampFloorEnd   = 20
)

// DaylightWindow clamps the configured window to local daylight at the given
// coordinates. The result is never narrower than 08-20.
func DaylightWindow(base Window, t time.Time, lat, lon float64) Window {
	times := suncalc.GetTimes(t, lat, lon)

	sunrise := times[suncalc.Sunrise].Value
	sunset := times[suncalc.Sunset].Value
	if sunrise.IsZero() || sunset.IsZero() || !sunset.After(sunrise) {
		// Polar day or night: keep the configured window.
		return base
	}

	// Narrow to daylight, but never past the floor, and never outside the
	// configured window: the clamp only ever shrinks base.
	start := sunrise.Hour()
	if start > clampFloorStart {
		start = clampFloorStart
	}
	if start < base.StartHour {
		start = base.StartHour
	}

	end := sunset.Hour()
	if end < clampFloorEnd {
		end = clampFloorEnd
	}
	if end > base.EndHour {
		end = base.EndHour
	}

	return Window{StartHour: start, EndHour: end}
}
