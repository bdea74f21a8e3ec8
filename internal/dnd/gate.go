package dnd

import "time"

// The relay serves a single region, so the suppression window is always
// evaluated in the tradie's local timezone rather than the caller's.
const targetTimezone = "Australia/Sydney"

var targetLocation *time.Location

func init() {
	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		loc = time.FixedZone("AEST", 10*60*60)
	}
	targetLocation = loc
}

// Window is a daily do-not-disturb window in whole hours (0-23).
// Either bound being nil disables suppression entirely.
type Window struct {
	StartHour *int
	EndHour   *int
}

// NewWindow builds a window from optional hour bounds.
func NewWindow(startHour, endHour *int) Window {
	return Window{StartHour: startHour, EndHour: endHour}
}

// Suppressed reports whether now falls inside the window. Comparison is by
// hour-of-day only. A window with StartHour > EndHour spans midnight:
// suppression holds when hour >= start or hour < end.
func (w Window) Suppressed(now time.Time) bool {
	if w.StartHour == nil || w.EndHour == nil {
		return false
	}
	start, end := *w.StartHour, *w.EndHour
	if start < 0 || start > 23 || end < 0 || end > 23 {
		return false
	}
	hour := now.In(targetLocation).Hour()
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
