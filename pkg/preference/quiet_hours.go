package preference

import (
	"time"
)

// parseClock parses an "HH:MM" local time into minutes since midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// QuietWindow reports whether now falls inside the user's quiet hours and,
// if so, when the window ends. Times are evaluated in the user's timezone.
// A window whose start is later than its end wraps across midnight
// (e.g. 22:00-07:00 covers late evening and early morning).
func (p Preference) QuietWindow(now time.Time) (bool, time.Time) {
	if p.QuietHoursStart == "" || p.QuietHoursEnd == "" {
		return false, time.Time{}
	}

	start, ok := parseClock(p.QuietHoursStart)
	if !ok {
		return false, time.Time{}
	}
	end, ok := parseClock(p.QuietHoursEnd)
	if !ok {
		return false, time.Time{}
	}
	if start == end {
		// Degenerate window, treat as disabled rather than always-quiet.
		return false, time.Time{}
	}

	local := now.In(p.Location())
	minute := local.Hour()*60 + local.Minute()

	var inside bool
	if start < end {
		inside = minute >= start && minute < end
	} else {
		// Wraps midnight.
		inside = minute >= start || minute < end
	}
	if !inside {
		return false, time.Time{}
	}

	// Resume at the next occurrence of the window end.
	endAt := time.Date(local.Year(), local.Month(), local.Day(),
		end/60, end%60, 0, 0, local.Location())
	if !endAt.After(local) {
		endAt = endAt.AddDate(0, 0, 1)
	}
	return true, endAt
}
