package schedule

import (
	"time"

	"github.com/GameoCoder/attendance-backend/internal/model"
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayName returns the schedule day-of-week label for t.
func DayName(t time.Time) string {
	return dayNames[int(t.Weekday())]
}

// WindowContains reports whether t's time of day falls inside the
// [start, end] window, inclusive on both bounds. Start and end are clock
// times formatted HH:MM; malformed bounds yield false.
func WindowContains(start, end string, t time.Time) bool {
	startSec, ok := clockSeconds(start)
	if !ok {
		return false
	}
	endSec, ok := clockSeconds(end)
	if !ok {
		return false
	}
	nowSec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return nowSec >= startSec && nowSec <= endSec
}

// FirstActive returns the entry with the lowest schedule id whose window
// contains t, or nil when no entry is active. Overlaps are not deduplicated;
// the lowest id wins deterministically.
func FirstActive(entries []model.ScheduleEntry, t time.Time) *model.ScheduleEntry {
	var active *model.ScheduleEntry
	for i := range entries {
		entry := &entries[i]
		if !WindowContains(entry.Start, entry.End, t) {
			continue
		}
		if active == nil || entry.ID < active.ID {
			active = entry
		}
	}
	return active
}

func clockSeconds(value string) (int, bool) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*3600 + parsed.Minute()*60, true
}
