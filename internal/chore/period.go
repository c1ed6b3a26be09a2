package chore

import (
	"time"

	"github.com/dukerupert/famorg/internal/model"
)

const dayKeyLayout = "2006-01-02"

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayKey names the calendar day of t in loc, e.g. "2024-05-01".
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayKeyLayout)
}

// PeriodStart returns the start of the current reset period for freq in loc.
// ok is false for frequencies that never reset.
func PeriodStart(freq string, now time.Time, loc *time.Location) (start time.Time, ok bool) {
	today := startOfDay(now.In(loc))
	switch freq {
	case model.FrequencyDaily:
		return today, true
	case model.FrequencyWeekly:
		// Weeks begin on Saturday.
		sinceSaturday := (int(today.Weekday()) + 1) % 7
		return today.AddDate(0, 0, -sinceSaturday), true
	case model.FrequencyMonthly:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}

// ShouldReset reports whether a chore completed at lastCompleted belongs to an
// earlier period than now.
func ShouldReset(freq string, lastCompleted, now time.Time, loc *time.Location) bool {
	start, ok := PeriodStart(freq, now, loc)
	if !ok {
		return false
	}
	return lastCompleted.Before(start)
}
