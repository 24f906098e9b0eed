package common

import (
	"fmt"
	"time"
)

// Monday 00:00 of the week containing t, in t's location
func StartOfWeek(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// Human label for the week containing t, e.g. "Mon 12 Oct - Sun 18 Oct 2026"
func WeekLabel(t time.Time) string {
	monday := StartOfWeek(t)
	sunday := monday.AddDate(0, 0, 6)
	return fmt.Sprintf("%s - %s", monday.Format("Mon 2 Jan"), sunday.Format("Mon 2 Jan 2006"))
}

// First time strictly after now that falls on the given weekday at the given hour
func NextWeekly(now time.Time, weekday time.Weekday, hour int) time.Time {
	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	day := now.AddDate(0, 0, daysAhead)
	next := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
