package shared

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns the half-open interval [start, end) covering t's day.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds returns the Monday-based week containing t.
func WeekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns the calendar month containing t.
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	return start, start.AddDate(0, 1, 0)
}

// DaySeries lists every calendar day from start to end inclusive.
func DaySeries(start, end time.Time, loc *time.Location) []time.Time {
	first := StartOfDay(start, loc)
	last := StartOfDay(end, loc)
	if last.Before(first) {
		return nil
	}
	days := make([]time.Time, 0, DaysBetween(first, last)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DaysBetween counts calendar days from a to b, ignoring DST shifts.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
