package timeframe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayLayout is the date format used for daily buckets.
const DayLayout = "2006-01-02"

// DefaultWindowDays is used when no window is requested.
const DefaultWindowDays = 30

// AllTimeMaxDays bounds the number of buckets produced for the all-time window.
const AllTimeMaxDays = 3650

// DateStat is one bucket of a daily series.
type DateStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TimeProvider is an interface for getting the current time
type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

// Now returns the current time in loc.
func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// Window is a report range in whole UTC days ending today. Days == 0 means
// all time.
type Window struct {
	Days int
}

// Supported windows.
var (
	Window7   = Window{Days: 7}
	Window30  = Window{Days: 30}
	Window90  = Window{Days: 90}
	Window365 = Window{Days: 365}
	WindowAll = Window{}
)

// ParseWindow accepts "7", "30", "90", "365", "all" or "" (30 days).
func ParseWindow(raw string) (Window, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return Window{Days: DefaultWindowDays}, nil
	case "all":
		return WindowAll, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window %q", raw)
	}
	switch days {
	case 7, 30, 90, 365:
		return Window{Days: days}, nil
	}
	return Window{}, fmt.Errorf("unsupported window %q", raw)
}

// IsAll reports whether the window covers all time.
func (w Window) IsAll() bool {
	return w.Days == 0
}

// String returns the query value for the window.
func (w Window) String() string {
	if w.IsAll() {
		return "all"
	}
	return strconv.Itoa(w.Days)
}

// Since returns the first instant inside the window, or the zero time for
// the all-time window.
func (w Window) Since(now time.Time) time.Time {
	if w.IsAll() {
		return time.Time{}
	}
	return StartOfDay(now).AddDate(0, 0, -(w.Days - 1))
}

// DayStarts returns the start of every UTC day in the window, oldest first. For the
// all-time window the first day is the day of earliest, or today when
// earliest is zero.
func (w Window) DayStarts(now, earliest time.Time) []time.Time {
	today := StartOfDay(now)

	var first time.Time
	if w.IsAll() {
		first = today
		if !earliest.IsZero() {
			first = StartOfDay(earliest)
		}
		if floor := today.AddDate(0, 0, -(AllTimeMaxDays - 1)); first.Before(floor) {
			first = floor
		}
		if first.After(today) {
			first = today
		}
	} else {
		first = w.Since(now)
	}

	var days []time.Time
	for d := first; !d.After(today); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats t as its UTC day.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
