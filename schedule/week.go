package schedule

import (
	"math"
	"time"
)

// DateLayout is the calendar-date format used on the wire and as the log key.
const DateLayout = "2006-01-02"

// DateKey formats the calendar day of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an ISO-8601 calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, invalid("date", "must be an ISO-8601 calendar date (YYYY-MM-DD)")
	}
	return d, nil
}

// Day truncates t to its calendar day in t's own location, re-expressed as
// midnight UTC so that keys and arithmetic are location independent.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ISOWeekOf returns the ISO year and week that contain t.
func ISOWeekOf(t time.Time) (year, week int) {
	return Day(t).ISOWeek()
}

// StartOfWeek returns the Monday of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	d := Day(t)
	return d.AddDate(0, 0, -WeekdayIndex(d))
}

// WeekDates returns the seven dates, Monday first, of ISO week `week` of
// ISO year `year`.
func WeekDates(year, week int) ([7]time.Time, error) {
	var dates [7]time.Time
	if week < 1 || week > 53 {
		return dates, invalid("week", "must be between 1 and 53")
	}
	// January 4th always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := StartOfWeek(jan4).AddDate(0, 0, 7*(week-1))
	if y, w := monday.ISOWeek(); y != year || w != week {
		return dates, invalid("week", "ISO year %d has no week %d", year, week)
	}
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i)
	}
	return dates, nil
}

// WeekSummary is the weekly roll-up of seven day statuses.
type WeekSummary struct {
	// Required is the week's total target.
	Required int `json:"weekly_total"`
	// Total is every logged completion, including overflow.
	Total int `json:"total_actual"`
	// Met counts completions that fill a required slot.
	Met        int  `json:"-"`
	WeeklyRate int  `json:"weekly_rate"`
	IsPerfect  bool `json:"is_perfect"`
	IsOverflow bool `json:"is_overflow"`
}

// Week is a habit's row in the weekly grid.
type Week struct {
	Days [7]DayStatus `json:"week_status"`
	WeekSummary
}

// Aggregate builds the weekly row for h. logs maps DateKey to the logged
// count; missing keys count as zero.
func Aggregate(h Habit, dates [7]time.Time, logs map[string]int) Week {
	var w Week
	slotMet := 0
	for i, d := range dates {
		status := DayStatusFor(h, d, logs[DateKey(d)])
		w.Days[i] = status
		w.Total += status.Actual
		if h.IsFlexible() {
			continue
		}
		w.Required += status.Target
		slotMet += min(status.Actual, status.Target)
	}

	if f, ok := h.Frequency.(Flexible); ok {
		w.Required = f.WeeklyTarget
		w.Met = min(w.Total, w.Required)
	} else {
		w.Met = slotMet
	}

	achieved := w.Met
	if h.AllowOverflow {
		achieved = w.Total
	}
	w.WeeklyRate = rate(achieved, w.Required)
	w.IsPerfect = w.Met >= w.Required
	w.IsOverflow = h.AllowOverflow && w.Total > w.Required
	return w
}

func rate(achieved, required int) int {
	if required <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(achieved) / float64(required)))
}
