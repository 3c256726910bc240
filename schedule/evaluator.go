package schedule

import "time"

// WeekdayIndex maps a date to 0=Monday .. 6=Sunday.
func WeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// TargetFor returns the number of completions the habit asks for on d.
// Flexible habits have no per-day target and always return 0.
func TargetFor(h Habit, d time.Time) int {
	wd := WeekdayIndex(d)
	switch f := h.Frequency.(type) {
	case Weekdays:
		if wd <= 4 {
			return h.TimesPerDay
		}
		return 0
	case Weekends:
		if wd >= 5 {
			return h.TimesPerDay
		}
		return 0
	case Custom:
		if f.Schedule[wd] > 0 {
			return f.Schedule[wd] * h.TimesPerDay
		}
		return 0
	case Flexible:
		return 0
	default:
		return h.TimesPerDay
	}
}

// Actionable reports whether d is a check-in slot for the habit: a day with
// a target, or any day of a flexible or overflow-allowing habit.
func Actionable(h Habit, d time.Time) bool {
	return TargetFor(h, d) > 0 || h.IsFlexible() || h.AllowOverflow
}

// DayStatus is the computed state of one (habit, date) cell.
type DayStatus struct {
	Date       string `json:"date"`
	Weekday    int    `json:"weekday"`
	Target     int    `json:"target"`
	Actual     int    `json:"actual"`
	Completed  bool   `json:"completed"`
	Actionable bool   `json:"actionable"`
	IsOverflow bool   `json:"is_overflow"`
}

// DayStatusFor derives the cell for date d given the logged count.
func DayStatusFor(h Habit, d time.Time, actual int) DayStatus {
	if actual < 0 {
		actual = 0
	}
	target := TargetFor(h, d)
	actionable := target > 0 || h.IsFlexible() || h.AllowOverflow

	completed := false
	if target > 0 {
		completed = actual >= target
	} else if actionable {
		completed = actual > 0
	}

	return DayStatus{
		Date:       DateKey(d),
		Weekday:    WeekdayIndex(d),
		Target:     target,
		Actual:     actual,
		Completed:  completed,
		Actionable: actionable,
		IsOverflow: h.AllowOverflow && !h.IsFlexible() && actual > target,
	}
}
