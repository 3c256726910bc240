package schedule

import "fmt"

// FrequencyText is the short human summary shown next to a habit name,
// e.g. "Every day", "Weekdays · 2 times/day" or "3 days/week".
func FrequencyText(h Habit) string {
	perDay := ""
	if h.TimesPerDay > 1 {
		perDay = fmt.Sprintf(" · %d times/day", h.TimesPerDay)
	}
	switch f := h.Frequency.(type) {
	case Flexible:
		return fmt.Sprintf("%d times/week%s", f.WeeklyTarget, perDay)
	case Custom:
		return fmt.Sprintf("%d days/week%s", f.ScheduledDays(), perDay)
	case Weekdays:
		return "Weekdays" + perDay
	case Weekends:
		return "Weekends" + perDay
	default:
		if h.TimesPerDay > 1 {
			return fmt.Sprintf("%d times/day", h.TimesPerDay)
		}
		return "Every day"
	}
}
