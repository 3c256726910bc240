package schedule

import "time"

// CurrentStreak counts consecutive completed check-in slots ending today,
// looking back at most `lookback` days. Unscheduled days of fixed policies
// are skipped rather than breaking the streak; every day is a slot for a
// flexible habit. An unfinished today does not break the streak.
func CurrentStreak(h Habit, today time.Time, logs map[string]int, lookback int) int {
	streak := 0
	day := Day(today)
	for i := 0; i < lookback; i++ {
		d := day.AddDate(0, 0, -i)
		status := DayStatusFor(h, d, logs[DateKey(d)])
		if status.Target == 0 && !h.IsFlexible() {
			continue
		}
		if status.Completed {
			streak++
			continue
		}
		if i == 0 {
			continue
		}
		break
	}
	return streak
}

// WeekStreaks counts consecutive perfect weeks and consecutive overflow
// weeks ending with the current week, looking back at most maxWeeks weeks.
// The current week only counts once it already qualifies.
func WeekStreaks(h Habit, today time.Time, logs map[string]int, maxWeeks int) (perfect, overflow int) {
	monday := StartOfWeek(today)
	perfectOpen, overflowOpen := true, true
	for i := 0; i < maxWeeks && (perfectOpen || overflowOpen); i++ {
		start := monday.AddDate(0, 0, -7*i)
		var dates [7]time.Time
		for j := range dates {
			dates[j] = start.AddDate(0, 0, j)
		}
		w := Aggregate(h, dates, logs)

		if perfectOpen {
			switch {
			case w.IsPerfect:
				perfect++
			case i > 0:
				perfectOpen = false
			}
		}
		if overflowOpen {
			switch {
			case w.IsOverflow:
				overflow++
			case i > 0:
				overflowOpen = false
			}
		}
	}
	return perfect, overflow
}
