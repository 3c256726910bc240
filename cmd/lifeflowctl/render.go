package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lifeflow/lifeflow/client"
	"github.com/lifeflow/lifeflow/schedule"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	todayStyle    = headerStyle.Foreground(lipgloss.Color("39"))
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	doneStyle     = cellStyle.Foreground(lipgloss.Color("42"))
	overflowStyle = cellStyle.Foreground(lipgloss.Color("214"))
	mutedStyle    = cellStyle.Foreground(lipgloss.Color("240"))
)

// cellText draws one day: "·" is not a slot, "○" is open, "✓" is done.
// Days asking for more than one completion show actual/target.
func cellText(d schedule.DayStatus) string {
	if !d.Actionable {
		return "·"
	}
	if d.Target <= 1 {
		switch {
		case d.Actual == 0:
			return "○"
		case d.Actual == 1:
			return "✓"
		default:
			return "✓×" + strconv.Itoa(d.Actual)
		}
	}
	if d.Completed {
		return fmt.Sprintf("%d/%d ✓", d.Actual, d.Target)
	}
	return fmt.Sprintf("%d/%d", d.Actual, d.Target)
}

func cellStyleFor(d schedule.DayStatus) lipgloss.Style {
	switch {
	case !d.Actionable:
		return mutedStyle
	case d.IsOverflow:
		return overflowStyle
	case d.Completed:
		return doneStyle
	}
	return cellStyle
}

func rateText(row client.HabitWeek) string {
	s := strconv.Itoa(row.WeeklyRate) + "%"
	if row.IsPerfect {
		s += " ★"
	}
	if row.IsOverflow {
		s += " ↑"
	}
	return s
}

func habitLabel(h client.Habit) string {
	if h.Icon == "" {
		return h.Name
	}
	return h.Icon + " " + h.Name
}

// RenderWeek draws the week grid with one row per habit.
func RenderWeek(w *client.Week) string {
	headers := []string{"ID", "Habit"}
	todayCol := -1
	for _, d := range w.WeekDates {
		label := d
		if t, err := schedule.ParseDate(d); err == nil {
			label = t.Format("Mon 01/02")
		}
		if d == w.Today {
			todayCol = len(headers)
		}
		headers = append(headers, label)
	}
	headers = append(headers, "Week", "Rate")

	rows := make([][]string, 0, len(w.Habits))
	for _, h := range w.Habits {
		row := []string{strconv.FormatUint(uint64(h.Habit.ID), 10), habitLabel(h.Habit)}
		for _, d := range h.Days {
			row = append(row, cellText(d))
		}
		row = append(row, fmt.Sprintf("%d/%d", h.TotalActual, h.WeeklyTotal), rateText(h))
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				if col == todayCol {
					return todayStyle
				}
				return headerStyle
			}
			day := col - 2
			if row >= 0 && row < len(w.Habits) && day >= 0 && day < 7 {
				return cellStyleFor(w.Habits[row].Days[day])
			}
			return cellStyle
		})

	var b strings.Builder
	first, last := "", ""
	if len(w.WeekDates) == 7 {
		first, last = w.WeekDates[0], w.WeekDates[6]
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d-W%02d  %s to %s", w.Year, w.Week, first, last)))
	b.WriteString("\n")
	if len(w.Habits) == 0 {
		b.WriteString("No habits yet. Add one with `lifeflowctl habits add`.\n")
		return b.String()
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderToday lists today's slots with their progress.
func RenderToday(t *client.Today) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %d/%d done", t.Date, t.Completed, t.Total)))
	b.WriteString("\n")
	for _, item := range t.Habits {
		line := fmt.Sprintf("  %-4s %s", cellText(item.Status), habitLabel(item.Habit))
		if item.Habit.FrequencyType == schedule.FrequencyFlexible {
			line += fmt.Sprintf("  (%d/%d this week)", item.WeekTotal, item.WeekRequired)
		}
		b.WriteString(cellStyleFor(item.Status).UnsetPadding().Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHabits draws the habit list.
func RenderHabits(habits []client.Habit) string {
	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		status := ""
		if h.IsArchived {
			status = "archived"
		}
		overflow := ""
		if h.AllowOverflow {
			overflow = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(h.ID), 10),
			habitLabel(h),
			h.FrequencyText,
			strconv.Itoa(h.WeeklyTotal),
			overflow,
			status,
		})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "Habit", "Frequency", "Per week", "Overflow", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(habits) && habits[row].IsArchived {
				return mutedStyle
			}
			return cellStyle
		})
	return t.Render() + "\n"
}

// RenderStats prints the streak summary of one habit.
func RenderStats(h *client.Habit, s *client.Stats) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(habitLabel(*h)))
	b.WriteString("  " + h.FrequencyText + "\n")
	fmt.Fprintf(&b, "  current streak       %d days\n", s.CurrentStreak)
	fmt.Fprintf(&b, "  perfect weeks        %d in a row\n", s.PerfectWeekStreak)
	if h.AllowOverflow {
		fmt.Fprintf(&b, "  overflow weeks       %d in a row\n", s.OverflowWeekStreak)
	}
	fmt.Fprintf(&b, "  check-ins (%d days)  %d\n", s.Days, s.WindowCheckins)
	fmt.Fprintf(&b, "  check-ins (all)      %d\n", s.TotalCheckins)
	if len(s.RecentLogs) > 0 {
		days := make([]string, 0, len(s.RecentLogs))
		for _, l := range s.RecentLogs {
			days = append(days, fmt.Sprintf("%s×%d", l.Date, l.Count))
		}
		b.WriteString("  recent  " + strings.Join(days, ", ") + "\n")
	}
	return b.String()
}
