package main

import (
	"strings"
	"testing"

	"github.com/lifeflow/lifeflow/client"
	"github.com/lifeflow/lifeflow/schedule"
)

func TestCellText(t *testing.T) {
	cases := []struct {
		name string
		in   schedule.DayStatus
		want string
	}{
		{"rest day", schedule.DayStatus{Actionable: false}, "·"},
		{"open", schedule.DayStatus{Actionable: true, Target: 1}, "○"},
		{"done", schedule.DayStatus{Actionable: true, Target: 1, Actual: 1, Completed: true}, "✓"},
		{"overflow", schedule.DayStatus{Actionable: true, Target: 1, Actual: 3, Completed: true, IsOverflow: true}, "✓×3"},
		{"flexible open", schedule.DayStatus{Actionable: true, Target: 0}, "○"},
		{"partial", schedule.DayStatus{Actionable: true, Target: 3, Actual: 1}, "1/3"},
		{"multi done", schedule.DayStatus{Actionable: true, Target: 2, Actual: 2, Completed: true}, "2/2 ✓"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cellText(tc.in); got != tc.want {
				t.Errorf("cellText = %q, want %q", got, tc.want)
			}
		})
	}
}

func sampleWeek() *client.Week {
	dates, _ := schedule.WeekDates(2026, 42)
	h := schedule.Habit{ID: 7, Name: "Gym", Frequency: schedule.Weekdays{}, TimesPerDay: 1}
	logs := map[string]int{schedule.DateKey(dates[0]): 1, schedule.DateKey(dates[1]): 1}
	agg := schedule.Aggregate(h, dates, logs)

	w := &client.Week{Year: 2026, Week: 42, Today: schedule.DateKey(dates[4])}
	for _, d := range dates {
		w.WeekDates = append(w.WeekDates, schedule.DateKey(d))
	}
	w.Habits = []client.HabitWeek{{
		Habit:       client.Habit{ID: 7, Name: "Gym", Icon: "🏋", FrequencyType: schedule.FrequencyWeekdays},
		Days:        agg.Days,
		WeeklyTotal: agg.Required,
		TotalActual: agg.Total,
		WeeklyRate:  agg.WeeklyRate,
	}}
	return w
}

func TestRenderWeek(t *testing.T) {
	out := RenderWeek(sampleWeek())
	for _, want := range []string{"2026-W42", "2026-10-12 to 2026-10-18", "Gym", "Mon 10/12", "Sun 10/18", "2/5", "40%", "✓", "·"} {
		if !strings.Contains(out, want) {
			t.Errorf("week grid missing %q:\n%s", want, out)
		}
	}
}

func TestRenderWeek_Empty(t *testing.T) {
	w := sampleWeek()
	w.Habits = nil
	if out := RenderWeek(w); !strings.Contains(out, "No habits yet") {
		t.Errorf("empty week:\n%s", out)
	}
}

func TestRenderHabitsAndStats(t *testing.T) {
	habits := []client.Habit{
		{ID: 1, Name: "Read", FrequencyText: "Every day", WeeklyTotal: 7},
		{ID: 2, Name: "Run", FrequencyText: "3 times a week", WeeklyTotal: 3, AllowOverflow: true, IsArchived: true},
	}
	out := RenderHabits(habits)
	for _, want := range []string{"Read", "Every day", "Run", "archived", "yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("habit list missing %q:\n%s", want, out)
		}
	}

	stats := &client.Stats{
		Days: 30, TotalCheckins: 12, WindowCheckins: 9, CurrentStreak: 4, PerfectWeekStreak: 2, OverflowWeekStreak: 1,
		RecentLogs: []client.LogEntry{{Date: "2026-10-15", Count: 2}},
	}
	out = RenderStats(&habits[1], stats)
	for _, want := range []string{"current streak       4 days", "perfect weeks        2", "overflow weeks       1", "check-ins (30 days)  9", "2026-10-15×2"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
}

func TestHabitFlagsInput(t *testing.T) {
	f := HabitFlags{Days: []int{1, 0, 1, 0, 1, 0, 0}}
	in := f.input()
	if in.FrequencyType == nil || *in.FrequencyType != schedule.FrequencyCustom {
		t.Errorf("days without frequency should imply custom, got %v", in.FrequencyType)
	}
	if in.Name != nil || in.WeeklyTarget != nil {
		t.Errorf("unset flags leaked into input: %+v", in)
	}
	if err := (HabitFlags{Frequency: "monthly"}).Validate(); err == nil {
		t.Error("unknown frequency accepted")
	}
}
