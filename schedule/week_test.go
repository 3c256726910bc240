package schedule

import (
	"testing"
	"time"
)

func TestWeekDates(t *testing.T) {
	tests := []struct {
		year, week int
		monday     string
		wantErr    bool
	}{
		{2026, 2, "2026-01-05", false},
		{2026, 1, "2025-12-29", false},
		{2026, 42, "2026-10-12", false},
		{2020, 53, "2020-12-28", false},
		{2025, 53, "", true},
		{2026, 0, "", true},
		{2026, 54, "", true},
	}
	for _, tt := range tests {
		dates, err := WeekDates(tt.year, tt.week)
		if tt.wantErr {
			if err == nil {
				t.Errorf("WeekDates(%d, %d): expected error", tt.year, tt.week)
			} else if fe := FieldErrors(err); len(fe) != 1 || fe[0].Field != "week" {
				t.Errorf("WeekDates(%d, %d): expected week field error, got %v", tt.year, tt.week, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("WeekDates(%d, %d): %v", tt.year, tt.week, err)
			continue
		}
		if got := DateKey(dates[0]); got != tt.monday {
			t.Errorf("WeekDates(%d, %d)[0] = %s, want %s", tt.year, tt.week, got, tt.monday)
		}
		for i := 1; i < 7; i++ {
			if dates[i].Sub(dates[i-1]) != 24*time.Hour {
				t.Errorf("WeekDates(%d, %d): dates not consecutive at %d", tt.year, tt.week, i)
			}
		}
	}
}

func TestISOWeekOfAndStartOfWeek(t *testing.T) {
	friday := time.Date(2026, time.October, 16, 21, 30, 0, 0, time.FixedZone("UTC+8", 8*3600))
	y, w := ISOWeekOf(friday)
	if y != 2026 || w != 42 {
		t.Errorf("ISOWeekOf = %d-W%d, want 2026-W42", y, w)
	}
	if got := DateKey(StartOfWeek(friday)); got != "2026-10-12" {
		t.Errorf("StartOfWeek = %s, want 2026-10-12", got)
	}
	sunday := mustDate(t, "2026-10-18")
	if got := DateKey(StartOfWeek(sunday)); got != "2026-10-12" {
		t.Errorf("StartOfWeek(Sunday) = %s, want 2026-10-12", got)
	}
}

func logsFor(dates [7]time.Time, counts [7]int) map[string]int {
	logs := make(map[string]int)
	for i, d := range dates {
		if counts[i] != 0 {
			logs[DateKey(d)] = counts[i]
		}
	}
	return logs
}

func TestAggregate(t *testing.T) {
	dates, err := WeekDates(2026, 2)
	if err != nil {
		t.Fatal(err)
	}

	flexible := Habit{Frequency: Flexible{WeeklyTarget: 5}, TimesPerDay: 1}
	flexibleOverflow := Habit{Frequency: Flexible{WeeklyTarget: 5}, TimesPerDay: 1, AllowOverflow: true}

	tests := []struct {
		name         string
		h            Habit
		counts       [7]int
		wantRequired int
		wantRate     int
		wantPerfect  bool
		wantOverflow bool
	}{
		{"flexible empty week", flexible, [7]int{}, 5, 0, false, false},
		{"flexible quota met", flexible, [7]int{1, 1, 0, 2, 0, 0, 1}, 5, 100, true, false},
		{"flexible extra without overflow", flexible, [7]int{1, 1, 1, 1, 1, 1, 1}, 5, 100, true, false},
		{"flexible overflow", flexibleOverflow, [7]int{1, 1, 1, 1, 1, 1, 1}, 5, 140, true, true},
		{"weekdays partial", Habit{Frequency: Weekdays{}, TimesPerDay: 1}, [7]int{1, 1, 1}, 5, 60, false, false},
		{"daily counts do not bank across days", Habit{Frequency: Daily{}, TimesPerDay: 1}, [7]int{7}, 7, 14, false, false},
		{"custom all slots met", Habit{Frequency: Custom{Schedule: [7]int{1, 0, 1, 0, 1, 0, 0}}, TimesPerDay: 2}, [7]int{2, 0, 2, 0, 2}, 6, 100, true, false},
		{"custom half a slot", Habit{Frequency: Custom{Schedule: [7]int{1, 0, 1, 0, 1, 0, 0}}, TimesPerDay: 2}, [7]int{2, 0, 2, 0, 1}, 6, 83, false, false},
		{"daily overflow doubles", Habit{Frequency: Daily{}, TimesPerDay: 1, AllowOverflow: true}, [7]int{2, 2, 2, 2, 2, 2, 2}, 7, 200, true, true},
		{"weekend extra check-in", Habit{Frequency: Weekdays{}, TimesPerDay: 1, AllowOverflow: true}, [7]int{1, 1, 1, 1, 1, 1}, 5, 120, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Aggregate(tt.h, dates, logsFor(dates, tt.counts))
			if w.Required != tt.wantRequired {
				t.Errorf("Required = %d, want %d", w.Required, tt.wantRequired)
			}
			if w.WeeklyRate != tt.wantRate {
				t.Errorf("WeeklyRate = %d, want %d", w.WeeklyRate, tt.wantRate)
			}
			if w.IsPerfect != tt.wantPerfect {
				t.Errorf("IsPerfect = %v, want %v", w.IsPerfect, tt.wantPerfect)
			}
			if w.IsOverflow != tt.wantOverflow {
				t.Errorf("IsOverflow = %v, want %v", w.IsOverflow, tt.wantOverflow)
			}
			if w.WeeklyRate < 0 {
				t.Errorf("WeeklyRate = %d, must not be negative", w.WeeklyRate)
			}
			if !tt.h.AllowOverflow && w.WeeklyRate > 100 {
				t.Errorf("WeeklyRate = %d exceeds 100 without overflow", w.WeeklyRate)
			}
		})
	}
}

func TestAggregate_FlexibleWeeklyTargetIsSoleAuthority(t *testing.T) {
	dates, _ := WeekDates(2026, 2)
	h := Habit{Frequency: Flexible{WeeklyTarget: 4}, TimesPerDay: 3}
	w := Aggregate(h, dates, logsFor(dates, [7]int{1, 1, 1, 1}))
	if w.Required != 4 || !w.IsPerfect || w.WeeklyRate != 100 {
		t.Errorf("got required=%d perfect=%v rate=%d, want 4/true/100", w.Required, w.IsPerfect, w.WeeklyRate)
	}
}

func TestAggregate_IsPure(t *testing.T) {
	dates, _ := WeekDates(2026, 2)
	h := Habit{Frequency: Custom{Schedule: [7]int{1, 1, 0, 0, 1, 0, 1}}, TimesPerDay: 1, AllowOverflow: true}
	logs := logsFor(dates, [7]int{1, 0, 3, 0, 1, 0, 2})
	first := Aggregate(h, dates, logs)
	second := Aggregate(h, dates, logs)
	if first != second {
		t.Errorf("Aggregate not deterministic: %+v vs %+v", first, second)
	}
	if len(logs) != 4 {
		t.Errorf("Aggregate mutated its logs input")
	}
}

func TestAggregate_DayRowsInMondayOrder(t *testing.T) {
	dates, _ := WeekDates(2026, 2)
	w := Aggregate(Habit{Frequency: Weekdays{}, TimesPerDay: 1}, dates, nil)
	for i, d := range w.Days {
		if d.Weekday != i {
			t.Errorf("row %d has weekday %d", i, d.Weekday)
		}
		if d.Date != DateKey(dates[i]) {
			t.Errorf("row %d has date %s, want %s", i, d.Date, DateKey(dates[i]))
		}
	}
	if w.Days[5].Actionable || w.Days[6].Actionable {
		t.Errorf("weekend cells of a weekdays habit must not be actionable")
	}
}
