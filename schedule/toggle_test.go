package schedule

import (
	"errors"
	"testing"
)

func TestNextCount(t *testing.T) {
	monday := mustDate(t, "2026-01-05")
	saturday := mustDate(t, "2026-01-10")
	daily2 := Habit{Frequency: Daily{}, TimesPerDay: 2}
	flexible := Habit{Frequency: Flexible{WeeklyTarget: 3}, TimesPerDay: 2}
	overflow := Habit{Frequency: Weekdays{}, TimesPerDay: 1, AllowOverflow: true}

	tests := []struct {
		name   string
		status DayStatus
		want   int
	}{
		{"empty day checks to target", DayStatusFor(daily2, monday, 0), 2},
		{"partial day checks to target", DayStatusFor(daily2, monday, 1), 2},
		{"completed day unchecks", DayStatusFor(daily2, monday, 2), 0},
		{"over-completed day unchecks", DayStatusFor(daily2, monday, 5), 0},
		{"flexible checks to one", DayStatusFor(flexible, monday, 0), 1},
		{"flexible unchecks", DayStatusFor(flexible, monday, 1), 0},
		{"unscheduled overflow checks to one", DayStatusFor(overflow, saturday, 0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextCount(tt.status); got != tt.want {
				t.Errorf("NextCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextCount_CheckThenUncheckRestoresZero(t *testing.T) {
	monday := mustDate(t, "2026-01-05")
	habits := []Habit{
		{Frequency: Daily{}, TimesPerDay: 1},
		{Frequency: Daily{}, TimesPerDay: 4},
		{Frequency: Custom{Schedule: [7]int{2, 0, 0, 0, 0, 0, 0}}, TimesPerDay: 3},
		{Frequency: Flexible{WeeklyTarget: 5}, TimesPerDay: 1},
	}
	for _, h := range habits {
		checked := NextCount(DayStatusFor(h, monday, 0))
		if checked == 0 {
			t.Errorf("%s: check from empty produced 0", FrequencyText(h))
			continue
		}
		if !DayStatusFor(h, monday, checked).Completed {
			t.Errorf("%s: checked day not completed", FrequencyText(h))
		}
		if got := NextCount(DayStatusFor(h, monday, checked)); got != 0 {
			t.Errorf("%s: uncheck produced %d, want 0", FrequencyText(h), got)
		}
	}
}

func TestCanEdit(t *testing.T) {
	today := mustDate(t, "2026-10-16")
	yesterday := mustDate(t, "2026-10-15")
	tomorrow := mustDate(t, "2026-10-17")

	if !CanEdit(today, today, false) {
		t.Error("today must be editable without edit mode")
	}
	if CanEdit(yesterday, today, false) {
		t.Error("yesterday must not be editable without edit mode")
	}
	if CanEdit(tomorrow, today, false) {
		t.Error("tomorrow must not be editable without edit mode")
	}
	if !CanEdit(yesterday, today, true) || !CanEdit(tomorrow, today, true) {
		t.Error("edit mode must open every day")
	}
}

func TestCheckWrite(t *testing.T) {
	today := mustDate(t, "2026-10-16")    // Friday
	saturday := mustDate(t, "2026-10-17") // Saturday
	weekdays := Habit{Frequency: Weekdays{}, TimesPerDay: 1}

	if err := CheckWrite(weekdays, today, today, false, 1); err != nil {
		t.Errorf("write to today: %v", err)
	}
	if err := CheckWrite(weekdays, saturday, today, false, 1); !errors.Is(err, ErrOutsideEditWindow) {
		t.Errorf("write outside window: got %v, want ErrOutsideEditWindow", err)
	}
	if err := CheckWrite(weekdays, saturday, today, true, 1); !errors.Is(err, ErrNotActionable) {
		t.Errorf("write to unscheduled day: got %v, want ErrNotActionable", err)
	}
	if err := CheckWrite(weekdays, saturday, today, true, 0); err != nil {
		t.Errorf("clearing an unscheduled day must be allowed: %v", err)
	}
	err := CheckWrite(weekdays, today, today, false, -1)
	if fe := FieldErrors(err); len(fe) != 1 || fe[0].Field != "count" {
		t.Errorf("negative count: got %v, want count field error", err)
	}

	if err := CheckWrite(weekdays, today, today, false, 2); !errors.Is(err, ErrOverTarget) {
		t.Errorf("count above target without overflow: got %v, want ErrOverTarget", err)
	}

	weekdays.AllowOverflow = true
	if err := CheckWrite(weekdays, saturday, today, true, 2); err != nil {
		t.Errorf("overflow write to unscheduled day: %v", err)
	}
	if err := CheckWrite(weekdays, today, today, false, 5); err != nil {
		t.Errorf("overflow write above target: %v", err)
	}

	flexible := Habit{Frequency: Flexible{WeeklyTarget: 3}, TimesPerDay: 1}
	if err := CheckWrite(flexible, today, today, false, 3); err != nil {
		t.Errorf("flexible day has no per-day cap: %v", err)
	}
}
