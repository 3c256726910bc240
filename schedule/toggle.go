package schedule

import (
	"errors"
	"time"
)

var (
	// ErrOutsideEditWindow rejects a write to a day other than today while
	// edit mode is off.
	ErrOutsideEditWindow = errors.New("day is outside the edit window")
	// ErrNotActionable rejects a write to a day that is not a check-in slot.
	ErrNotActionable = errors.New("day is not a check-in slot for this habit")
	// ErrOverTarget rejects a count above the day's target on a habit that
	// does not allow overflow.
	ErrOverTarget = errors.New("count exceeds the day's target and overflow is off")
)

// NextCount is the check/uncheck state machine. A completed day unchecks
// to zero regardless of how its count was accumulated; any other day checks
// to its target, or to 1 when the day has no target.
func NextCount(status DayStatus) int {
	if status.Completed {
		return 0
	}
	if status.Target > 0 {
		return status.Target
	}
	return 1
}

// CanEdit reports whether day may be written: only today, unless edit mode
// is on. Both dates are compared as calendar days.
func CanEdit(day, today time.Time, editMode bool) bool {
	return editMode || DateKey(day) == DateKey(today)
}

// CheckWrite applies the write preconditions shared by every caller that
// persists a count for (h, day).
func CheckWrite(h Habit, day, today time.Time, editMode bool, count int) error {
	if count < 0 {
		return invalid("count", "must not be negative")
	}
	if !CanEdit(day, today, editMode) {
		return ErrOutsideEditWindow
	}
	if count > 0 && !Actionable(h, day) {
		return ErrNotActionable
	}
	if target := TargetFor(h, day); target > 0 && count > target && !h.AllowOverflow {
		return ErrOverTarget
	}
	return nil
}
