package schedule

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength   = 100
	MinWeeklyTarget = 1
	MaxWeeklyTarget = 21
	MaxTimesPerDay  = 20
)

// ValidationError rejects one field of a habit definition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FieldErrors flattens err (possibly built with errors.Join) into the
// validation errors it carries. It returns nil when err holds none.
func FieldErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	var out []*ValidationError
	var walk func(error)
	walk = func(e error) {
		if ve, ok := e.(*ValidationError); ok {
			out = append(out, ve)
			return
		}
		if multi, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range multi.Unwrap() {
				walk(inner)
			}
			return
		}
		var ve *ValidationError
		if errors.As(e, &ve) {
			out = append(out, ve)
		}
	}
	walk(err)
	return out
}

// Definition is a loosely typed habit definition as it arrives from a
// form or a database row. Build turns it into a Habit, dropping every field
// the chosen policy does not own.
type Definition struct {
	Name           string
	FrequencyType  FrequencyType
	CustomSchedule []int
	WeeklyTarget   int
	TimesPerDay    int
	AllowOverflow  bool
}

// Build validates the definition. All failing fields are reported together.
func (d Definition) Build() (Habit, error) {
	var errs []error

	name := strings.TrimSpace(d.Name)
	switch {
	case name == "":
		errs = append(errs, invalid("name", "must not be empty"))
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs = append(errs, invalid("name", "must be at most %d characters", MaxNameLength))
	}

	if d.TimesPerDay < 1 || d.TimesPerDay > MaxTimesPerDay {
		errs = append(errs, invalid("times_per_day", "must be between 1 and %d", MaxTimesPerDay))
	}

	var freq Frequency
	switch d.FrequencyType {
	case FrequencyDaily:
		freq = Daily{}
	case FrequencyWeekdays:
		freq = Weekdays{}
	case FrequencyWeekends:
		freq = Weekends{}
	case FrequencyCustom:
		c, err := buildCustom(d.CustomSchedule)
		if err != nil {
			errs = append(errs, err)
		}
		freq = c
	case FrequencyFlexible:
		if d.WeeklyTarget < MinWeeklyTarget || d.WeeklyTarget > MaxWeeklyTarget {
			errs = append(errs, invalid("weekly_target", "must be between %d and %d", MinWeeklyTarget, MaxWeeklyTarget))
		}
		freq = Flexible{WeeklyTarget: d.WeeklyTarget}
	default:
		errs = append(errs, invalid("frequency_type", "unknown frequency type %q", string(d.FrequencyType)))
	}

	if len(errs) > 0 {
		return Habit{}, errors.Join(errs...)
	}
	return Habit{
		Name:          name,
		Frequency:     freq,
		TimesPerDay:   d.TimesPerDay,
		AllowOverflow: d.AllowOverflow,
	}, nil
}

func buildCustom(days []int) (Custom, error) {
	var c Custom
	if len(days) != 7 {
		return c, invalid("custom_schedule", "must have exactly 7 entries (Monday..Sunday), got %d", len(days))
	}
	for i, v := range days {
		if v < 0 || v > MaxTimesPerDay {
			return c, invalid("custom_schedule", "entry %d must be between 0 and %d", i, MaxTimesPerDay)
		}
		c.Schedule[i] = v
	}
	if c.ScheduledDays() == 0 {
		return c, invalid("custom_schedule", "must schedule at least one day")
	}
	return c, nil
}

// DefinitionOf is the inverse of Build: it flattens a Habit back into the
// loosely typed form, leaving fields of other policies at their zero value.
func DefinitionOf(h Habit) Definition {
	d := Definition{
		Name:          h.Name,
		TimesPerDay:   h.TimesPerDay,
		AllowOverflow: h.AllowOverflow,
	}
	if h.Frequency == nil {
		d.FrequencyType = FrequencyDaily
		return d
	}
	d.FrequencyType = h.Frequency.Type()
	switch f := h.Frequency.(type) {
	case Custom:
		d.CustomSchedule = f.Schedule[:]
	case Flexible:
		d.WeeklyTarget = f.WeeklyTarget
	}
	return d
}
