// Package schedule holds the habit scheduling model: scheduling policies,
// the per-day target evaluator, the weekly aggregator and the check/uncheck
// state machine. Everything here is pure; persistence lives in package store.
package schedule

// FrequencyType names a scheduling policy on the wire and in the database.
type FrequencyType string

const (
	FrequencyDaily    FrequencyType = "daily"
	FrequencyWeekdays FrequencyType = "weekdays"
	FrequencyWeekends FrequencyType = "weekends"
	FrequencyCustom   FrequencyType = "custom"
	FrequencyFlexible FrequencyType = "flexible"
)

// Frequency is a scheduling policy. The set of implementations is closed:
// Daily, Weekdays, Weekends, Custom and Flexible.
type Frequency interface {
	Type() FrequencyType
	isFrequency()
}

// Daily schedules every day of the week.
type Daily struct{}

// Weekdays schedules Monday through Friday.
type Weekdays struct{}

// Weekends schedules Saturday and Sunday.
type Weekends struct{}

// Custom schedules per weekday. Schedule[0] is Monday, Schedule[6] Sunday;
// zero means not scheduled, a positive value is that day's multiplier.
type Custom struct {
	Schedule [7]int
}

// Flexible requires WeeklyTarget completions anywhere in a Monday-start week.
type Flexible struct {
	WeeklyTarget int
}

func (Daily) Type() FrequencyType    { return FrequencyDaily }
func (Weekdays) Type() FrequencyType { return FrequencyWeekdays }
func (Weekends) Type() FrequencyType { return FrequencyWeekends }
func (Custom) Type() FrequencyType   { return FrequencyCustom }
func (Flexible) Type() FrequencyType { return FrequencyFlexible }

func (Daily) isFrequency()    {}
func (Weekdays) isFrequency() {}
func (Weekends) isFrequency() {}
func (Custom) isFrequency()   {}
func (Flexible) isFrequency() {}

// ScheduledDays counts the weekdays with a positive multiplier.
func (c Custom) ScheduledDays() int {
	n := 0
	for _, v := range c.Schedule {
		if v > 0 {
			n++
		}
	}
	return n
}

// Habit is the behavioral part of a habit definition. Display attributes
// (name, icon, color) travel alongside it but never affect scheduling.
type Habit struct {
	ID            uint
	Name          string
	Frequency     Frequency
	TimesPerDay   int
	AllowOverflow bool
}

// IsFlexible reports whether the habit uses the weekly-quota policy.
func (h Habit) IsFlexible() bool {
	_, ok := h.Frequency.(Flexible)
	return ok
}

// WeeklyTotal is the number of completions a full week asks for: the
// weekly target for flexible habits, otherwise the sum of daily targets.
func (h Habit) WeeklyTotal() int {
	switch f := h.Frequency.(type) {
	case Flexible:
		return f.WeeklyTarget
	case Custom:
		total := 0
		for _, v := range f.Schedule {
			if v > 0 {
				total += v * h.TimesPerDay
			}
		}
		return total
	case Weekdays:
		return 5 * h.TimesPerDay
	case Weekends:
		return 2 * h.TimesPerDay
	default:
		return 7 * h.TimesPerDay
	}
}
