package client

import (
	"time"

	"github.com/lifeflow/lifeflow/schedule"
)

// Habit is a habit definition as served by the API.
type Habit struct {
	ID             uint                   `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Icon           string                 `json:"icon"`
	Color          string                 `json:"color"`
	FrequencyType  schedule.FrequencyType `json:"frequency_type"`
	CustomSchedule []int                  `json:"custom_schedule"`
	WeeklyTarget   int                    `json:"weekly_target"`
	TimesPerDay    int                    `json:"times_per_day"`
	AllowOverflow  bool                   `json:"allow_overflow"`
	IsArchived     bool                   `json:"is_archived"`
	SortOrder      int                    `json:"sort_order"`
	WeeklyTotal    int                    `json:"weekly_total"`
	FrequencyText  string                 `json:"frequency_text"`
}

// Schedule builds the scheduling model of h, so callers can evaluate days
// locally.
func (h Habit) Schedule() (schedule.Habit, error) {
	s, err := schedule.Definition{
		Name:           h.Name,
		FrequencyType:  h.FrequencyType,
		CustomSchedule: h.CustomSchedule,
		WeeklyTarget:   h.WeeklyTarget,
		TimesPerDay:    h.TimesPerDay,
		AllowOverflow:  h.AllowOverflow,
	}.Build()
	if err != nil {
		return schedule.Habit{}, err
	}
	s.ID = h.ID
	return s, nil
}

// HabitInput carries create and partial-update fields. Nil fields are left
// out of the request.
type HabitInput struct {
	Name           *string                 `json:"name,omitempty"`
	Description    *string                 `json:"description,omitempty"`
	Icon           *string                 `json:"icon,omitempty"`
	Color          *string                 `json:"color,omitempty"`
	FrequencyType  *schedule.FrequencyType `json:"frequency_type,omitempty"`
	CustomSchedule []int                   `json:"custom_schedule,omitempty"`
	WeeklyTarget   *int                    `json:"weekly_target,omitempty"`
	TimesPerDay    *int                    `json:"times_per_day,omitempty"`
	AllowOverflow  *bool                   `json:"allow_overflow,omitempty"`
	IsArchived     *bool                   `json:"is_archived,omitempty"`
}

// HabitWeek is one row of the week grid.
type HabitWeek struct {
	Habit       Habit                 `json:"habit"`
	Days        [7]schedule.DayStatus `json:"week_status"`
	WeeklyTotal int                   `json:"weekly_total"`
	TotalActual int                   `json:"total_actual"`
	WeeklyRate  int                   `json:"weekly_rate"`
	IsPerfect   bool                  `json:"is_perfect"`
	IsOverflow  bool                  `json:"is_overflow"`
}

// Week is the grid of one ISO week.
type Week struct {
	Year      int         `json:"year"`
	Week      int         `json:"week"`
	WeekDates []string    `json:"week_dates"`
	Today     string      `json:"today"`
	Habits    []HabitWeek `json:"habits"`
}

// Row returns the row of a habit, or nil.
func (w *Week) Row(habitID uint) *HabitWeek {
	for i := range w.Habits {
		if w.Habits[i].Habit.ID == habitID {
			return &w.Habits[i]
		}
	}
	return nil
}

// Day returns the cell of a habit on date, or nil when either is not part
// of the week.
func (w *Week) Day(habitID uint, date string) *schedule.DayStatus {
	row := w.Row(habitID)
	if row == nil {
		return nil
	}
	for i := range row.Days {
		if row.Days[i].Date == date {
			return &row.Days[i]
		}
	}
	return nil
}

// ToggleRequest is one check-in write.
type ToggleRequest struct {
	HabitID uint   `json:"habit_id"`
	Date    string `json:"date"`
	// Count sets the day directly; nil flips it.
	Count         *int   `json:"count,omitempty"`
	EditMode      bool   `json:"edit_mode"`
	ExpectedCount *int   `json:"expected_count,omitempty"`
	Note          string `json:"note,omitempty"`
}

// LogEntry is a stored day count.
type LogEntry struct {
	ID        uint      `json:"id"`
	HabitID   uint      `json:"habit_id"`
	Date      string    `json:"date"`
	Count     int       `json:"count"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToggleResult is the outcome of a write.
type ToggleResult struct {
	HabitID uint               `json:"habit_id"`
	Log     LogEntry           `json:"log"`
	Status  schedule.DayStatus `json:"status"`
}

// TodayItem is one habit that can be checked in today.
type TodayItem struct {
	Habit        Habit              `json:"habit"`
	Status       schedule.DayStatus `json:"status"`
	WeekTotal    int                `json:"week_total"`
	WeekRequired int                `json:"week_required"`
}

// Today is the check-in list of the server's current day.
type Today struct {
	Date      string      `json:"date"`
	Habits    []TodayItem `json:"habits"`
	Completed int         `json:"completed"`
	Total     int         `json:"total"`
}

// Stats summarizes one habit.
type Stats struct {
	HabitID            uint       `json:"habit_id"`
	Days               int        `json:"days"`
	TotalCheckins      int64      `json:"total_checkins"`
	WindowCheckins     int        `json:"window_checkins"`
	CurrentStreak      int        `json:"current_streak"`
	PerfectWeekStreak  int        `json:"perfect_week_streak"`
	OverflowWeekStreak int        `json:"overflow_week_streak"`
	RecentLogs         []LogEntry `json:"recent_logs"`
}
