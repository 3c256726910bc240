package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/lifeflow/lifeflow/schedule"
)

const (
	DefaultHabitIcon  = "✅"
	DefaultHabitColor = "#3B82F6"
)

// Habit is the persisted habit definition. Scheduling fields are normalized
// through schedule.Habit before every write, so columns that the chosen
// frequency does not own are always zero.
type Habit struct {
	ID             uint                     `gorm:"primaryKey" json:"id"`
	UserID         uint                     `gorm:"index;not null" json:"user_id"`
	Name           string                   `gorm:"size:100;not null" json:"name"`
	Description    string                   `gorm:"type:text" json:"description"`
	Icon           string                   `gorm:"size:50" json:"icon"`
	Color          string                   `gorm:"size:20" json:"color"`
	FrequencyType  schedule.FrequencyType   `gorm:"size:16;not null" json:"frequency_type"`
	CustomSchedule datatypes.JSONSlice[int] `json:"custom_schedule"`
	WeeklyTarget   int                      `gorm:"not null" json:"weekly_target"`
	TimesPerDay    int                      `gorm:"not null" json:"times_per_day"`
	AllowOverflow  bool                     `gorm:"not null" json:"allow_overflow"`
	IsArchived     bool                     `gorm:"index;not null" json:"is_archived"`
	ArchivedAt     *time.Time               `json:"archived_at"`
	SortOrder      int                      `gorm:"not null" json:"sort_order"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// Definition returns the loosely typed scheduling fields of the row.
func (h Habit) Definition() schedule.Definition {
	return schedule.Definition{
		Name:           h.Name,
		FrequencyType:  h.FrequencyType,
		CustomSchedule: []int(h.CustomSchedule),
		WeeklyTarget:   h.WeeklyTarget,
		TimesPerDay:    h.TimesPerDay,
		AllowOverflow:  h.AllowOverflow,
	}
}

// Schedule validates the row and returns its scheduling model.
func (h Habit) Schedule() (schedule.Habit, error) {
	s, err := h.Definition().Build()
	if err != nil {
		return schedule.Habit{}, err
	}
	s.ID = h.ID
	return s, nil
}

// Apply copies a validated scheduling model onto the row, clearing the
// columns of every other frequency.
func (h *Habit) Apply(s schedule.Habit) {
	d := schedule.DefinitionOf(s)
	h.Name = d.Name
	h.FrequencyType = d.FrequencyType
	h.CustomSchedule = nil
	if d.CustomSchedule != nil {
		h.CustomSchedule = datatypes.JSONSlice[int](append([]int(nil), d.CustomSchedule...))
	}
	h.WeeklyTarget = d.WeeklyTarget
	h.TimesPerDay = d.TimesPerDay
	h.AllowOverflow = d.AllowOverflow
}

// HabitLog is the completion count of one habit on one calendar day. A
// missing row and a row with Count 0 mean the same thing.
type HabitLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	HabitID   uint      `gorm:"not null;uniqueIndex:idx_habit_logs_habit_day" json:"habit_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Day       string    `gorm:"size:10;not null;index;uniqueIndex:idx_habit_logs_habit_day" json:"date"`
	Count     int       `gorm:"not null" json:"count"`
	Note      string    `gorm:"size:200" json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
