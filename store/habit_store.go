// Package store persists habits and their day logs through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lifeflow/lifeflow/models"
)

// ErrNotFound is returned when a habit does not exist or belongs to another user.
var ErrNotFound = errors.New("habit not found")

// HabitStore reads and writes habits and habit logs. Every query is scoped
// to the owning user.
type HabitStore struct {
	db *gorm.DB
}

// NewHabitStore creates a HabitStore.
func NewHabitStore(db *gorm.DB) *HabitStore {
	return &HabitStore{db: db}
}

// List returns the user's habits in display order.
func (s *HabitStore) List(ctx context.Context, userID uint, includeArchived bool) ([]models.Habit, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeArchived {
		q = q.Where("is_archived = ?", false)
	}
	var habits []models.Habit
	if err := q.Order("sort_order ASC, id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// Get loads one habit of the user.
func (s *HabitStore) Get(ctx context.Context, userID, id uint) (models.Habit, error) {
	var h models.Habit
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return h, ErrNotFound
	}
	if err != nil {
		return h, fmt.Errorf("get habit %d: %w", id, err)
	}
	return h, nil
}

// Create inserts h at the end of the user's display order.
func (s *HabitStore) Create(ctx context.Context, h *models.Habit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&models.Habit{}).
			Where("user_id = ?", h.UserID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("next sort order: %w", err)
		}
		h.SortOrder = last + 1
		if err := tx.Create(h).Error; err != nil {
			return fmt.Errorf("create habit: %w", err)
		}
		return nil
	})
}

// Save writes every column of an existing habit.
func (s *HabitStore) Save(ctx context.Context, h *models.Habit) error {
	res := s.db.WithContext(ctx).
		Model(&models.Habit{}).
		Where("id = ? AND user_id = ?", h.ID, h.UserID).
		Select("*").Omit("id", "user_id", "created_at").
		Updates(h)
	if res.Error != nil {
		return fmt.Errorf("save habit %d: %w", h.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the habit and all of its logs in one transaction.
func (s *HabitStore) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Habit{})
		if res.Error != nil {
			return fmt.Errorf("delete habit %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("habit_id = ?", id).Delete(&models.HabitLog{}).Error; err != nil {
			return fmt.Errorf("delete logs of habit %d: %w", id, err)
		}
		return nil
	})
}

// Reorder sets sort_order to the position of each id in ids. Every id must
// belong to the user; otherwise nothing is written.
func (s *HabitStore) Reorder(ctx context.Context, userID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Habit{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Count(&owned).Error; err != nil {
			return fmt.Errorf("check habit ownership: %w", err)
		}
		if int(owned) != len(ids) {
			return ErrNotFound
		}
		for i, id := range ids {
			if err := tx.Model(&models.Habit{}).
				Where("id = ? AND user_id = ?", id, userID).
				Update("sort_order", i+1).Error; err != nil {
				return fmt.Errorf("reorder habit %d: %w", id, err)
			}
		}
		return nil
	})
}

// DayCounts maps habit id to a DateKey -> count table.
type DayCounts map[uint]map[string]int

// Counts returns the logged counts of habitIDs for days in [from, to]
// (inclusive, YYYY-MM-DD). Zero rows are omitted.
func (s *HabitStore) Counts(ctx context.Context, userID uint, habitIDs []uint, from, to string) (DayCounts, error) {
	out := make(DayCounts, len(habitIDs))
	for _, id := range habitIDs {
		out[id] = map[string]int{}
	}
	if len(habitIDs) == 0 {
		return out, nil
	}
	var logs []models.HabitLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND habit_id IN ? AND day >= ? AND day <= ? AND count > 0", userID, habitIDs, from, to).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("load habit logs: %w", err)
	}
	for _, l := range logs {
		out[l.HabitID][l.Day] = l.Count
	}
	return out, nil
}

// Count returns the logged count of one habit on one day, 0 when no row exists.
func (s *HabitStore) Count(ctx context.Context, habitID uint, day string) (int, error) {
	var l models.HabitLog
	err := s.db.WithContext(ctx).Where("habit_id = ? AND day = ?", habitID, day).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load habit log: %w", err)
	}
	return l.Count, nil
}

// SetCount upserts the (habit, day) row to count. A zero count keeps the row
// so a later reader sees an explicit uncheck.
func (s *HabitStore) SetCount(ctx context.Context, userID, habitID uint, day string, count int, note string) (models.HabitLog, error) {
	update := []string{"count", "updated_at"}
	if note != "" {
		update = append(update, "note")
	}
	now := time.Now()
	row := models.HabitLog{
		HabitID:   habitID,
		UserID:    userID,
		Day:       day,
		Count:     count,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns(update),
	}).Create(&row).Error; err != nil {
		return row, fmt.Errorf("upsert habit log: %w", err)
	}

	var saved models.HabitLog
	if err := db.Where("habit_id = ? AND day = ?", habitID, day).First(&saved).Error; err != nil {
		return row, fmt.Errorf("reload habit log: %w", err)
	}
	return saved, nil
}

// RecentLogs returns the latest non-zero logs of a habit, newest first.
func (s *HabitStore) RecentLogs(ctx context.Context, habitID uint, limit int) ([]models.HabitLog, error) {
	var logs []models.HabitLog
	if err := s.db.WithContext(ctx).
		Where("habit_id = ? AND count > 0", habitID).
		Order("day DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("recent habit logs: %w", err)
	}
	return logs, nil
}

// TotalCheckins sums every logged count of a habit.
func (s *HabitStore) TotalCheckins(ctx context.Context, habitID uint) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.HabitLog{}).
		Where("habit_id = ?", habitID).
		Select("COALESCE(SUM(count),0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum habit logs: %w", err)
	}
	return total, nil
}

// CompactZeroLogs deletes up to limit zero-count rows dated before day.
func (s *HabitStore) CompactZeroLogs(ctx context.Context, before string, limit int) (int64, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&models.HabitLog{}).
		Where("count = 0 AND day < ?", before).
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("find zero logs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	// Rows re-checked since the select keep their count and are skipped.
	res := s.db.WithContext(ctx).Where("id IN ? AND count = 0", ids).Delete(&models.HabitLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete zero logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
