package store

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/lifeflow/lifeflow/config"
	"github.com/lifeflow/lifeflow/models"
	"github.com/lifeflow/lifeflow/schedule"
)

func newTestStore(t *testing.T) (*HabitStore, *gorm.DB) {
	t.Helper()
	db, err := config.OpenDatabase("sqlite", ":memory:", "silent")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewHabitStore(db), db
}

func createHabit(t *testing.T, s *HabitStore, userID uint, def schedule.Definition) models.Habit {
	t.Helper()
	sched, err := def.Build()
	if err != nil {
		t.Fatalf("build %q: %v", def.Name, err)
	}
	h := models.Habit{UserID: userID, Icon: models.DefaultHabitIcon, Color: models.DefaultHabitColor}
	h.Apply(sched)
	if err := s.Create(context.Background(), &h); err != nil {
		t.Fatalf("create %q: %v", def.Name, err)
	}
	return h
}

func TestHabitStore_CreateListGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := createHabit(t, s, 1, schedule.Definition{Name: "Read", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	b := createHabit(t, s, 1, schedule.Definition{Name: "Gym", FrequencyType: schedule.FrequencyCustom, CustomSchedule: []int{1, 0, 1, 0, 1, 0, 0}, TimesPerDay: 2})
	createHabit(t, s, 2, schedule.Definition{Name: "Other user", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})

	if a.SortOrder != 1 || b.SortOrder != 2 {
		t.Errorf("sort orders = %d, %d, want 1, 2", a.SortOrder, b.SortOrder)
	}

	list, err := s.List(ctx, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Read" || list[1].Name != "Gym" {
		t.Fatalf("List = %+v", list)
	}

	got, err := s.Get(ctx, 1, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	sched, err := got.Schedule()
	if err != nil {
		t.Fatalf("stored row does not validate: %v", err)
	}
	if c, ok := sched.Frequency.(schedule.Custom); !ok || c.Schedule != [7]int{1, 0, 1, 0, 1, 0, 0} {
		t.Errorf("custom schedule did not round trip: %#v", sched.Frequency)
	}

	if _, err := s.Get(ctx, 2, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get for another user: got %v, want ErrNotFound", err)
	}
}

func TestHabitStore_SaveClearsForeignColumns(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	h := createHabit(t, s, 1, schedule.Definition{Name: "Gym", FrequencyType: schedule.FrequencyCustom, CustomSchedule: []int{1, 1, 0, 0, 0, 0, 0}, TimesPerDay: 1})

	sched, err := schedule.Definition{Name: "Gym", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 3}.Build()
	if err != nil {
		t.Fatal(err)
	}
	h.Apply(sched)
	h.IsArchived = true
	if err := s.Save(ctx, &h); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, 1, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FrequencyType != schedule.FrequencyDaily || len(got.CustomSchedule) != 0 || got.TimesPerDay != 3 {
		t.Errorf("saved row = %+v", got)
	}
	if list, _ := s.List(ctx, 1, false); len(list) != 0 {
		t.Errorf("archived habit listed: %+v", list)
	}
	if list, _ := s.List(ctx, 1, true); len(list) != 1 {
		t.Errorf("archived habit missing with includeArchived")
	}

	other := h
	other.UserID = 2
	if err := s.Save(ctx, &other); !errors.Is(err, ErrNotFound) {
		t.Errorf("Save for another user: got %v, want ErrNotFound", err)
	}
}

func TestHabitStore_SetCountUpserts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	h := createHabit(t, s, 1, schedule.Definition{Name: "Read", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 2})

	if n, err := s.Count(ctx, h.ID, "2026-01-05"); err != nil || n != 0 {
		t.Fatalf("Count before write = %d, %v", n, err)
	}
	if _, err := s.SetCount(ctx, 1, h.ID, "2026-01-05", 2, "morning"); err != nil {
		t.Fatal(err)
	}
	row, err := s.SetCount(ctx, 1, h.ID, "2026-01-05", 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if row.Count != 0 || row.Note != "morning" {
		t.Errorf("upserted row = %+v", row)
	}
	if _, err := s.SetCount(ctx, 1, h.ID, "2026-01-05", 0, ""); err != nil {
		t.Errorf("second uncheck: %v", err)
	}

	var rows int64
	s.db.Model(&models.HabitLog{}).Where("habit_id = ?", h.ID).Count(&rows)
	if rows != 1 {
		t.Errorf("rows for (habit, day) = %d, want 1", rows)
	}
}

func TestHabitStore_CountsAndStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := createHabit(t, s, 1, schedule.Definition{Name: "A", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	b := createHabit(t, s, 1, schedule.Definition{Name: "B", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})

	writes := []struct {
		id    uint
		day   string
		count int
	}{
		{a.ID, "2026-01-04", 1}, // previous week
		{a.ID, "2026-01-05", 1},
		{a.ID, "2026-01-07", 3},
		{a.ID, "2026-01-08", 0},
		{b.ID, "2026-01-11", 1},
	}
	for _, w := range writes {
		if _, err := s.SetCount(ctx, 1, w.id, w.day, w.count, ""); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := s.Counts(ctx, 1, []uint{a.ID, b.ID}, "2026-01-05", "2026-01-11")
	if err != nil {
		t.Fatal(err)
	}
	if len(counts[a.ID]) != 2 || counts[a.ID]["2026-01-07"] != 3 {
		t.Errorf("counts[a] = %v", counts[a.ID])
	}
	if counts[b.ID]["2026-01-11"] != 1 {
		t.Errorf("counts[b] = %v", counts[b.ID])
	}

	total, err := s.TotalCheckins(ctx, a.ID)
	if err != nil || total != 5 {
		t.Errorf("TotalCheckins = %d, %v; want 5", total, err)
	}
	recent, err := s.RecentLogs(ctx, a.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Day != "2026-01-07" || recent[1].Day != "2026-01-05" {
		t.Errorf("RecentLogs = %+v", recent)
	}
}

func TestHabitStore_DeleteCascades(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	h := createHabit(t, s, 1, schedule.Definition{Name: "Read", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	keep := createHabit(t, s, 1, schedule.Definition{Name: "Keep", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	for _, day := range []string{"2026-01-05", "2026-01-06"} {
		if _, err := s.SetCount(ctx, 1, h.ID, day, 1, ""); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.SetCount(ctx, 1, keep.ID, "2026-01-05", 1, ""); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, 2, h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete by another user: got %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, 1, h.ID); err != nil {
		t.Fatal(err)
	}
	var left int64
	db.Model(&models.HabitLog{}).Count(&left)
	if left != 1 {
		t.Errorf("logs left = %d, want 1", left)
	}
	if err := s.Delete(ctx, 1, h.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestHabitStore_Reorder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := createHabit(t, s, 1, schedule.Definition{Name: "A", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	b := createHabit(t, s, 1, schedule.Definition{Name: "B", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	c := createHabit(t, s, 1, schedule.Definition{Name: "C", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	foreign := createHabit(t, s, 2, schedule.Definition{Name: "X", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})

	if err := s.Reorder(ctx, 1, []uint{c.ID, a.ID, b.ID}); err != nil {
		t.Fatal(err)
	}
	list, _ := s.List(ctx, 1, false)
	if list[0].ID != c.ID || list[1].ID != a.ID || list[2].ID != b.ID {
		t.Errorf("order after reorder = %d, %d, %d", list[0].ID, list[1].ID, list[2].ID)
	}

	if err := s.Reorder(ctx, 1, []uint{a.ID, foreign.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("reorder with foreign id: got %v, want ErrNotFound", err)
	}
	list, _ = s.List(ctx, 1, false)
	if list[0].ID != c.ID {
		t.Errorf("failed reorder changed order")
	}
}

func TestHabitStore_CompactZeroLogs(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	h := createHabit(t, s, 1, schedule.Definition{Name: "Read", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	for day, n := range map[string]int{"2025-01-01": 0, "2025-01-02": 1, "2025-01-03": 0, "2026-01-05": 0} {
		if _, err := s.SetCount(ctx, 1, h.ID, day, n, ""); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := s.CompactZeroLogs(ctx, "2026-01-01", 100)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	var left int64
	db.Model(&models.HabitLog{}).Count(&left)
	if left != 2 {
		t.Errorf("rows left = %d, want 2", left)
	}
}

func TestHabitStore_CompactZeroLogsSkipsRecheckedRows(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	h := createHabit(t, s, 1, schedule.Definition{Name: "Read", FrequencyType: schedule.FrequencyDaily, TimesPerDay: 1})
	for _, day := range []string{"2025-01-01", "2025-01-02"} {
		if _, err := s.SetCount(ctx, 1, h.ID, day, 0, ""); err != nil {
			t.Fatal(err)
		}
	}

	// An edit-mode check lands between the select and the delete.
	rechecked := false
	err := db.Callback().Delete().Before("gorm:delete").Register("test:recheck", func(tx *gorm.DB) {
		if rechecked {
			return
		}
		rechecked = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Model(&models.HabitLog{}).Where("habit_id = ? AND day = ?", h.ID, "2025-01-01").Update("count", 1).Error; err != nil {
			t.Errorf("recheck: %v", err)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	removed, err := s.CompactZeroLogs(ctx, "2026-01-01", 100)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if n, err := s.Count(ctx, h.ID, "2025-01-01"); err != nil || n != 1 {
		t.Errorf("rechecked day count = %d %v, want 1", n, err)
	}
}
