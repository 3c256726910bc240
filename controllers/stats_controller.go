package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lifeflow/lifeflow/config"
	"github.com/lifeflow/lifeflow/schedule"
	"github.com/lifeflow/lifeflow/store"
	"github.com/lifeflow/lifeflow/utils"
)

// StatsController provides the habit section of the dashboard.
type StatsController struct {
	store *store.HabitStore
	clock func() time.Time
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{store: store.NewHabitStore(db), clock: time.Now}
}

// GetStats returns today's and this week's habit progress for the user.
func (s *StatsController) GetStats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	today := schedule.Day(s.clock().In(config.Get().Location()))
	year, week := schedule.ISOWeekOf(today)
	dates, _ := schedule.WeekDates(year, week)

	habits, err := s.store.List(ctx.Request.Context(), userID, false)
	if err != nil {
		utils.Sugar.Errorf("dashboard habits: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load habits")
		return
	}
	ids := make([]uint, 0, len(habits))
	for _, m := range habits {
		ids = append(ids, m.ID)
	}
	counts, err := s.store.Counts(ctx.Request.Context(), userID, ids, schedule.DateKey(dates[0]), schedule.DateKey(dates[6]))
	if err != nil {
		utils.Sugar.Errorf("dashboard habit logs: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load habit logs")
		return
	}

	idx := schedule.WeekdayIndex(today)
	var todayTotal, todayDone, perfect, overflow, rateSum, rated int
	for _, m := range habits {
		h, err := m.Schedule()
		if err != nil {
			continue
		}
		w := schedule.Aggregate(h, dates, counts[m.ID])
		if day := w.Days[idx]; day.Actionable && (day.Target > 0 || h.IsFlexible()) {
			todayTotal++
			if day.Completed {
				todayDone++
			}
		}
		if w.IsPerfect {
			perfect++
		}
		if w.IsOverflow {
			overflow++
		}
		rateSum += w.WeeklyRate
		rated++
	}

	avg := 0
	if rated > 0 {
		avg = (rateSum + rated/2) / rated
	}
	utils.Success(ctx, gin.H{
		"date":                schedule.DateKey(today),
		"year":                year,
		"week":                week,
		"habit_count":         len(habits),
		"today_total":         todayTotal,
		"today_completed":     todayDone,
		"week_average_rate":   avg,
		"week_perfect_count":  perfect,
		"week_overflow_count": overflow,
	})
}
