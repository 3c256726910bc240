package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifeflow/lifeflow/config"
	"github.com/lifeflow/lifeflow/schedule"
	"github.com/lifeflow/lifeflow/utils"
)

// ConfigController serves the public settings clients need to render and
// validate habits the same way the server does.
type ConfigController struct {
	clock func() time.Time
}

func NewConfigController() *ConfigController { return &ConfigController{clock: time.Now} }

// GetConfig returns the time zone, the server's today and the habit limits.
func (c *ConfigController) GetConfig(ctx *gin.Context) {
	cfg := config.Get()
	today := schedule.Day(c.clock().In(cfg.Location()))
	year, week := schedule.ISOWeekOf(today)
	utils.Success(ctx, gin.H{
		"timezone":     cfg.Location().String(),
		"today":        schedule.DateKey(today),
		"current_year": year,
		"current_week": week,
		"frequency_types": []schedule.FrequencyType{
			schedule.FrequencyDaily,
			schedule.FrequencyWeekdays,
			schedule.FrequencyWeekends,
			schedule.FrequencyCustom,
			schedule.FrequencyFlexible,
		},
		"limits": gin.H{
			"max_name_length":   schedule.MaxNameLength,
			"max_times_per_day": schedule.MaxTimesPerDay,
			"min_weekly_target": schedule.MinWeeklyTarget,
			"max_weekly_target": schedule.MaxWeeklyTarget,
		},
	})
}
