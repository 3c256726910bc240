package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lifeflow/lifeflow/config"
	"github.com/lifeflow/lifeflow/middleware"
	"github.com/lifeflow/lifeflow/models"
	"github.com/lifeflow/lifeflow/schedule"
	"github.com/lifeflow/lifeflow/store"
	"github.com/lifeflow/lifeflow/utils"
)

const (
	weekCachePrefix = "cache:habits:week:"
	weekGenPrefix   = "cache:gen:habits:week:"
	maxStatsDays    = 365
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// HabitController serves the habit definitions, the weekly grid and the
// check-in endpoints.
type HabitController struct {
	store *store.HabitStore
	locks *utils.KeyedLock
	clock func() time.Time
}

// NewHabitController creates a HabitController.
func NewHabitController(db *gorm.DB) *HabitController {
	return &HabitController{
		store: store.NewHabitStore(db),
		locks: utils.NewKeyedLock(),
		clock: time.Now,
	}
}

// today is the current calendar day in the configured time zone.
func (h *HabitController) today() time.Time {
	return schedule.Day(h.clock().In(config.Get().Location()))
}

// habitView is a habit as returned to clients.
type habitView struct {
	models.Habit
	WeeklyTotal   int    `json:"weekly_total"`
	FrequencyText string `json:"frequency_text"`
}

func viewOf(m models.Habit, s schedule.Habit) habitView {
	return habitView{Habit: m, WeeklyTotal: s.WeeklyTotal(), FrequencyText: schedule.FrequencyText(s)}
}

// habitWeek is one row of the weekly grid.
type habitWeek struct {
	Habit habitView `json:"habit"`
	schedule.Week
}

type weekResponse struct {
	Year      int         `json:"year"`
	Week      int         `json:"week"`
	WeekDates []string    `json:"week_dates"`
	Today     string      `json:"today"`
	Habits    []habitWeek `json:"habits"`
}

// Week returns the grid of active habits for an ISO week, the current one
// unless year and week are given.
func (h *HabitController) Week(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	today := h.today()
	year, week := schedule.ISOWeekOf(today)
	var err error
	if v := strings.TrimSpace(ctx.Query("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "invalid year")
			return
		}
	}
	if v := strings.TrimSpace(ctx.Query("week")); v != "" {
		if week, err = strconv.Atoi(v); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "invalid week")
			return
		}
	}
	dates, err := schedule.WeekDates(year, week)
	if err != nil {
		utils.ValidationFailed(ctx, 40030, err)
		return
	}

	cacheKey := h.weekCacheKey(ctx.Request.Context(), userID, year, week, today)
	if b, ok := utils.CacheGetBytes(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	habits, err := h.store.List(ctx.Request.Context(), userID, false)
	if err != nil {
		h.storeFailed(ctx, err, 50030, "failed to load habits")
		return
	}
	ids := make([]uint, 0, len(habits))
	for _, m := range habits {
		ids = append(ids, m.ID)
	}
	counts, err := h.store.Counts(ctx.Request.Context(), userID, ids, schedule.DateKey(dates[0]), schedule.DateKey(dates[6]))
	if err != nil {
		h.storeFailed(ctx, err, 50031, "failed to load habit logs")
		return
	}

	resp := weekResponse{
		Year:      year,
		Week:      week,
		WeekDates: make([]string, 0, len(dates)),
		Today:     schedule.DateKey(today),
		Habits:    make([]habitWeek, 0, len(habits)),
	}
	for _, d := range dates {
		resp.WeekDates = append(resp.WeekDates, schedule.DateKey(d))
	}
	for _, m := range habits {
		s, err := m.Schedule()
		if err != nil {
			utils.Sugar.Warnf("skip habit %d with invalid definition: %v", m.ID, err)
			continue
		}
		resp.Habits = append(resp.Habits, habitWeek{
			Habit: viewOf(m, s),
			Week:  schedule.Aggregate(s, dates, counts[m.ID]),
		})
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: resp}
	if b, err := json.Marshal(wrapper); err == nil {
		ttl := time.Duration(config.Get().WeekCacheTTLSec) * time.Second
		utils.CacheSetBytes(ctx.Request.Context(), cacheKey, b, ttl)
	}
	utils.Success(ctx, resp)
}

type toggleRequest struct {
	HabitID uint   `json:"habit_id" binding:"required"`
	Date    string `json:"date" binding:"required"`
	// Count sets the day directly; without it the check state flips.
	Count         *int   `json:"count"`
	EditMode      bool   `json:"edit_mode"`
	ExpectedCount *int   `json:"expected_count"`
	Note          string `json:"note"`
}

// Toggle checks, unchecks or sets the count of one habit on one day.
func (h *HabitController) Toggle(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req toggleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid request payload")
		return
	}
	day, err := schedule.ParseDate(req.Date)
	if err != nil {
		utils.ValidationFailed(ctx, 40032, err)
		return
	}
	if req.Count != nil && *req.Count < 0 {
		utils.ValidationFailed(ctx, 40032, &schedule.ValidationError{Field: "count", Reason: "must not be negative"})
		return
	}
	today := h.today()
	if !schedule.CanEdit(day, today, req.EditMode) {
		utils.Error(ctx, http.StatusForbidden, 40340, "only today can be changed outside edit mode")
		return
	}

	m, err := h.store.Get(ctx.Request.Context(), userID, req.HabitID)
	if err != nil {
		h.storeFailed(ctx, err, 50032, "failed to load habit")
		return
	}
	s, err := m.Schedule()
	if err != nil {
		utils.Sugar.Errorf("habit %d has an invalid definition: %v", m.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50033, "habit definition is invalid")
		return
	}

	key := schedule.DateKey(day)
	unlock := h.locks.Lock(fmt.Sprintf("%d:%s", m.ID, key))
	defer unlock()

	current, err := h.store.Count(ctx.Request.Context(), m.ID, key)
	if err != nil {
		h.storeFailed(ctx, err, 50034, "failed to load habit log")
		return
	}
	if req.ExpectedCount != nil && *req.ExpectedCount != current {
		utils.Respond(ctx, http.StatusConflict, 40940, "day was changed by another request", gin.H{
			"status": schedule.DayStatusFor(s, day, current),
		})
		return
	}

	next := schedule.NextCount(schedule.DayStatusFor(s, day, current))
	if req.Count != nil {
		next = *req.Count
	}
	if err := schedule.CheckWrite(s, day, today, req.EditMode, next); err != nil {
		switch {
		case errors.Is(err, schedule.ErrOutsideEditWindow):
			utils.Error(ctx, http.StatusForbidden, 40340, "only today can be changed outside edit mode")
		case errors.Is(err, schedule.ErrNotActionable):
			utils.Error(ctx, http.StatusUnprocessableEntity, 42240, err.Error())
		case errors.Is(err, schedule.ErrOverTarget):
			utils.Error(ctx, http.StatusUnprocessableEntity, 42241, err.Error())
		default:
			if !utils.ValidationFailed(ctx, 40032, err) {
				utils.Error(ctx, http.StatusBadRequest, 40032, err.Error())
			}
		}
		return
	}

	saved, err := h.store.SetCount(ctx.Request.Context(), userID, m.ID, key, next, utils.SanitizeText(req.Note))
	if err != nil {
		h.storeFailed(ctx, err, 50035, "failed to save habit log")
		return
	}
	h.invalidate(ctx, userID)

	utils.Success(ctx, gin.H{
		"habit_id": m.ID,
		"log":      saved,
		"status":   schedule.DayStatusFor(s, day, saved.Count),
	})
}

// habitPayload carries create and partial-update fields; nil means unset.
type habitPayload struct {
	Name           *string                 `json:"name"`
	Description    *string                 `json:"description"`
	Icon           *string                 `json:"icon"`
	Color          *string                 `json:"color"`
	FrequencyType  *schedule.FrequencyType `json:"frequency_type"`
	CustomSchedule *[]int                  `json:"custom_schedule"`
	WeeklyTarget   *int                    `json:"weekly_target"`
	TimesPerDay    *int                    `json:"times_per_day"`
	AllowOverflow  *bool                   `json:"allow_overflow"`
	IsArchived     *bool                   `json:"is_archived"`
}

// applyTo merges the payload into m and validates the result. Fields the
// resulting frequency does not own are cleared.
func (p habitPayload) applyTo(m *models.Habit, now time.Time) (schedule.Habit, error) {
	if p.Name != nil {
		m.Name = utils.SanitizeText(*p.Name)
	}
	if p.Description != nil {
		m.Description = utils.SanitizeText(*p.Description)
	}
	if p.Icon != nil {
		m.Icon = utils.SanitizeText(*p.Icon)
	}
	if p.Color != nil {
		m.Color = strings.TrimSpace(*p.Color)
	}
	if p.FrequencyType != nil {
		m.FrequencyType = *p.FrequencyType
	}
	if p.CustomSchedule != nil {
		m.CustomSchedule = *p.CustomSchedule
	}
	if p.WeeklyTarget != nil {
		m.WeeklyTarget = *p.WeeklyTarget
	}
	if p.TimesPerDay != nil {
		m.TimesPerDay = *p.TimesPerDay
	}
	if p.AllowOverflow != nil {
		m.AllowOverflow = *p.AllowOverflow
	}
	if p.IsArchived != nil && *p.IsArchived != m.IsArchived {
		m.IsArchived = *p.IsArchived
		m.ArchivedAt = nil
		if m.IsArchived {
			m.ArchivedAt = &now
		}
	}

	var errs []error
	s, err := m.Definition().Build()
	if err != nil {
		errs = append(errs, err)
	}
	if m.Icon == "" {
		m.Icon = models.DefaultHabitIcon
	}
	if m.Color == "" {
		m.Color = models.DefaultHabitColor
	}
	if !colorPattern.MatchString(m.Color) {
		errs = append(errs, &schedule.ValidationError{Field: "color", Reason: "must be a #RRGGBB hex color"})
	}
	if len(errs) > 0 {
		return schedule.Habit{}, errors.Join(errs...)
	}
	m.Apply(s)
	s.ID = m.ID
	return s, nil
}

// Create adds a habit at the end of the user's list.
func (h *HabitController) Create(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req habitPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	m := models.Habit{
		UserID:        userID,
		FrequencyType: schedule.FrequencyDaily,
		TimesPerDay:   1,
	}
	s, err := req.applyTo(&m, h.clock())
	if err != nil {
		utils.ValidationFailed(ctx, 40011, err)
		return
	}
	if err := h.store.Create(ctx.Request.Context(), &m); err != nil {
		h.storeFailed(ctx, err, 50010, "failed to create habit")
		return
	}
	s.ID = m.ID
	h.invalidate(ctx, userID)
	utils.Created(ctx, viewOf(m, s))
}

// Update changes only the fields present in the request body.
func (h *HabitController) Update(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}

	var req habitPayload
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
		return
	}
	m, err := h.store.Get(ctx.Request.Context(), userID, id)
	if err != nil {
		h.storeFailed(ctx, err, 50011, "failed to load habit")
		return
	}
	s, err := req.applyTo(&m, h.clock())
	if err != nil {
		utils.ValidationFailed(ctx, 40013, err)
		return
	}
	if err := h.store.Save(ctx.Request.Context(), &m); err != nil {
		h.storeFailed(ctx, err, 50012, "failed to update habit")
		return
	}
	h.invalidate(ctx, userID)
	utils.Success(ctx, viewOf(m, s))
}

// Delete removes a habit together with its logs.
func (h *HabitController) Delete(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx.Request.Context(), userID, id); err != nil {
		h.storeFailed(ctx, err, 50013, "failed to delete habit")
		return
	}
	h.invalidate(ctx, userID)
	utils.Success(ctx, gin.H{"id": id})
}

// List returns the user's habits in display order.
func (h *HabitController) List(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	includeArchived, _ := strconv.ParseBool(ctx.DefaultQuery("include_archived", "false"))
	habits, err := h.store.List(ctx.Request.Context(), userID, includeArchived)
	if err != nil {
		h.storeFailed(ctx, err, 50014, "failed to list habits")
		return
	}
	items := make([]habitView, 0, len(habits))
	for _, m := range habits {
		s, err := m.Schedule()
		if err != nil {
			utils.Sugar.Warnf("skip habit %d with invalid definition: %v", m.ID, err)
			continue
		}
		items = append(items, viewOf(m, s))
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Get returns one habit.
func (h *HabitController) Get(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	m, err := h.store.Get(ctx.Request.Context(), userID, id)
	if err != nil {
		h.storeFailed(ctx, err, 50015, "failed to load habit")
		return
	}
	s, err := m.Schedule()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "habit definition is invalid")
		return
	}
	utils.Success(ctx, viewOf(m, s))
}

// Reorder stores a new display order. habit_ids lists habits first to last.
func (h *HabitController) Reorder(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		HabitIDs []uint `json:"habit_ids" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid request payload")
		return
	}
	ids := utils.Unique(req.HabitIDs)
	if err := h.store.Reorder(ctx.Request.Context(), userID, ids); err != nil {
		h.storeFailed(ctx, err, 50016, "failed to reorder habits")
		return
	}
	h.invalidate(ctx, userID)
	utils.Success(ctx, gin.H{"habit_ids": ids})
}

type todayItem struct {
	Habit  habitView          `json:"habit"`
	Status schedule.DayStatus `json:"status"`
	// Week progress matters for flexible habits, which have no day target.
	WeekTotal    int `json:"week_total"`
	WeekRequired int `json:"week_required"`
}

// Today lists the habits that can be checked in today with their state.
func (h *HabitController) Today(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	today := h.today()
	year, week := schedule.ISOWeekOf(today)
	dates, _ := schedule.WeekDates(year, week)

	habits, err := h.store.List(ctx.Request.Context(), userID, false)
	if err != nil {
		h.storeFailed(ctx, err, 50017, "failed to load habits")
		return
	}
	ids := make([]uint, 0, len(habits))
	for _, m := range habits {
		ids = append(ids, m.ID)
	}
	counts, err := h.store.Counts(ctx.Request.Context(), userID, ids, schedule.DateKey(dates[0]), schedule.DateKey(dates[6]))
	if err != nil {
		h.storeFailed(ctx, err, 50018, "failed to load habit logs")
		return
	}

	idx := schedule.WeekdayIndex(today)
	items := make([]todayItem, 0, len(habits))
	done := 0
	for _, m := range habits {
		s, err := m.Schedule()
		if err != nil {
			continue
		}
		w := schedule.Aggregate(s, dates, counts[m.ID])
		status := w.Days[idx]
		if !status.Actionable {
			continue
		}
		if status.Completed {
			done++
		}
		items = append(items, todayItem{
			Habit:        viewOf(m, s),
			Status:       status,
			WeekTotal:    w.Total,
			WeekRequired: w.Required,
		})
	}
	utils.Success(ctx, gin.H{
		"date":      schedule.DateKey(today),
		"habits":    items,
		"completed": done,
		"total":     len(items),
	})
}

// Stats returns streaks and recent check-ins of one habit over the last
// `days` days (default 30).
func (h *HabitController) Stats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := habitIDParam(ctx)
	if !ok {
		return
	}
	days, err := strconv.Atoi(ctx.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > maxStatsDays {
		utils.Error(ctx, http.StatusBadRequest, 40033, fmt.Sprintf("days must be between 1 and %d", maxStatsDays))
		return
	}

	m, err := h.store.Get(ctx.Request.Context(), userID, id)
	if err != nil {
		h.storeFailed(ctx, err, 50019, "failed to load habit")
		return
	}
	s, err := m.Schedule()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "habit definition is invalid")
		return
	}

	today := h.today()
	weeks := (days + 6) / 7
	from := schedule.StartOfWeek(today).AddDate(0, 0, -7*weeks)
	counts, err := h.store.Counts(ctx.Request.Context(), userID, []uint{id}, schedule.DateKey(from), schedule.DateKey(today))
	if err != nil {
		h.storeFailed(ctx, err, 50020, "failed to load habit logs")
		return
	}
	logs := counts[id]

	windowStart := schedule.DateKey(today.AddDate(0, 0, -(days - 1)))
	windowCheckins := 0
	for day, n := range logs {
		if day >= windowStart {
			windowCheckins += n
		}
	}

	total, err := h.store.TotalCheckins(ctx.Request.Context(), id)
	if err != nil {
		h.storeFailed(ctx, err, 50021, "failed to sum check-ins")
		return
	}
	recent, err := h.store.RecentLogs(ctx.Request.Context(), id, min(days, 30))
	if err != nil {
		h.storeFailed(ctx, err, 50022, "failed to load recent check-ins")
		return
	}
	perfect, overflow := schedule.WeekStreaks(s, today, logs, weeks)

	utils.Success(ctx, gin.H{
		"habit_id":             id,
		"days":                 days,
		"total_checkins":       total,
		"window_checkins":      windowCheckins,
		"current_streak":       schedule.CurrentStreak(s, today, logs, days),
		"perfect_week_streak":  perfect,
		"overflow_week_streak": overflow,
		"recent_logs":          recent,
	})
}

// weekCacheKey must be computed before the week is read from the database.
// "today" is part of the payload, so it is part of the key.
func (h *HabitController) weekCacheKey(ctx context.Context, userID uint, year, week int, today time.Time) string {
	gen := utils.CacheGeneration(ctx, fmt.Sprintf("%s%d", weekGenPrefix, userID))
	return fmt.Sprintf("%s%d:g%d:%d-%d:%s", weekCachePrefix, userID, gen, year, week, schedule.DateKey(today))
}

// invalidate bumps the generation first so a week read racing this write
// caches under a key that is never read again.
func (h *HabitController) invalidate(ctx *gin.Context, userID uint) {
	utils.BumpCacheGeneration(ctx.Request.Context(), fmt.Sprintf("%s%d", weekGenPrefix, userID))
	utils.InvalidateByPrefix(ctx.Request.Context(), fmt.Sprintf("%s%d:", weekCachePrefix, userID))
}

// storeFailed maps store errors: a missing habit is 404, anything else is
// logged and answered with failCode.
func (h *HabitController) storeFailed(ctx *gin.Context, err error, failCode int, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40440, "habit not found")
		return
	}
	utils.Sugar.Errorf("%s: %v", msg, err)
	utils.Error(ctx, http.StatusInternalServerError, failCode, msg)
}

func habitIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40015, "invalid habit id")
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	return middleware.UserID(ctx)
}
