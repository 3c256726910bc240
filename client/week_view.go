package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lifeflow/lifeflow/schedule"
)

var (
	// ErrStaleView is returned by Load when a newer Load started while the
	// response was in flight; the response is discarded.
	ErrStaleView = errors.New("week view superseded by a newer load")
	// ErrToggleInFlight rejects a write to a (habit, day) that already has
	// a write in flight.
	ErrToggleInFlight = errors.New("a write for this day is already in flight")
	// ErrNoWeek is returned by writes before the first successful Load.
	ErrNoWeek = errors.New("week view has not been loaded")
)

// WeekView holds the last successfully loaded week and serializes the
// writes made from it. A failed load or write keeps the previous
// snapshot; a successful write reloads the whole week unless a newer load
// started while it was in flight.
type WeekView struct {
	client *Client

	mu       sync.Mutex
	gen      uint64
	year     int
	week     int
	snapshot *Week
	inflight map[string]struct{}
}

// NewWeekView creates an empty view over c.
func NewWeekView(c *Client) *WeekView {
	return &WeekView{client: c, inflight: map[string]struct{}{}}
}

// Snapshot returns the last loaded week, or nil.
func (v *WeekView) Snapshot() *Week {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// Load fetches an ISO week (zero values select the current one) and makes
// it the snapshot, unless another Load started in the meantime.
func (v *WeekView) Load(ctx context.Context, year, week int) (*Week, error) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	w, err := v.client.Week(ctx, year, week)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return nil, ErrStaleView
	}
	if err != nil {
		return nil, err
	}
	v.snapshot = w
	v.year, v.week = w.Year, w.Week
	return w, nil
}

// Reload fetches the snapshot's week again.
func (v *WeekView) Reload(ctx context.Context) (*Week, error) {
	v.mu.Lock()
	year, week := v.year, v.week
	v.mu.Unlock()
	return v.Load(ctx, year, week)
}

// Toggle flips a day: a completed day is unchecked to zero, any other day
// is checked to its target.
func (v *WeekView) Toggle(ctx context.Context, habitID uint, date string, editMode bool) (*ToggleResult, error) {
	return v.write(ctx, habitID, date, nil, editMode)
}

// SetCount writes an explicit count for a day.
func (v *WeekView) SetCount(ctx context.Context, habitID uint, date string, count int, editMode bool) (*ToggleResult, error) {
	return v.write(ctx, habitID, date, &count, editMode)
}

func (v *WeekView) write(ctx context.Context, habitID uint, date string, count *int, editMode bool) (*ToggleResult, error) {
	key := fmt.Sprintf("%d:%s", habitID, date)

	v.mu.Lock()
	if v.snapshot == nil {
		v.mu.Unlock()
		return nil, ErrNoWeek
	}
	if _, busy := v.inflight[key]; busy {
		v.mu.Unlock()
		return nil, ErrToggleInFlight
	}
	req, err := v.precheck(habitID, date, count, editMode)
	if err != nil {
		v.mu.Unlock()
		return nil, err
	}
	v.inflight[key] = struct{}{}
	gen := v.gen
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		delete(v.inflight, key)
		v.mu.Unlock()
	}()

	res, err := v.client.Toggle(ctx, req)
	if err != nil {
		return nil, err
	}

	// A newer load owns the snapshot; reloading here would discard it.
	v.mu.Lock()
	superseded := v.gen != gen
	v.mu.Unlock()
	if superseded {
		return res, nil
	}
	if _, err := v.Reload(ctx); err != nil && !errors.Is(err, ErrStaleView) {
		return res, fmt.Errorf("reload week: %w", err)
	}
	return res, nil
}

// precheck applies the edit window and slot rules against the snapshot and
// builds the request. The caller holds v.mu.
func (v *WeekView) precheck(habitID uint, date string, count *int, editMode bool) (ToggleRequest, error) {
	req := ToggleRequest{HabitID: habitID, Date: date, Count: count, EditMode: editMode}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return req, err
	}
	if count != nil && *count < 0 {
		return req, &schedule.ValidationError{Field: "count", Reason: "must not be negative"}
	}
	if today, err := schedule.ParseDate(v.snapshot.Today); err == nil && !schedule.CanEdit(day, today, editMode) {
		return req, schedule.ErrOutsideEditWindow
	}

	cell := v.snapshot.Day(habitID, date)
	if cell == nil {
		// Not in the loaded week; the server decides.
		return req, nil
	}
	next := schedule.NextCount(*cell)
	if count != nil {
		next = *count
	}
	if next > 0 && !cell.Actionable {
		return req, schedule.ErrNotActionable
	}
	if row := v.snapshot.Row(habitID); cell.Target > 0 && next > cell.Target && !row.Habit.AllowOverflow {
		return req, schedule.ErrOverTarget
	}
	expected := cell.Actual
	req.ExpectedCount = &expected
	return req, nil
}
