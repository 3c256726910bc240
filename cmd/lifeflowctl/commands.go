package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lifeflow/lifeflow/client"
	"github.com/lifeflow/lifeflow/schedule"
)

// Context is handed to every command.
type Context struct {
	Server    string
	TokenFile string
	Client    *client.Client
	Out       io.Writer
}

func (c *Context) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

type LoginCmd struct {
	Username string `arg:"" help:"Account name."`
	Password string `help:"Password (prompted when empty)." env:"LIFEFLOW_PASSWORD"`
	Register bool   `help:"Create the account first."`
}

func (c *LoginCmd) Run(ctx *Context) error {
	password := c.Password
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	reqCtx, cancel := ctx.ctx()
	defer cancel()
	anon := client.New(ctx.Server, "")
	var (
		token string
		err   error
	)
	if c.Register {
		token, err = anon.Register(reqCtx, c.Username, password)
	} else {
		token, err = anon.Login(reqCtx, c.Username, password)
	}
	if err != nil {
		return err
	}
	if err := saveSession(ctx.TokenFile, session{Server: ctx.Server, Token: token}); err != nil {
		return err
	}
	logger.Info("logged in", "server", ctx.Server, "user", c.Username)
	fmt.Fprintf(ctx.Out, "Logged in to %s as %s\n", ctx.Server, c.Username)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	if err := ctx.Client.Logout(reqCtx); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	if err := clearSession(ctx.TokenFile); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "Logged out")
	return nil
}

type WeekCmd struct {
	Year int `help:"ISO year (default: current)."`
	Week int `short:"w" help:"ISO week number (default: current)."`
}

func (c *WeekCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	w, err := ctx.Client.Week(reqCtx, c.Year, c.Week)
	if err != nil {
		return err
	}
	fmt.Fprint(ctx.Out, RenderWeek(w))
	return nil
}

type TodayCmd struct{}

func (c *TodayCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	t, err := ctx.Client.Today(reqCtx)
	if err != nil {
		return err
	}
	fmt.Fprint(ctx.Out, RenderToday(t))
	return nil
}

// loadViewFor loads the week containing date into a fresh view. "today"
// resolves against the server's current day.
func loadViewFor(reqCtx context.Context, c *client.Client, date string) (*client.WeekView, string, error) {
	v := client.NewWeekView(c)
	year, week := 0, 0
	if date != "today" {
		d, err := schedule.ParseDate(date)
		if err != nil {
			return nil, "", err
		}
		year, week = schedule.ISOWeekOf(d)
	}
	w, err := v.Load(reqCtx, year, week)
	if err != nil {
		return nil, "", err
	}
	if date == "today" {
		date = w.Today
	}
	return v, date, nil
}

func printResult(out io.Writer, res *client.ToggleResult) {
	fmt.Fprintf(out, "%s  habit %d  %s\n", res.Log.Date, res.HabitID, cellText(res.Status))
}

type ToggleCmd struct {
	HabitID uint   `arg:"" help:"Habit ID."`
	Date    string `arg:"" optional:"" default:"today" help:"Day as YYYY-MM-DD."`
	Edit    bool   `short:"e" help:"Allow changing past days."`
}

func (c *ToggleCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	v, date, err := loadViewFor(reqCtx, ctx.Client, c.Date)
	if err != nil {
		return err
	}
	res, err := v.Toggle(reqCtx, c.HabitID, date, c.Edit)
	if err != nil {
		return editHint(err)
	}
	printResult(ctx.Out, res)
	return nil
}

type SetCmd struct {
	HabitID uint   `arg:"" help:"Habit ID."`
	Count   int    `arg:"" help:"Completions on that day."`
	Date    string `arg:"" optional:"" default:"today" help:"Day as YYYY-MM-DD."`
	Edit    bool   `short:"e" help:"Allow changing past days."`
}

func (c *SetCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	v, date, err := loadViewFor(reqCtx, ctx.Client, c.Date)
	if err != nil {
		return err
	}
	res, err := v.SetCount(reqCtx, c.HabitID, date, c.Count, c.Edit)
	if err != nil {
		return editHint(err)
	}
	printResult(ctx.Out, res)
	return nil
}

func editHint(err error) error {
	if errors.Is(err, schedule.ErrOutsideEditWindow) {
		return fmt.Errorf("%w (pass --edit to change past days)", err)
	}
	if errors.Is(err, client.ErrConflict) {
		return fmt.Errorf("%w, run the command again", err)
	}
	return err
}

type StatsCmd struct {
	HabitID uint `arg:"" help:"Habit ID."`
	Days    int  `short:"d" default:"30" help:"Window in days (1-365)."`
}

func (c *StatsCmd) Validate() error {
	if c.Days < 1 || c.Days > 365 {
		return fmt.Errorf("days must be between 1 and 365")
	}
	return nil
}

func (c *StatsCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	h, err := ctx.Client.Habit(reqCtx, c.HabitID)
	if err != nil {
		return err
	}
	s, err := ctx.Client.Stats(reqCtx, c.HabitID, c.Days)
	if err != nil {
		return err
	}
	fmt.Fprint(ctx.Out, RenderStats(h, s))
	return nil
}

type HabitListCmd struct {
	All bool `short:"a" help:"Include archived habits."`
}

func (c *HabitListCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	habits, err := ctx.Client.Habits(reqCtx, c.All)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Fprintln(ctx.Out, "No habits.")
		return nil
	}
	fmt.Fprint(ctx.Out, RenderHabits(habits))
	return nil
}

// HabitFlags are the definition flags shared by add and edit. Unset flags
// are left out of the request.
type HabitFlags struct {
	Description *string `help:"Free text description."`
	Frequency   string  `short:"f" help:"daily, weekdays, weekends, custom or flexible."`
	Days        []int   `sep:"," help:"Custom schedule: seven per-day counts, Monday first (e.g. 1,0,1,0,1,0,0)."`
	Target      *int    `short:"t" help:"Flexible: completions per week."`
	Times       *int    `short:"n" help:"Completions per scheduled day."`
	Overflow    *bool   `negatable:"" help:"Count completions beyond the target."`
	Icon        *string `help:"Icon shown before the name."`
	Color       *string `help:"Color as #RRGGBB."`
}

func (f HabitFlags) Validate() error {
	switch schedule.FrequencyType(f.Frequency) {
	case "", schedule.FrequencyDaily, schedule.FrequencyWeekdays, schedule.FrequencyWeekends,
		schedule.FrequencyCustom, schedule.FrequencyFlexible:
		return nil
	}
	return fmt.Errorf("unknown frequency %q", f.Frequency)
}

func (f HabitFlags) input() client.HabitInput {
	in := client.HabitInput{
		Description:    f.Description,
		CustomSchedule: f.Days,
		WeeklyTarget:   f.Target,
		TimesPerDay:    f.Times,
		AllowOverflow:  f.Overflow,
		Icon:           f.Icon,
		Color:          f.Color,
	}
	if f.Frequency != "" {
		ft := schedule.FrequencyType(f.Frequency)
		in.FrequencyType = &ft
	}
	if in.FrequencyType == nil && len(f.Days) > 0 {
		ft := schedule.FrequencyCustom
		in.FrequencyType = &ft
	}
	return in
}

type HabitAddCmd struct {
	Name string `arg:"" help:"Habit name."`
	HabitFlags `embed:""`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	in := c.input()
	in.Name = &c.Name
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	h, err := ctx.Client.CreateHabit(reqCtx, in)
	if err != nil {
		return fieldHint(err)
	}
	fmt.Fprintf(ctx.Out, "Added habit %d: %s (%s)\n", h.ID, h.Name, h.FrequencyText)
	return nil
}

type HabitEditCmd struct {
	ID        uint    `arg:"" help:"Habit ID."`
	Name      *string `help:"New name."`
	Archive   bool    `xor:"archive" help:"Hide the habit from the week grid."`
	Unarchive bool    `xor:"archive" help:"Show an archived habit again."`
	HabitFlags `embed:""`
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	in := c.input()
	in.Name = c.Name
	switch {
	case c.Archive:
		in.IsArchived = ptr(true)
	case c.Unarchive:
		in.IsArchived = ptr(false)
	}
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	h, err := ctx.Client.UpdateHabit(reqCtx, c.ID, in)
	if err != nil {
		return fieldHint(err)
	}
	fmt.Fprintf(ctx.Out, "Updated habit %d: %s (%s)\n", h.ID, h.Name, h.FrequencyText)
	return nil
}

type HabitRmCmd struct {
	ID uint `arg:"" help:"Habit ID."`
}

func (c *HabitRmCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	if err := ctx.Client.DeleteHabit(reqCtx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Deleted habit %d\n", c.ID)
	return nil
}

type HabitReorderCmd struct {
	IDs []uint `arg:"" help:"Habit IDs, first to last."`
}

func (c *HabitReorderCmd) Run(ctx *Context) error {
	reqCtx, cancel := ctx.ctx()
	defer cancel()
	if err := ctx.Client.Reorder(reqCtx, c.IDs); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "Order saved")
	return nil
}

// fieldHint lists the rejected fields of a validation failure.
func fieldHint(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return err
	}
	parts := make([]string, 0, len(apiErr.Fields))
	for _, f := range apiErr.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Errorf("%s (%s)", apiErr.Message, strings.Join(parts, "; "))
}

func ptr[T any](v T) *T { return &v }
