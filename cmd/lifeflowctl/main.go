package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lifeflow/lifeflow/client"
)

const defaultServer = "http://localhost:8080"

var CLI struct {
	Version   kong.VersionFlag
	Server    string `help:"LifeFlow server URL (default: the one logged in to, else ${default_server})." env:"LIFEFLOW_SERVER"`
	TokenFile string `help:"Where the login token is kept." type:"path" default:"~/.config/lifeflow/token.json"`
	Debug     bool   `help:"Also log to stderr."`

	Login  LoginCmd  `cmd:"" help:"Log in and store the token."`
	Logout LogoutCmd `cmd:"" help:"Revoke and forget the stored token."`
	Week   WeekCmd   `cmd:"" help:"Show the week grid." default:"1"`
	Today  TodayCmd  `cmd:"" help:"Show today's check-ins."`
	Toggle ToggleCmd `cmd:"" help:"Check or uncheck a habit on a day."`
	Set    SetCmd    `cmd:"" help:"Set the count of a habit on a day."`
	Stats  StatsCmd  `cmd:"" help:"Show streaks of a habit."`
	Habits struct {
		List    HabitListCmd    `cmd:"" help:"List habits." default:"1"`
		Add     HabitAddCmd     `cmd:"" help:"Add a habit."`
		Edit    HabitEditCmd    `cmd:"" help:"Edit a habit."`
		Rm      HabitRmCmd      `cmd:"" help:"Delete a habit and its check-ins."`
		Reorder HabitReorderCmd `cmd:"" help:"Set the display order."`
	} `cmd:"" help:"Manage habits."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lifeflowctl"),
		kong.Description("Weekly habit tracker client"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0", "default_server": defaultServer},
	)

	if err := initLogger(CLI.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sess, err := loadSession(CLI.TokenFile)
	if err != nil {
		logger.Warn("ignoring unreadable token file", "path", CLI.TokenFile, "err", err)
	}
	server := CLI.Server
	if server == "" {
		server = sess.Server
	}
	if server == "" {
		server = defaultServer
	}

	appCtx := &Context{
		Server:    server,
		TokenFile: CLI.TokenFile,
		Client:    client.New(server, sess.Token),
		Out:       os.Stdout,
	}
	if err := ctx.Run(appCtx); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "err", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
