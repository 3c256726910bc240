package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger discards everything until initLogger runs.
var logger = log.New(io.Discard)

// initLogger writes warnings to a rolling file under the user config dir;
// with debug, everything also goes to stderr.
func initLogger(debug bool) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	logDir := filepath.Join(dir, "lifeflow", "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	var writer io.Writer = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "lifeflowctl.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	level := log.WarnLevel
	if debug {
		writer = io.MultiWriter(os.Stderr, writer)
		level = log.DebugLevel
	}

	logger = log.NewWithOptions(writer, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "lifeflowctl",
	})
	return nil
}
