// Package logger owns the process-wide structured logger. Components log
// through the package functions; Init swaps in the configured handler once
// the config has been read.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Log is the shared logger. Usable before Init for early startup errors and
// in tests, where it falls back to slog's default.
var Log *slog.Logger

func init() {
	Log = slog.Default()
}

// Init replaces the shared logger with a text handler at the given level,
// writing to stdout and, when path is non-empty, appending to a file too.
func Init(level, path string) error {
	out := io.Writer(os.Stdout)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", path, err)
		}
		out = io.MultiWriter(os.Stdout, f)
	}

	Log = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			// Wall-clock time only; the date is noise on a chat server log.
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	}))
	slog.SetDefault(Log)
	return nil
}

// parseLevel maps a config string onto a slog level, defaulting to info for
// anything unrecognized.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
