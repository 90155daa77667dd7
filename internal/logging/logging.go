// Package logging configures the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Setup installs a tint handler on stderr as the default logger and returns
// its level so callers can adjust it later. Colour is disabled when stderr is
// not a terminal; timestamps are dropped under systemd, which adds its own.
func Setup(level slog.Level) *slog.LevelVar {
	ll := &slog.LevelVar{}
	ll.Set(level)
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	slog.SetDefault(slog.New(NewHandler(colorable.NewColorable(os.Stderr), ll,
		!isatty.IsTerminal(os.Stderr.Fd()), underSystemd)))
	return ll
}

// NewHandler returns the tint handler used by Setup, writing to w.
func NewHandler(w io.Writer, level slog.Leveler, noColor, dropTime bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if dropTime && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Durations read better rounded.
			if a.Value.Kind() == slog.KindDuration {
				return slog.Duration(a.Key, a.Value.Duration().Round(time.Millisecond))
			}
			return a
		},
	})
}
