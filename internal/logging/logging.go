package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Logger provides leveled diagnostics on stderr. Report output never goes here,
// so stdout stays usable for results and for the server protocol.
type Logger struct {
	sl    *slog.Logger
	quiet bool
	out   io.Writer
}

// NewLogger creates a logger writing to stderr. verbose enables debug records,
// quiet drops everything below warnings and the summary.
func NewLogger(verbose, quiet bool) *Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelWarn
	case verbose:
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			NoColor:    runtime.GOOS == "windows",
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return &Logger{sl: slog.New(handler), quiet: quiet, out: os.Stdout}
}

// New creates a logger writing plain text records to w, for tests and embedding
func New(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		sl:  slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		out: w,
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return &Logger{
		sl:    slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(99)})),
		quiet: true,
		out:   io.Discard,
	}
}

// With returns a logger that adds attrs to every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{sl: l.sl.With(args...), quiet: l.quiet, out: l.out}
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sl.Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sl.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sl.Error(fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sl.Debug(fmt.Sprintf(format, args...))
}

// SetOutput redirects the summary
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
}

// PrintSummary prints a summary of the run
func (l *Logger) PrintSummary(renamed, copies, failed int, bytesRenamed int64, duration time.Duration) {
	if l.quiet && failed == 0 {
		return
	}

	fmt.Fprintln(l.out)
	fmt.Fprintln(l.out, "=== Summary ===")
	fmt.Fprintf(l.out, "Renamed: %d files (%s)\n", renamed, formatBytes(bytesRenamed))
	fmt.Fprintf(l.out, "Copies: %d files\n", copies)
	if failed > 0 {
		fmt.Fprintf(l.out, "Errors: %d\n", failed)
	}
	fmt.Fprintf(l.out, "Duration: %s\n", duration.Round(time.Millisecond))
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
