package logger

import (
	"fmt"
	"io"

	"github.com/yuya-takeyama/mvsync/internal/logging"
)

// Logger receives the report and progress of a run
type Logger interface {
	Rename(source, target string)
	Copy(source, target string)
	Error(operation, path string, err error)
	Debug(format string, args ...interface{})
	PhaseStart(phase string, totalItems int)
	PhaseComplete(phase string, processedItems int)
}

// SyncLogger writes report lines to out and diagnostics to a logging.Logger
type SyncLogger struct {
	out    io.Writer
	log    *logging.Logger
	dryRun bool
}

func NewSyncLogger(out io.Writer, log *logging.Logger, dryRun bool) *SyncLogger {
	if log == nil {
		log = logging.Discard()
	}
	return &SyncLogger{
		out:    out,
		log:    log,
		dryRun: dryRun,
	}
}

func (l *SyncLogger) Rename(source, target string) {
	fmt.Fprintf(l.out, "%s%s was renamed to %s\n", l.prefix(), source, target)
}

func (l *SyncLogger) Copy(source, target string) {
	fmt.Fprintf(l.out, "%s%s was copied to %s\n", l.prefix(), source, target)
}

func (l *SyncLogger) Error(operation, path string, err error) {
	l.log.Error("%s failed for %s: %v", operation, path, err)
}

func (l *SyncLogger) Debug(format string, args ...interface{}) {
	l.log.Debug(format, args...)
}

func (l *SyncLogger) PhaseStart(phase string, totalItems int) {
	l.log.Debug("[%s] Starting phase with %d items", phase, totalItems)
}

func (l *SyncLogger) PhaseComplete(phase string, processedItems int) {
	l.log.Debug("[%s] Phase complete. Processed %d items", phase, processedItems)
}

func (l *SyncLogger) prefix() string {
	if l.dryRun {
		return "(dryrun) "
	}
	return ""
}

type NullLogger struct{}

func (l *NullLogger) Rename(source, target string) {}

func (l *NullLogger) Copy(source, target string) {}

func (l *NullLogger) Error(operation, path string, err error) {}

func (l *NullLogger) Debug(format string, args ...interface{}) {}

func (l *NullLogger) PhaseStart(phase string, totalItems int) {}

func (l *NullLogger) PhaseComplete(phase string, processedItems int) {}
