// Package obslog is this module's leveled logging facade: AsyncSemaphore
// logs its lifecycle events through a Logger instead of the standard
// library's log package, so a host process can dial verbosity up or down
// without recompiling. The other primitives do not log.
//
// It is a narrowed adaptation of the Vanadium vlog package: same
// severity-leveled Print/Printf-over-llog.Log shape, same V(level)-gated
// verbose logging, but scoped down to what this module's primitives
// actually need (no global package-level logger, no flag registration) and
// built directly on the one dependency vlog itself pulled in,
// github.com/cosmosnicolaou/llog, rather than reimplementing leveled
// logging on the standard library's log package.
package obslog

import (
	"fmt"

	"github.com/cosmosnicolaou/llog"
)

// Level is a V-logging verbosity threshold: V(level) reports true once the
// Logger's configured level is at or above level.
type Level llog.Level

// Logger is a leveled logger for one subsystem (a primitive type, a demo
// command, a test harness). The zero value is not usable; construct with
// New.
type Logger struct {
	log *llog.Log
}

// New creates a Logger named name. name appears in the llog severity
// headers for lines this Logger writes, the same way vlog.NewLogger's name
// argument does.
func New(name string) *Logger {
	const stackSkip = 1
	return &Logger{log: llog.NewLogger(name, stackSkip)}
}

// SetVerbosity sets the V-logging threshold: V(level) reports true, and
// VInfof(level, ...) logs, for any level <= the threshold.
func (l *Logger) SetVerbosity(level Level) {
	l.log.SetV(llog.Level(level))
}

// SetAlsoLogToStderr mirrors file-destined log output to stderr as well.
func (l *Logger) SetAlsoLogToStderr(v bool) {
	l.log.SetAlsoLogToStderr(v)
}

// V reports whether level is at or below the Logger's configured
// verbosity, for call sites that want to skip building a log message
// entirely when it would be discarded.
func (l *Logger) V(level Level) bool {
	return l.log.V(llog.Level(level))
}

// Infof logs to the INFO log. Arguments are handled in the manner of
// fmt.Printf; a newline is appended if missing.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log.Printf(llog.InfoLog, format, args...)
}

// VInfof logs to the INFO log only if level is at or below the Logger's
// configured verbosity.
func (l *Logger) VInfof(level Level, format string, args ...interface{}) {
	if l.V(level) {
		l.log.Printf(llog.InfoLog, format, args...)
	}
}

// Errorf logs to the ERROR and INFO logs.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log.Printf(llog.ErrorLog, format, args...)
}

// Flush flushes all pending log I/O.
func (l *Logger) Flush() {
	l.log.Flush()
}

// Default is the Logger AsyncSemaphore uses unless its WithLogger option
// overrides it.
var Default = New("asynclock")

// Event is a minimal structured shape for the handful of lifecycle events
// this module's primitives report, so call sites don't hand-format a string
// at every acquire/release: "sem[take] granted key=%s waited=%s".
type Event struct {
	Primitive string // e.g. "semaphore", "rwlock", "keyedlock"
	Op        string // e.g. "take", "release", "dispose"
	Detail    string // free-form, e.g. a key or a wait duration
}

func (e Event) String() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s[%s]", e.Primitive, e.Op)
	}
	return fmt.Sprintf("%s[%s] %s", e.Primitive, e.Op, e.Detail)
}

// LogEvent writes e to l at the given verbosity level.
func (l *Logger) LogEvent(level Level, e Event) {
	l.VInfof(level, "%s", e)
}
