// Package logger provides leveled trace logging for keyward.
// Operational messages go through the standard log package; this package
// carries the chatter enabled by --verbose, such as fetch attempts, timer
// scheduling and discarded results.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level selects which messages are printed.
type Level int

// Levels in increasing verbosity.
const (
	LevelWarn Level = iota
	LevelInfo
	LevelDebug
)

// String returns the tag printed in front of messages of this level.
func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var (
	mu     sync.RWMutex
	level            = LevelWarn
	output io.Writer = os.Stderr
	now              = time.Now
)

// SetLevel sets the most verbose level that is printed.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// CurrentLevel returns the configured level.
func CurrentLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetVerbose switches between debug output and warnings only.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelWarn)
	}
}

// IsVerbose returns true if debug messages are printed.
func IsVerbose() bool {
	return CurrentLevel() >= LevelDebug
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a trace message in verbose mode.
func Debug(format string, args ...any) {
	logf(LevelDebug, format, args...)
}

// Info prints an informational message at LevelInfo and above.
func Info(format string, args ...any) {
	logf(LevelInfo, format, args...)
}

// Warn prints a warning. Warnings are printed unless output is discarded.
func Warn(format string, args ...any) {
	logf(LevelWarn, format, args...)
}

// logf writes one line: "15:04:05.000 [LEVEL] message".
func logf(l Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if l > level {
		return
	}
	fmt.Fprintf(output, "%s [%s] %s\n", now().Format("15:04:05.000"), l, fmt.Sprintf(format, args...))
}
