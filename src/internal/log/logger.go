package log

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var (
	mu          sync.Mutex
	verbose     = false
	disableLogs = false
	output      io.Writer
	logPrefixes = map[int]string{
		levelDebug: "\033[37m[DBG]\033[0m", // White
		levelInfo:  "\033[36m[INF]\033[0m", // Cyan
		levelWarn:  "\033[33m[WRN]\033[0m", // Yellow
		levelError: "\033[31m[ERR]\033[0m", // Red
	}
)

// SetVerbose sets the logging verbosity. If true, debug messages are displayed.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose logging is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// DisableLogs disables all logging.
func DisableLogs() {
	mu.Lock()
	defer mu.Unlock()
	disableLogs = true
}

// SetOutput sends every level to w. A nil writer restores the stdout/stderr split.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debugf logs a debug message if verbose is true.
func Debugf(format string, args ...interface{}) {
	logMessage(levelDebug, "", format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	logMessage(levelInfo, "", format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) {
	logMessage(levelWarn, "", format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	logMessage(levelError, "", format, args...)
}

// Fatalf logs an error message and exits the program.
func Fatalf(format string, args ...interface{}) {
	logMessage(levelError, "", format, args...)
	os.Exit(1)
}

// Logger prefixes all messages with a fixed scope, usually a feed id.
type Logger struct {
	scope string
}

// Scoped returns a Logger that writes "[scope] " before every message.
func Scoped(scope string) *Logger {
	return &Logger{scope: "[" + scope + "] "}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	logMessage(levelDebug, l.scope, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	logMessage(levelInfo, l.scope, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	logMessage(levelWarn, l.scope, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	logMessage(levelError, l.scope, format, args...)
}

// logMessage formats and writes a log message with the specified log level.
func logMessage(level int, scope string, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if disableLogs || (level == levelDebug && !verbose) {
		return
	}
	line := logPrefixes[level] + " " + scope + fmt.Sprintf(format, args...) + "\n"

	switch {
	case output != nil:
		_, _ = io.WriteString(output, line)
	case level == levelError:
		_, _ = os.Stderr.WriteString(line)
	default:
		_, _ = os.Stdout.WriteString(line)
	}
}
