// Package logger provides structured logging for the Korpus CLI.
// Messages go to stderr through zerolog's console writer; debug
// messages are only emitted when verbose mode is enabled via the
// --verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = newLogger(os.Stderr, zerolog.InfoLevel)
)

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	level := zerolog.InfoLevel
	if v {
		level = zerolog.DebugLevel
	}
	log = log.Level(level)
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return log.GetLevel() <= zerolog.DebugLevel
}

// SetOutput sets the output writer. Defaults to os.Stderr.
// Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(w, log.GetLevel())
}

// Debug logs a message at debug level.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msg(fmt.Sprintf(format, args...))
}

// Info logs a message at info level.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a message at warn level.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs a message at error level.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Msg(fmt.Sprintf(format, args...))
}
