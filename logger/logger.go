// Package logger provides the structured logging facade used by the engine,
// worker pool and CLI. It wraps a single shared zerolog logger; the core
// validation stages never log, so everything here sits at the edges.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	def = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Default returns the shared logger.
func Default() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return def
}

// SetDefault replaces the shared logger.
func SetDefault(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	def = l
}

// New returns a logger writing structured JSON to w with timestamps.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the global log level from its string name
// (trace, debug, info, warn, error, fatal, panic, disabled).
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

// Disable turns logging off globally.
func Disable() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// Debug starts a debug event on the shared logger.
func Debug() *zerolog.Event {
	l := Default()
	return l.Debug()
}

// Info starts an info event on the shared logger.
func Info() *zerolog.Event {
	l := Default()
	return l.Info()
}

// Warn starts a warn event on the shared logger.
func Warn() *zerolog.Event {
	l := Default()
	return l.Warn()
}

// Error starts an error event on the shared logger.
func Error() *zerolog.Event {
	l := Default()
	return l.Error()
}
