// Package logging provides the process-wide structured logger for PagedDB.
//
// The package wraps [log/slog] and exposes a single global logger that all
// subsystems obtain through GetLogger, so that log level and destination are
// controlled from one place. Per-page events (pool hits, evictions, flushes)
// log at debug level; lifecycle events (create, open) at info.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.Mutex
	logger *slog.Logger
)

// Init configures the global logger. Call once at program startup, before
// goroutines that might call GetLogger are spawned. Later calls replace the
// logger, which is mainly useful in tests.
func Init(level slog.Level, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// GetLogger returns the global logger, initializing a default stderr logger
// at warn level on first use so library consumers stay quiet unless they
// opt in via Init.
func GetLogger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return logger
}

// WithComponent returns a logger tagged with the originating subsystem
// ("file_storage", "bufferpool", ...).
func WithComponent(name string) *slog.Logger {
	return GetLogger().With("component", name)
}
