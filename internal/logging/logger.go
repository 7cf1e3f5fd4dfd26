// Package logging writes leveled, timestamped lines to a per-day log file.
// The terminal belongs to the UI, so nothing here ever writes to stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name (case-insensitive) to a Level.
// Unknown names fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

type logger struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	path   string
	closed bool
}

var (
	defaultMu sync.RWMutex
	current   *logger
)

// Initialize opens (or creates) today's log file under dir. Until it is
// called every logging function is a no-op.
func Initialize(dir string, level Level) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("spriteslicer-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defaultMu.Lock()
	prev := current
	current = &logger{w: f, level: level, path: path}
	defaultMu.Unlock()
	if prev != nil {
		prev.close()
	}
	return nil
}

// SetOutput routes log lines to w instead of a file. Tests use it to
// capture output.
func SetOutput(w io.Writer, level Level) {
	defaultMu.Lock()
	prev := current
	current = &logger{w: w, level: level}
	defaultMu.Unlock()
	if prev != nil {
		prev.close()
	}
}

func logf(level Level, format string, args ...any) {
	defaultMu.RLock()
	l := current
	defaultMu.RUnlock()
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || level < l.level {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.w, "[%s] %s: %s\n", ts, level, fmt.Sprintf(format, args...))
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }
func Info(format string, args ...any)  { logf(LevelInfo, format, args...) }
func Warn(format string, args ...any)  { logf(LevelWarn, format, args...) }
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// WithError logs err at error level, prefixed by what was being attempted.
func WithError(err error, doing string) {
	if err != nil {
		logf(LevelError, "%s: %v", doing, err)
	}
}

func (l *logger) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Close flushes and closes the log file and disables logging.
func Close() error {
	defaultMu.Lock()
	l := current
	current = nil
	defaultMu.Unlock()
	if l == nil {
		return nil
	}
	return l.close()
}

// Path returns the active log file, or "" when logging to a writer or
// not initialized.
func Path() string {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if current == nil {
		return ""
	}
	return current.path
}
