// Package log writes leveled, categorized debug lines for layoutkit.
// Nothing is written until Init or InitWriter installs a destination, so
// library code can log freely.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/layoutkit/internal/pubsub"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Category tags the subsystem a line came from.
type Category string

const (
	CatScan     Category = "scan"
	CatSchema   Category = "schema"
	CatRegistry Category = "registry"
	CatCache    Category = "cache"
	CatConfig   Category = "config"
	CatDB       Category = "db"
)

// Entry timestamps use this layout.
const timeLayout = "2006-01-02T15:04:05"

type sink struct {
	mu       sync.Mutex
	out      io.Writer
	closer   io.Closer
	enabled  bool
	minLevel Level
	stream   *pubsub.Broker[string]
	now      func() time.Time
}

var (
	current   *sink
	currentMu sync.RWMutex
)

func install(s *sink) {
	currentMu.Lock()
	prev := current
	current = s
	currentMu.Unlock()
	if prev != nil {
		prev.stream.Close()
	}
}

func active() *sink {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// Init appends debug lines to the file at path, replacing any previous
// destination. The returned func closes the file and stops logging.
func Init(path string) (func(), error) {
	//nolint:gosec // G304: the log path comes from the user's own flags or config
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	s := newSink(f, LevelDebug)
	s.closer = f
	install(s)
	return func() {
		currentMu.Lock()
		if current == s {
			current = nil
		}
		currentMu.Unlock()
		s.stream.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.enabled = false
		_ = s.closer.Close()
	}, nil
}

// InitWriter logs to w at minLevel and above, replacing any previous
// destination.
func InitWriter(w io.Writer, minLevel Level) {
	install(newSink(w, minLevel))
}

func newSink(w io.Writer, minLevel Level) *sink {
	return &sink{
		out:      w,
		enabled:  true,
		minLevel: minLevel,
		stream:   pubsub.NewBroker[string](),
		now:      time.Now,
	}
}

// SetEnabled pauses or resumes output.
func SetEnabled(enabled bool) {
	if s := active(); s != nil {
		s.mu.Lock()
		s.enabled = enabled
		s.mu.Unlock()
	}
}

// SetMinLevel drops lines below level.
func SetMinLevel(level Level) {
	if s := active(); s != nil {
		s.mu.Lock()
		s.minLevel = level
		s.mu.Unlock()
	}
}

func Debug(cat Category, msg string, fields ...any) { write(LevelDebug, cat, msg, fields) }
func Info(cat Category, msg string, fields ...any)  { write(LevelInfo, cat, msg, fields) }
func Warn(cat Category, msg string, fields ...any)  { write(LevelWarn, cat, msg, fields) }
func Error(cat Category, msg string, fields ...any) { write(LevelError, cat, msg, fields) }

// ErrorErr logs at error level with err appended as the "error" field.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	write(LevelError, cat, msg, append(fields, "error", errText(err)))
}

// WarnErr logs at warn level with err appended as the "error" field.
func WarnErr(cat Category, msg string, err error, fields ...any) {
	write(LevelWarn, cat, msg, append(fields, "error", errText(err)))
}

func errText(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// format renders one line:
//
//	2026-01-02T03:04:05 [WARN] [schema] unreadable schema path=a.yaml error=...
func format(ts time.Time, level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	b.WriteString(ts.Format(timeLayout))
	fmt.Fprintf(&b, " [%s] [%s] %s", level, cat, msg)
	for i := 0; i < len(fields); i += 2 {
		if i+1 == len(fields) {
			fmt.Fprintf(&b, " %v=<missing>", fields[i])
			break
		}
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	b.WriteByte('\n')
	return b.String()
}

func write(level Level, cat Category, msg string, fields []any) {
	s := active()
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || level < s.minLevel {
		return
	}

	line := format(s.now(), level, cat, msg, fields)
	_, _ = io.WriteString(s.out, line)
	s.stream.Publish(pubsub.LogEntryEvent, line)
}

// LogEvent carries one formatted line.
type LogEvent = pubsub.Event[string]

// Subscribe streams formatted lines until ctx ends or the destination is
// replaced. It returns nil when logging is off.
func Subscribe(ctx context.Context) <-chan LogEvent {
	s := active()
	if s == nil {
		return nil
	}
	return s.stream.Subscribe(ctx)
}
