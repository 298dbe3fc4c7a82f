// Package logging provides structured logging with categories, rotating file output and
// live subscribers.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field names shared by every entry.
const (
	FieldSite      = "site"
	FieldCategory  = "category"
	FieldRequestID = "request_id"
	FieldDuration  = "duration_ms"
)

// Entry is a log entry as delivered to subscribers.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Options configures a Logger.
type Options struct {
	// Dir enables rotating file output under Dir/<site>.log when set.
	Dir   string
	Level string
	// Rotation limits; zero values use lumberjack's defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Stdout mirrors entries to standard output.
	Stdout bool
}

// Logger is a structured logger for one site process.
type Logger struct {
	*logrus.Logger
	site string

	mu          sync.RWMutex
	subscribers []chan<- Entry
	closers     []io.Closer
}

// Global registry for all loggers
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Logger)
)

// New creates a Logger writing JSON entries to writers and registers it under site.
func New(site string, level logrus.Level, writers ...io.Writer) *Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	base.SetLevel(level)
	switch len(writers) {
	case 0:
		base.SetOutput(io.Discard)
	case 1:
		base.SetOutput(writers[0])
	default:
		base.SetOutput(io.MultiWriter(writers...))
	}

	l := &Logger{Logger: base, site: site}
	base.AddHook(subscriberHook{l})

	registryMu.Lock()
	registry[site] = l
	registryMu.Unlock()

	return l
}

// NewFromOptions builds a Logger from configuration. File output rotates through
// lumberjack.
func NewFromOptions(site string, opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var writers []io.Writer
	var closers []io.Closer
	if opts.Stdout {
		writers = append(writers, os.Stdout)
	}
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(dir, site+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, file)
		closers = append(closers, file)
	}

	l := New(site, level, writers...)
	l.closers = closers
	return l, nil
}

// ParseLevel accepts logrus level names; empty means info.
func ParseLevel(raw string) (logrus.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return logrus.InfoLevel, nil
	}
	return logrus.ParseLevel(raw)
}

// Get returns the logger registered under site.
func Get(site string) (*Logger, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[site]
	return l, ok
}

// AllLoggers returns all registered loggers.
func AllLoggers() []*Logger {
	registryMu.RLock()
	defer registryMu.RUnlock()

	loggers := make([]*Logger, 0, len(registry))
	for _, logger := range registry {
		loggers = append(loggers, logger)
	}
	return loggers
}

// Site returns the name the logger was registered under.
func (l *Logger) Site() string {
	return l.site
}

// Category returns an entry tagged with category.
func (l *Logger) Category(category string) *logrus.Entry {
	return l.WithFields(logrus.Fields{FieldSite: l.site, FieldCategory: category})
}

// Subscribe adds a channel to receive log entries in real-time.
func (l *Logger) Subscribe(ch chan<- Entry) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, ch)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, sub := range l.subscribers {
			if sub == ch {
				l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
				break
			}
		}
	}
}

// Close flushes and closes file outputs and removes the logger from the registry.
func (l *Logger) Close() error {
	registryMu.Lock()
	if registry[l.site] == l {
		delete(registry, l.site)
	}
	registryMu.Unlock()

	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type subscriberHook struct{ l *Logger }

func (subscriberHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h subscriberHook) Fire(e *logrus.Entry) error {
	h.l.mu.RLock()
	subs := make([]chan<- Entry, len(h.l.subscribers))
	copy(subs, h.l.subscribers)
	h.l.mu.RUnlock()
	if len(subs) == 0 {
		return nil
	}

	entry := Entry{
		Timestamp: e.Time.UTC(),
		Level:     strings.ToUpper(e.Level.String()),
		Message:   e.Message,
		Fields:    make(map[string]any, len(e.Data)),
	}
	for k, v := range e.Data {
		switch k {
		case FieldCategory:
			entry.Category, _ = v.(string)
		case FieldRequestID:
			entry.RequestID, _ = v.(string)
		case logrus.ErrorKey:
			if err, ok := v.(error); ok {
				entry.Error = err.Error()
			}
		case FieldSite:
		default:
			entry.Fields[k] = v
		}
	}

	for _, ch := range subs {
		select {
		case ch <- entry:
		default:
			// Skip if channel is full
		}
	}
	return nil
}
