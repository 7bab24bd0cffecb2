// Package logging provides structured logging with file and console output
// and a bounded in-memory history that the stage server exposes.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogEntry is one recorded log line as served to viewers.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
	Data      string `json:"data,omitempty"`
}

// Logger wraps zerolog with file output and log history
type Logger struct {
	zlog    zerolog.Logger
	file    *os.File
	logPath string

	mu      sync.RWMutex
	history []LogEntry
	maxHist int
	onLog   func(LogEntry)
}

// Config holds logger configuration
type Config struct {
	Dir        string `mapstructure:"dir"`         // default ~/.novaavatar/logs
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	MaxHistory int    `mapstructure:"max_history"` // entries kept in memory
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`

	// Out receives console output; nil means stderr.
	Out io.Writer `mapstructure:"-"`
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Dir:        filepath.Join(home, ".novaavatar", "logs"),
		Level:      "info",
		MaxHistory: 500,
		Console:    true,
		File:       true,
	}
}

// New creates a Logger. With neither file nor console enabled it only keeps
// history.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 500
	}

	l := &Logger{
		history: make([]LogEntry, 0, cfg.MaxHistory),
		maxHist: cfg.MaxHistory,
	}

	var writers []io.Writer
	if cfg.File {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("novaavatar_%s.log", time.Now().Format("2006-01-02"))
		l.logPath = filepath.Join(cfg.Dir, name)

		file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		writers = append(writers, file)
	}
	if cfg.Console {
		out := cfg.Out
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	l.zlog = zerolog.New(w).Level(level).With().
		Timestamp().
		Str("app", "novaavatar").
		Logger()

	l.Debug("logging", "logger initialized", map[string]any{
		"logFile": l.logPath,
		"level":   level.String(),
	})
	return l, nil
}

// Nop returns a Logger that discards output but still records history.
func Nop() *Logger {
	l, _ := New(Config{Level: "debug"})
	return l
}

// SetOnLog sets a callback for real-time log streaming
func (l *Logger) SetOnLog(fn func(LogEntry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLog = fn
}

func (l *Logger) record(entry LogEntry) {
	l.mu.Lock()
	l.history = append(l.history, entry)
	if len(l.history) > l.maxHist {
		l.history = l.history[len(l.history)-l.maxHist:]
	}
	fn := l.onLog
	l.mu.Unlock()

	if fn != nil {
		fn(entry)
	}
}

// History returns up to limit of the most recent entries, oldest first.
func (l *Logger) History(limit int) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.history) {
		limit = len(l.history)
	}
	result := make([]LogEntry, limit)
	copy(result, l.history[len(l.history)-limit:])
	return result
}

// LogPath returns the current log file path, empty when logging to file is off.
func (l *Logger) LogPath() string {
	return l.logPath
}

func (l *Logger) Close() error {
	l.Debug("logging", "logger shutting down", nil)
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func formatData(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, data[k])
	}
	return strings.Join(parts, ", ")
}

func (l *Logger) log(level zerolog.Level, component, msg string, err error, data map[string]any) {
	event := l.zlog.WithLevel(level).Str("component", component)
	if event == nil {
		return
	}
	if err != nil {
		event = event.Err(err)
	}
	for k, v := range data {
		event = event.Interface(k, v)
	}
	event.Msg(msg)

	text := formatData(data)
	if err != nil {
		text = strings.TrimPrefix(text+", error="+err.Error(), ", ")
	}
	l.record(LogEntry{
		Timestamp: time.Now().Format("15:04:05.000"),
		Level:     level.String(),
		Component: component,
		Message:   msg,
		Data:      text,
	})
}

func (l *Logger) Debug(component, msg string, data map[string]any) {
	l.log(zerolog.DebugLevel, component, msg, nil, data)
}

func (l *Logger) Info(component, msg string, data map[string]any) {
	l.log(zerolog.InfoLevel, component, msg, nil, data)
}

func (l *Logger) Warn(component, msg string, data map[string]any) {
	l.log(zerolog.WarnLevel, component, msg, nil, data)
}

func (l *Logger) Error(component, msg string, err error, data map[string]any) {
	l.log(zerolog.ErrorLevel, component, msg, err, data)
}

// Component returns a zerolog.Logger with the component field set. Its
// messages are recorded in the history without their fields.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger().Hook(historyHook{l: l, component: name})
}

type historyHook struct {
	l         *Logger
	component string
}

func (h historyHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	h.l.record(LogEntry{
		Timestamp: time.Now().Format("15:04:05.000"),
		Level:     level.String(),
		Component: h.component,
		Message:   msg,
	})
}
