package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/crave/internal/config"
	"github.com/evanschultz/crave/internal/platform"
)

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	console := newSink(stderr, appName, level, charmLog.TextFormatter)
	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{console},
		consoleSink:    console,
		consoleEnabled: true,
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	path, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	// File output stays logfmt so swipe traces can be grepped after a session.
	logger.sinks = append(logger.sinks, newSink(file, appName, level, charmLog.LogfmtFormatter))
	logger.closeFile = file.Close
	logger.devLog = path
	return logger, nil
}

// newSink builds one timestamped charm logger.
func newSink(w io.Writer, prefix string, level charmLog.Level, formatter charmLog.Formatter) *charmLog.Logger {
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
// The TUI turns it off while it owns the terminal.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil || sink == nil {
		return false
	}
	return sink != l.consoleSink || l.consoleEnabled
}

// emit writes one event to every enabled sink.
func (l *runtimeLogger) emit(level charmLog.Level, msg string, keyvals []any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if l.shouldLogToSink(sink) {
			sink.Log(level, msg, keyvals...)
		}
	}
}

// Debug logs a debug event.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.emit(charmLog.DebugLevel, msg, keyvals)
}

// Info logs an informational event.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.emit(charmLog.InfoLevel, msg, keyvals)
}

// Warn logs a warning event.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.emit(charmLog.WarnLevel, msg, keyvals)
}

// Error logs an error event.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.emit(charmLog.ErrorLevel, msg, keyvals)
}

// devLogFilePath resolves a workspace-local log file for the current run day.
func devLogFilePath(dir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(dir)
	if baseDir == "" {
		baseDir = ".crave/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	name := fmt.Sprintf("%s-%s.log", logFileStem(appName), now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), name), nil
}

// workspaceRootFrom walks up to the nearest directory holding go.mod or .git.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	for dir := start; ; {
		for _, marker := range []string{"go.mod", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// logFileStem normalizes app names into safe file-name segments.
func logFileStem(appName string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem := strings.Trim(replacer.Replace(strings.TrimSpace(appName)), "-")
	if stem == "" {
		return platform.DefaultAppName
	}
	return stem
}
