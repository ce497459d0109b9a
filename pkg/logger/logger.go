package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelEnv is the environment variable consulted for the initial level.
const LevelEnv = "OPSDECK_LOG_LEVEL"

// Level represents the severity of a log message.
type Level int

// Levels in ascending severity.
const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// ParseLevel converts a level name to its Level, defaulting to INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger writes level-filtered lines through a standard log.Logger per
// level so every line carries the caller's file and line.
type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	fatalLogger *log.Logger
	level       Level
	mu          sync.RWMutex
}

// New creates a logger writing to out.
func New(out io.Writer, level Level) *Logger {
	flags := log.LstdFlags | log.Lshortfile

	return &Logger{
		debugLogger: log.New(out, "[DEBUG] ", flags),
		infoLogger:  log.New(out, "[INFO] ", flags),
		warnLogger:  log.New(out, "[WARN] ", flags),
		errorLogger: log.New(out, "[ERROR] ", flags),
		fatalLogger: log.New(out, "[FATAL] ", flags),
		level:       level,
	}
}

// SetLevel changes the minimum level for subsequent messages.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current minimum level.
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// Debug logs a debug-level message.
func (l *Logger) Debug(v ...any) {
	if l.shouldLog(DEBUG) {
		l.debugLogger.Output(2, fmt.Sprint(v...))
	}
}

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(format string, v ...any) {
	if l.shouldLog(DEBUG) {
		l.debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Info logs an info-level message.
func (l *Logger) Info(v ...any) {
	if l.shouldLog(INFO) {
		l.infoLogger.Output(2, fmt.Sprint(v...))
	}
}

// Infof logs a formatted info-level message.
func (l *Logger) Infof(format string, v ...any) {
	if l.shouldLog(INFO) {
		l.infoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Warn logs a warning-level message.
func (l *Logger) Warn(v ...any) {
	if l.shouldLog(WARN) {
		l.warnLogger.Output(2, fmt.Sprint(v...))
	}
}

// Warnf logs a formatted warning-level message.
func (l *Logger) Warnf(format string, v ...any) {
	if l.shouldLog(WARN) {
		l.warnLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Error logs an error-level message.
func (l *Logger) Error(v ...any) {
	if l.shouldLog(ERROR) {
		l.errorLogger.Output(2, fmt.Sprint(v...))
	}
}

// Errorf logs a formatted error-level message.
func (l *Logger) Errorf(format string, v ...any) {
	if l.shouldLog(ERROR) {
		l.errorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Fatal logs a fatal-level message and exits.
func (l *Logger) Fatal(v ...any) {
	l.fatalLogger.Output(2, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted fatal-level message and exits.
func (l *Logger) Fatalf(format string, v ...any) {
	l.fatalLogger.Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}

var (
	instanceMu sync.RWMutex
	instance   = New(os.Stdout, ParseLevel(os.Getenv(LevelEnv)))
)

// Init routes the global logger to path as well as stdout, rotating the
// file with the default policy (100 MB per file, 5 backups, 28 days,
// compressed).
func Init(path string) error {
	return InitRotating(path, 100, 5, 28, true)
}

// InitRotating routes the global logger to path as well as stdout with an
// explicit rotation policy. Sizes are in megabytes and ages in days.
func InitRotating(path string, maxSize, maxBackups, maxAge int, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   compress,
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = New(io.MultiWriter(os.Stdout, file), instance.GetLevel())
	return nil
}

func global() *Logger {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	return instance
}

// Global convenience functions

// Debug logs a debug-level message using the global logger.
func Debug(v ...any) { global().Debug(v...) }

// Debugf logs a formatted debug-level message using the global logger.
func Debugf(format string, v ...any) { global().Debugf(format, v...) }

// Info logs an info-level message using the global logger.
func Info(v ...any) { global().Info(v...) }

// Infof logs a formatted info-level message using the global logger.
func Infof(format string, v ...any) { global().Infof(format, v...) }

// Warn logs a warning-level message using the global logger.
func Warn(v ...any) { global().Warn(v...) }

// Warnf logs a formatted warning-level message using the global logger.
func Warnf(format string, v ...any) { global().Warnf(format, v...) }

// Error logs an error-level message using the global logger.
func Error(v ...any) { global().Error(v...) }

// Errorf logs a formatted error-level message using the global logger.
func Errorf(format string, v ...any) { global().Errorf(format, v...) }

// Fatal logs a fatal-level message using the global logger and exits.
func Fatal(v ...any) { global().Fatal(v...) }

// Fatalf logs a formatted fatal-level message using the global logger and exits.
func Fatalf(format string, v ...any) { global().Fatalf(format, v...) }

// SetLevel changes the minimum level of the global logger.
func SetLevel(level Level) { global().SetLevel(level) }

// GetLevel returns the minimum level of the global logger.
func GetLevel() Level { return global().GetLevel() }
