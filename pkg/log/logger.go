package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

var zapLevels = map[LogLevel]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
	LevelFatal: zapcore.FatalLevel,
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a config string to a LogLevel, falling back to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

type Logger struct {
	mu     sync.RWMutex
	level  LogLevel
	logger *zap.SugaredLogger
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func NewLogger(level LogLevel) *Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)
	return New(level, core)
}

// New builds a Logger on top of an arbitrary zap core. The level filter is
// applied before entries reach the core.
func New(level LogLevel, core zapcore.Core) *Logger {
	// Callers reach zap through Logger.log and one exported wrapper.
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	return &Logger{
		level:  level,
		logger: z.Sugar(),
	}
}

// SetLevel sets the minimum level that will be written.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(LevelFatal, format, args...)
}

func (l *Logger) Sync() error {
	return l.logger.Sync()
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.Level() {
		return
	}
	l.logger.Logf(zapLevels[level], format, args...)
}

// FileLogger writes log entries to a file.
type FileLogger struct {
	*Logger
	file *os.File
}

func NewFileLogger(logFile string, level LogLevel) (*FileLogger, error) {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(file),
		zapcore.DebugLevel,
	)

	return &FileLogger{
		Logger: New(level, core),
		file:   file,
	}, nil
}

func (l *FileLogger) Close() error {
	if l.file == nil {
		return nil
	}
	_ = l.Logger.Sync()
	return l.file.Close()
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitLogger initializes the global logger with a stdout sink.
func InitLogger(level LogLevel) {
	SetLogger(NewLogger(level))
}

// SetLogger replaces the global logger.
func SetLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

func GetLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(LevelInfo)
	}
	return globalLogger
}

// Convenience functions
func Debug(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

func Fatal(format string, args ...interface{}) {
	GetLogger().Fatal(format, args...)
}
