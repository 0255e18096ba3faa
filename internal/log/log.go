// Package log provides structured, leveled logging for every core
// subsystem, gated behind a debug env var so the engine is silent by
// default (SPEC_FULL.md §A "Logging"). Grounded on the teacher's
// internal/log/log.go almost verbatim: go.uber.org/zap for structured
// output, gopkg.in/natefinch/lumberjack.v2 for rotation of the on-disk
// debug log, a package-level Logger() that degrades to zap.NewNop()
// until Init() turns debug logging on.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger      *zap.Logger
	enabled     bool
	initialized bool
	mu          sync.Mutex
)

// Init initializes the logger based on the LOOM_DEBUG env var. Safe to
// call more than once; only the first call takes effect.
func Init() error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}
	initialized = true

	if os.Getenv("LOOM_DEBUG") != "1" {
		logger = zap.NewNop()
		return nil
	}
	enabled = true

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	logDir := filepath.Join(home, ".loom")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	logPath := filepath.Join(logDir, "debug.log")

	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	})

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "T",
		MessageKey:     "M",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		writeSyncer,
		zapcore.DebugLevel,
	)

	logger = zap.New(core, zap.AddCaller())
	logger.Info("debug logging started")
	return nil
}

// IsEnabled reports whether debug logging is turned on.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Logger returns the underlying zap logger, a no-op logger before Init
// runs or when debug logging is off.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Sync flushes any buffered log entries.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// LogTool logs one tool call's terminal outcome with timing, mirroring
// the teacher's LogTool.
func LogTool(name, id string, durationMs int64, success bool) {
	if !IsEnabled() {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	Logger().Info(fmt.Sprintf("[tool] %s id=%s %dms %s", name, id, durationMs, status))
}

// LogTurnEnd logs a turn's terminal classification.
func LogTurnEnd(reason string, turns int, durationMs int64) {
	if !IsEnabled() {
		return
	}
	Logger().Info(fmt.Sprintf("[turn] end reason=%s turns=%d %dms", reason, turns, durationMs))
}
