package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOptions selects where structured log output goes.
type LoggerOptions struct {
	// DebugLogPath receives JSON records at debug level when set.
	DebugLogPath string
	// Console writes human-readable records to stderr. Used in --plain mode;
	// the TUI owns the terminal otherwise.
	Console bool
	// Verbose lowers the console level from info to debug.
	Verbose bool
}

// NewLogger builds a zap logger for the given options. With neither a debug
// log nor console output it returns a no-op logger. The returned close
// function syncs and releases the debug log file.
func NewLogger(opts LoggerOptions) (*zap.Logger, func() error, error) {
	var cores []zapcore.Core
	var file *os.File

	if opts.DebugLogPath != "" {
		f, err := os.OpenFile(opts.DebugLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open debug log: %w", err)
		}
		file = f
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zapcore.DebugLevel))
	}

	if opts.Console {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		level := zapcore.InfoLevel
		if opts.Verbose {
			level = zapcore.DebugLevel
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() error { return nil }, nil
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		// Sync on a terminal stderr returns EINVAL on some platforms.
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}
