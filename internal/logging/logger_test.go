package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerNop(t *testing.T) {
	logger, closeFn, err := NewLogger(LoggerOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zap.ErrorLevel) {
		t.Error("expected a no-op logger without outputs")
	}
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestNewLoggerDebugFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	logger, closeFn, err := NewLogger(LoggerOptions{DebugLogPath: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("stage finished", zap.String("file", "talk.wav"), zap.String("stage", "denoise"))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("debug log is not JSON: %v\n%s", err, line)
	}
	if rec["msg"] != "stage finished" || rec["stage"] != "denoise" || rec["level"] != "debug" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewLoggerBadPath(t *testing.T) {
	_, _, err := NewLogger(LoggerOptions{DebugLogPath: filepath.Join(t.TempDir(), "missing", "debug.log")})
	if err == nil {
		t.Error("expected an error for an unwritable debug log")
	}
}
