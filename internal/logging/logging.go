// Package logging wires the process-wide zap logger used for diagnostics.
// Stdout is left to the report renderers; log output goes to the log file and,
// in debug mode, to stderr.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	logFile *os.File
	logger  = zap.NewNop().Sugar()
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "M",
		LevelKey:       "L",
		TimeKey:        "T",
		NameKey:        "N",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// Init (re)builds the logger. An empty logPath with debug off discards output.
func Init(logPath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logger.Sync()
		_ = logFile.Close()
		logFile = nil
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig())

	var cores []zapcore.Core
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(logFile), level))
	}
	if debug {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}

	if len(cores) == 0 {
		logger = zap.NewNop().Sugar()
		return nil
	}
	logger = zap.New(zapcore.NewTee(cores...)).Sugar()
	return nil
}

// Close flushes the logger and closes the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	logger = zap.NewNop().Sugar()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// L returns the current logger.
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func LogEvent(format string, args ...any) {
	L().Infof(format, args...)
}

func LogError(format string, args ...any) {
	L().Errorf(format, args...)
}

// LogRequest records a payload crossing the harness/backend boundary at debug level.
func LogRequest(direction, host, model string, payload any) {
	L().Debug(buildRequestMessage(direction, host, model, payload))
}

func buildRequestMessage(direction, host, model string, payload any) string {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("host=%s", hostValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
