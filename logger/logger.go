package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration for the logger.
type Config struct {
	Level string
	// File is an additional log destination. An existing file is rotated
	// aside on startup.
	File        string
	Development bool
	// Keep is how many rotated files are kept. Zero keeps five.
	Keep int
}

// New creates a logger writing to stderr and, when configured, a log file.
func New(cfg Config) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoding := "json"
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	}

	outputs := []string{"stderr"}
	if cfg.File != "" {
		if err := Rotate(cfg.File, cfg.Keep, time.Now()); err != nil {
			return nil, err
		}
		outputs = append(outputs, cfg.File)
	}

	config := zap.Config{
		Level:            getLogLevel(cfg.Level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// getLogLevel converts string log level to zap.AtomicLevel
func getLogLevel(level string) zap.AtomicLevel {
	switch strings.ToLower(level) {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// Rotate renames an existing log file to one stamped with now and deletes
// the oldest rotated files beyond keep.
func Rotate(path string, keep int, now time.Time) error {
	if keep <= 0 {
		keep = 5
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, rotatedName(path, now)); err != nil {
			return fmt.Errorf("failed to rotate log %s: %w", path, err)
		}
	}

	old, err := filepath.Glob(rotatedGlob(path))
	if err != nil {
		return err
	}
	// Timestamps sort lexically, oldest first.
	for len(old) > keep {
		if err := os.Remove(old[0]); err != nil {
			return fmt.Errorf("failed to remove old log %s: %w", old[0], err)
		}
		old = old[1:]
	}
	return nil
}

func rotatedName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + now.Format("20060102-150405.000") + ext
}

func rotatedGlob(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-*" + ext
}
