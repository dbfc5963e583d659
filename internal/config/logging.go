package config

import (
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger creates a dual-output logger: text to stderr for the operator,
// JSON to a size-rotated file for later inspection. Returns the logger and a
// cleanup function closing the file sink.
func SetupLogger(cfg LogConfig) (*slog.Logger, func() error) {
	level := ParseLogLevel(cfg.Level)

	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	if cfg.File == "" {
		return slog.New(stderrHandler), func() error { return nil }
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}

	fileHandler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(slogmulti.Fanout(stderrHandler, fileHandler))

	return logger, rotator.Close
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
