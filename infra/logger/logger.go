package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"matchbook/infra/config"
)

// New returns a JSON logger writing to stdout and, when cfg names a log
// file, to that file with rotation.
func New(cfg *config.Config) *slog.Logger {
	return newWithStdout(cfg, os.Stdout)
}

func newWithStdout(cfg *config.Config, stdout io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Logging.Level)}

	if cfg.Logging.File == "" {
		return slog.New(slog.NewJSONHandler(stdout, opts))
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
		return slog.New(slog.NewJSONHandler(stdout, opts))
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(io.MultiWriter(stdout, fileLogger), opts))
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
