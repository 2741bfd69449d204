package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level defines the logging level for the application
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format defines the output format for the logger
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// SlogConfig holds all the configuration for the application logger (slog)
type SlogConfig struct {
	Level     Level     // Level is the minimum level of logs to be written
	Format    Format    // Format specifies the output format (e.g., "json" or "text")
	AddSource bool      // AddSource determines whether to include the source code file and line number in the log output
	Writer    io.Writer // Writer is the destination for the logs. Defaults to os.Stdout if nil
}

// NewSlogConfig creates a new slog.Logger based on the provided configuration
func NewSlogConfig(cfg SlogConfig) *slog.Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := slog.HandlerOptions{
		AddSource: cfg.AddSource,
		Level:     toSlogLevel(cfg.Level),
	}

	var handler slog.Handler
	switch Format(strings.ToLower(string(cfg.Format))) {
	case FormatText:
		handler = slog.NewTextHandler(writer, &opts)
	default:
		handler = slog.NewJSONHandler(writer, &opts)
	}

	return slog.New(handler)
}

// toSlogLevel maps a configured level name to slog, falling back to info
func toSlogLevel(l Level) slog.Level {
	switch Level(strings.ToLower(string(l))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
