// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/linebyline/covgate/internal/application"
)

// Setup installs a text or JSON handler on stderr as the default logger.
// Reports go to stdout, so logs never mix into machine-readable output.
func Setup(cfg application.LogConfig) *slog.Logger {
	return SetupWriter(os.Stderr, cfg)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, cfg application.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
