package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Attribute keys shared by the api and worker services so that a booking can
// be followed from the request that changed it to the notifications it sent.
const (
	KeyJobID      = "job_id"
	KeyEnvelopeID = "envelope_id"
	KeyKind       = "kind"
	KeyUserID     = "user_id"
)

// Config holds logger configuration
type Config struct {
	Level        string // debug, info, warn, error
	Format       string // json, console
	Output       string // stdout, stderr, or file path
	EnableSource bool   // Enable source code location
	TimeFormat   string // Time format for console output

	writer io.Writer
}

// Logger wraps slog.Logger
type Logger struct {
	*slog.Logger
}

// New builds the service logger. Console output goes through tint, anything
// else is JSON.
func New(config *Config) (*Logger, error) {
	writer, err := openOutput(config)
	if err != nil {
		return nil, err
	}

	level := parseLevel(config.Level)

	var handler slog.Handler
	if config.Format == "console" || config.Format == "" {
		timeFormat := config.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}
		handler = tint.NewHandler(writer, &tint.Options{
			Level:      level,
			AddSource:  config.EnableSource,
			TimeFormat: timeFormat,
		})
	} else {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level:     level,
			AddSource: config.EnableSource,
		})
	}

	return &Logger{Logger: slog.New(handler)}, nil
}

// openOutput resolves the configured destination. Any value other than
// stdout or stderr is a file path opened for appending.
func openOutput(config *Config) (io.Writer, error) {
	if config.writer != nil {
		return config.writer, nil
	}

	switch config.Output {
	case "stderr":
		return os.Stderr, nil
	case "stdout", "":
		return os.Stdout, nil
	}

	f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// parseLevel maps the configured level name, defaulting to info
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// JobID, EnvelopeID, Kind and UserID build the shared correlation attributes
func JobID(id string) slog.Attr { return slog.String(KeyJobID, id) }

func EnvelopeID(id string) slog.Attr { return slog.String(KeyEnvelopeID, id) }

func Kind(kind string) slog.Attr { return slog.String(KeyKind, kind) }

func UserID(id string) slog.Attr { return slog.String(KeyUserID, id) }
