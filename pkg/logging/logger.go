// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Page fetch flow (offset, limit, chunk dates)
//   - Cache operations (hit/miss, key, TTL)
//   - Quota gate decisions
//
// Info: Normal operation events
//   - Extraction start/finish summaries (rows, duration)
//   - Chunk boundaries chosen by the partitioner
//
// Warn: Conditions that don't abort the extraction
//   - Sampled responses (report precision reduced)
//   - Row ceiling reached (result trimmed)
//   - Chunks excluded under the best-effort policy
//   - External upload failures (falling back to inline output)
//
// Error: Conditions that abort the extraction
//   - Classified API errors
//   - Budget exhaustion
//   - Malformed responses
//
// Context Fields:
//   - extraction_id: UUID for one extraction call
//   - counter_id: Metrika counter being queried
//   - chunk: date sub-range (date1..date2)
//   - offset / limit: pagination position
//   - status: HTTP status code
//   - kind: error classification
//   - rows: row counts
//   - duration: elapsed time
