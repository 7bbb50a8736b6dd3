// Package logging configures the zerolog logger shared by the fetcher,
// the client, the exporter and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

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

// Setup configures the global zerolog logger. Exports go to files and the
// summary goes to stdout, so logs default to stderr.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name from flags or config.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
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
// Debug: per-page detail
//   - Page progress (fetched so far, page size, from_cache) unless --verbose
//   - Cache operations (hit/miss, key, TTL)
//   - Pacer waits between pages
//   - Individual export files written
//
// Info: session milestones
//   - Fetch start and finish (target, records, requests, reason)
//   - Upstream review totals from the first page
//   - Export finished with tally
//
// Warn: the session ended early but results are kept
//   - Transport failure, API rejection, malformed page
//   - Cancellation by signal
//   - Cache unavailable (request goes upstream)
//
// Error: output was not produced
//   - Export file write failed
//   - Invalid configuration
//
// Context Fields:
//   - component: client, fetcher, exporter, cache, cli
//   - app_id: Steam application id
//   - cursor: pagination cursor sent with the request
//   - status_code: HTTP status code
//   - error_class: network, client, server, rejected, decode
//   - reason: terminal reason of the fetch session
//   - fetched: records collected so far
//   - duration: request or session duration
