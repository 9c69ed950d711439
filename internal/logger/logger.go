package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the application logger instance
var Logger zerolog.Logger

// Init initializes the process-wide logger writing to stdout
func Init(level, format string) {
	Logger = New(os.Stdout, level, format)

	// Set the global logger
	log.Logger = Logger
}

// New builds a logger for the given writer. The CLI uses it with stderr so
// log lines never mix with command output.
func New(w io.Writer, level, format string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLogLevel(level))

	if strings.ToLower(format) != "json" {
		// Console format with colors
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).With().
		Timestamp().
		Caller().
		Logger()
}

// parseLogLevel parses string log level to zerolog level
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// GetLogger returns the configured logger instance
func GetLogger() zerolog.Logger {
	return Logger
}
