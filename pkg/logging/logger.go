// Package logging sets up zerolog for the library and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel names a minimum severity.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Format selects the log encoding.
type Format string

const (
	// FormatJSON writes one JSON object per event.
	FormatJSON Format = "json"

	// FormatConsole writes human-readable lines.
	FormatConsole Format = "console"

	// FormatAuto picks console on a terminal and JSON otherwise.
	FormatAuto Format = "auto"
)

// Config selects level, encoding and destination of log output.
type Config struct {
	Level  LogLevel
	Format Format

	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// DefaultConfig logs info and above to stderr, console-formatted on a
// terminal.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatAuto,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name.
func ParseLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return l, nil
	case "warning":
		return LevelWarn, nil
	default:
		return "", fmt.Errorf("invalid log level %q", s)
	}
}

// ParseFormat validates a format name. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatConsole, FormatAuto:
		return f, nil
	case "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("invalid log format %q", s)
	}
}

// Setup installs a logger built from cfg as the zerolog global and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var output io.Writer = out
	if useConsole(cfg.Format, out) {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(out),
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return log.Logger
}

func useConsole(format Format, out io.Writer) bool {
	switch format {
	case FormatConsole:
		return true
	case FormatJSON:
		return false
	default:
		return isTerminal(out)
	}
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// parseLevel maps a level name onto zerolog, falling back to info.
func parseLevel(level LogLevel) zerolog.Level {
	if l, err := ParseLevel(string(level)); err == nil {
		if zl, err := zerolog.ParseLevel(string(l)); err == nil {
			return zl
		}
	}
	return zerolog.InfoLevel
}

// NewLogger derives a logger tagged with component from the global one.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// What goes where
//
// debug: every page request (endpoint, page, attempt), cache hits and
// misses, throttle waits.
//
// info: a fetch starting and finishing (fetch_id, delivered), the metrics
// listener coming up or going down.
//
// warn: a dropped connection about to be retried, an upstream 429/503
// pause, a cache failure the fetch carried on past.
//
// error: retries exhausted, the transport or parse error that ended a
// fetch, bad configuration.
//
// Shared fields are component, fetch_id, endpoint, page, attempt,
// status_code and error_class (client, server, network or malformed).
