// Package logging initializes the process-wide zerolog logger. All output
// goes to stderr: stdout belongs to the MCP protocol stream and must stay
// clean.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Config controls logger initialization.
type Config struct {
	Format    string // "json", "console", or "" for auto-detect
	Level     string // "debug", "info", "warn", "error"
	Component string // optional component name stamped on every event
}

// Init configures the global logger. Format "auto" (or empty) picks console
// output when stderr is a terminal and JSON otherwise.
func Init(cfg Config) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if useConsole(cfg.Format) {
		writer := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
		logger = zerolog.New(writer)
	} else {
		logger = zerolog.New(os.Stderr)
	}

	ctx := logger.With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	log.Logger = ctx.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

func useConsole(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return true
	case "json":
		return false
	default:
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}
