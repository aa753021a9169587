// Package logging configures the process-wide zerolog logger used for
// internal diagnostics (the CLI's analysis start, store opens and
// migrations, live market-data circuit-breaker state changes). It is deliberately separate from the CLI's user-facing
// report rendering, which stays on plain fmt output.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. When stderr is a terminal
// it uses zerolog's human-readable console writer (matching the
// corpus's mattn/go-isatty gate); otherwise it emits structured JSON,
// suitable for redirection into a log file.
func Init(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
