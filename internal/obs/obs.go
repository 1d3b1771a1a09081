// Package obs provides the toolchain's structured logging, grounded on the
// teacher's plain fmt-based diagnostics (vm/trace.go, vm/statistics.go)
// upgraded to zerolog's leveled, structured output for the CLI driver,
// assembler and simulator.
package obs

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a console-rendered logger at the given level ("debug", "info",
// "warn", "error"; anything else defaults to info).
func New(levelName string, verbose bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
