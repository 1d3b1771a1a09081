// Package cmd implements the isadsl driver's command tree, grounded on
// the teacher's cmd/cli layout (root command plus one file per
// subcommand, a package-level Execute entry point).
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/isadsl/isadsl/internal/obs"
)

var (
	logLevel string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "isadsl",
	Short: "ISA-DSL toolchain driver",
	Long:  "isadsl parses, validates, and generates artifacts (assembler, simulator, disassembler, docs) from an ISA-DSL architecture description.",
}

// Execute runs the root command, exiting with status 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(infoCmd)
}

// newLogger builds the CLI's shared logger from the persistent flags.
func newLogger() zerolog.Logger {
	return obs.New(logLevel, verbose)
}
