package cmd

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Resolve, build and validate an architecture description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		arch, err := loadArchitecture(args[0])
		if err != nil {
			log.Error().Err(err).Msg("validation failed")
			return err
		}
		log.Info().
			Str("architecture", arch.Name).
			Int("registers", len(arch.Registers)).
			Int("formats", len(arch.Formats)).
			Int("instructions", len(arch.Instructions)).
			Msg("architecture is valid")
		return nil
	},
}
