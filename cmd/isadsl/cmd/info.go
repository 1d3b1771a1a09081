package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isadsl/isadsl/model"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print a summary of an architecture's registers, formats and instructions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		arch, err := loadArchitecture(args[0])
		if err != nil {
			log.Error().Err(err).Msg("load failed")
			return err
		}
		printInfo(cmd, arch)
		return nil
	},
}

func printInfo(cmd *cobra.Command, arch *model.Architecture) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "architecture %s (word_size=%d, endianness=%s)\n\n", arch.Name, arch.WordSize, arch.Endianness)

	fmt.Fprintf(out, "registers (%d):\n", len(arch.Registers))
	for _, r := range arch.Registers {
		fmt.Fprintf(out, "  %-12s width=%-4d count=%d\n", r.Name, r.Width, r.Count)
	}

	fmt.Fprintf(out, "\nformats (%d):\n", len(arch.Formats))
	for _, f := range arch.Formats {
		fmt.Fprintf(out, "  %-12s width=%d\n", f.Name, f.Width)
	}

	fmt.Fprintf(out, "\nbundle formats (%d):\n", len(arch.BundleFormats))
	for _, b := range arch.BundleFormats {
		fmt.Fprintf(out, "  %-12s width=%d slots=%d\n", b.Name, b.Width, len(b.Slots))
	}

	fmt.Fprintf(out, "\ninstructions (%d):\n", len(arch.Instructions))
	for _, in := range arch.Instructions {
		kind := in.FormatName
		if in.BundleFormatName != "" {
			kind = in.BundleFormatName + " (bundle)"
		}
		fmt.Fprintf(out, "  %-12s format=%s\n", in.Name, kind)
	}

	if len(arch.InstructionAliases) > 0 {
		fmt.Fprintf(out, "\ninstruction aliases (%d):\n", len(arch.InstructionAliases))
		for _, al := range arch.InstructionAliases {
			fmt.Fprintf(out, "  %-12s -> %s\n", al.Name, al.TargetName)
		}
	}
}
