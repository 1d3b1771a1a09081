package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/isadsl/isadsl/assemble"
	"github.com/isadsl/isadsl/config"
	"github.com/isadsl/isadsl/disasm"
	"github.com/isadsl/isadsl/docgen"
	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/vm"
)

var (
	genOutputDir        string
	genSkipDocs         bool
	genSkipAssembler    bool
	genSkipSimulator    bool
	genSkipDisassembler bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate docs, assembler, simulator and disassembler artifacts for an architecture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		arch, err := loadArchitecture(args[0])
		if err != nil {
			log.Error().Err(err).Msg("load failed")
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			log.Error().Err(err).Msg("config load failed")
			return err
		}
		outDir := genOutputDir
		if !cmd.Flags().Changed("output") && cfg.Generate.OutputDir != "" {
			outDir = cfg.Generate.OutputDir
		}

		if err := os.MkdirAll(outDir, 0750); err != nil {
			return fmt.Errorf("generate: create output dir: %w", err)
		}

		if !genSkipDocs && cfg.Generate.EmitDocs {
			dir := filepath.Join(outDir, "docs")
			if err := docgen.Generate(arch, dir); err != nil {
				log.Error().Err(err).Msg("docs generation failed")
				return err
			}
			log.Info().Str("dir", dir).Msg("wrote docs")
		}

		if !genSkipAssembler {
			// NewAssembler builds its mnemonic/register/bundle-format
			// indexes; it reports no error and its result is not used here.
			_ = assemble.NewAssembler(arch)

			path, err := writeMnemonicSheet(arch, outDir)
			if err != nil {
				log.Error().Err(err).Msg("assembler artifact generation failed")
				return err
			}
			log.Info().Str("path", path).Msg("wrote assembler mnemonic sheet")
		}

		if !genSkipDisassembler {
			_ = disasm.New(arch)

			path, err := writeFormatDump(arch, outDir)
			if err != nil {
				log.Error().Err(err).Msg("disassembler artifact generation failed")
				return err
			}
			log.Info().Str("path", path).Msg("wrote disassembler format dump")
		}

		if !genSkipSimulator {
			sim := vm.NewSimulator(arch, cfg.Simulate.StepCap)

			path, err := writeRegisterSnapshot(sim, arch, outDir)
			if err != nil {
				log.Error().Err(err).Msg("simulator artifact generation failed")
				return err
			}
			log.Info().Str("path", path).Msg("wrote simulator register snapshot")
		}

		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genOutputDir, "output", "o", "generated", "output directory")
	generateCmd.Flags().BoolVar(&genSkipDocs, "no-docs", false, "skip documentation generation")
	generateCmd.Flags().BoolVar(&genSkipAssembler, "no-assembler", false, "skip assembler mnemonic sheet generation")
	generateCmd.Flags().BoolVar(&genSkipSimulator, "no-simulator", false, "skip simulator register snapshot generation")
	generateCmd.Flags().BoolVar(&genSkipDisassembler, "no-disassembler", false, "skip disassembler format dump generation")
}

// writeMnemonicSheet writes a plain-text cheat sheet of every mnemonic
// (instruction and alias) with its operand list and assembly syntax, the
// reference an assembly-source author reaches for instead of rereading
// the architecture description.
func writeMnemonicSheet(arch *model.Architecture, outDir string) (string, error) {
	dir := filepath.Join(outDir, "assembler")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "mnemonics.txt")

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, in := range arch.Instructions {
		names := make([]string, len(in.Operands))
		for i, op := range in.Operands {
			names[i] = op.Name
		}
		fmt.Fprintf(f, "%-16s operands: %v\n", in.Name, names)
		if in.AsmTemplate != "" {
			fmt.Fprintf(f, "%16s syntax: %s\n", "", in.AsmTemplate)
		}
	}
	for _, al := range arch.InstructionAliases {
		fmt.Fprintf(f, "%-16s alias of %s, operands: %v\n", al.Name, al.TargetName, al.DeclaredOperands)
	}

	return path, nil
}

// writeFormatDump writes each format's field layout (with constants) and
// each bundle format's slot layout, the table a disassembler maintainer
// checks when two instructions decode ambiguously. Identification fields
// are not written.
func writeFormatDump(arch *model.Architecture, outDir string) (string, error) {
	dir := filepath.Join(outDir, "disassembler")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "formats.txt")

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, fd := range arch.Formats {
		fmt.Fprintf(f, "format %s width=%d\n", fd.Name, fd.Width)
		for _, ff := range fd.Fields {
			if ff.HasConst {
				fmt.Fprintf(f, "  %-12s [%d:%d] const=0x%x\n", ff.Name, ff.Range.MSB, ff.Range.LSB, ff.Const)
			} else {
				fmt.Fprintf(f, "  %-12s [%d:%d]\n", ff.Name, ff.Range.MSB, ff.Range.LSB)
			}
		}
	}
	for _, bf := range arch.BundleFormats {
		fmt.Fprintf(f, "bundle_format %s width=%d\n", bf.Name, bf.Width)
		for _, s := range bf.Slots {
			fmt.Fprintf(f, "  slot %-8s [%d:%d]\n", s.Name, s.Range.MSB, s.Range.LSB)
		}
	}

	return path, nil
}

type registerSnapshot struct {
	PCRegister string                   `toml:"pc_register"`
	StepCap    int                      `toml:"step_cap"`
	Registers  map[string]registerEntry `toml:"registers"`
}

type registerEntry struct {
	Kind  string `toml:"kind"`
	Width int    `toml:"width"`
	Count int    `toml:"count,omitempty"`
}

// writeRegisterSnapshot writes the initial register-file shape and PC
// register a simulator front end loads before execution begins, standing
// in for the per-register runtime state the teacher's debugger would
// otherwise print ad hoc.
func writeRegisterSnapshot(sim *vm.Simulator, arch *model.Architecture, outDir string) (string, error) {
	dir := filepath.Join(outDir, "simulator")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "registers.toml")

	snap := registerSnapshot{
		PCRegister: sim.State.PCRegister,
		StepCap:    sim.StepCap,
		Registers:  map[string]registerEntry{},
	}
	for _, r := range arch.Registers {
		snap.Registers[r.Name] = registerEntry{Kind: kindName(r.Kind), Width: r.Width, Count: r.Count}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(snap); err != nil {
		return "", err
	}
	return path, nil
}

func kindName(k model.RegisterKind) string {
	switch k {
	case model.RegisterScalar:
		return "scalar"
	case model.RegisterFile:
		return "file"
	case model.RegisterVector:
		return "vector"
	case model.RegisterVirtual:
		return "virtual"
	case model.RegisterAlias:
		return "alias"
	default:
		return "unknown"
	}
}
