package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isadsl/isadsl/dsl"
)

func TestParseArchitectureSkeleton(t *testing.T) {
	src := `
architecture Toy {
	word_size = 32;
	endianness = little;

	register R file width=32 count=16 {
		field LO[15:0];
	}

	format RType width=32 {
		field opcode[31:26] = 0x10;
		field rd[25:21];
		field rs1[20:16];
		field rs2[15:11];
		identification_fields = opcode;
	}

	instruction ADD {
		format RType;
		encoding { opcode = 0x10; }
		operands rd, rs1, rs2;
		syntax "{op} {rd}, {rs1}, {rs2}";
		behavior {
			rd = rs1 + rs2;
		}
	}

	instruction_alias NOP {
		target ADD;
		operands;
		syntax "{op}";
	}
}
`
	f, errs := dsl.Parse(src, "toy.isa")
	require.False(t, errs.HasErrors(), errs.Error())
	require.True(t, f.IsArchitecture)
	require.Equal(t, "Toy", f.ArchName)
	require.Equal(t, "32", f.Props["word_size"])
	require.Equal(t, "little", f.Props["endianness"])
	require.Len(t, f.Blocks, 4)

	reg := f.Blocks[0]
	require.Equal(t, "register", reg.Kind)
	require.Equal(t, "file", reg.Attrs["variant"])
	require.Len(t, reg.Fields, 1)

	fmtBlock := f.Blocks[1]
	require.Equal(t, "format", fmtBlock.Kind)
	require.Len(t, fmtBlock.Fields, 4)
	require.True(t, fmtBlock.Fields[0].HasConst)
	require.Equal(t, []string{"opcode"}, fmtBlock.IdentificationFields)

	instr := f.Blocks[2]
	require.Equal(t, "instruction", instr.Kind)
	require.Equal(t, "RType", instr.FormatName)
	require.Equal(t, "0x10", instr.Encoding["opcode"])
	require.Equal(t, []string{"rd", "rs1", "rs2"}, instr.Operands)
	require.Contains(t, instr.Behavior, "rd")

	alias := f.Blocks[3]
	require.Equal(t, "instruction_alias", alias.Kind)
	require.Equal(t, "ADD", alias.TargetName)
}

func TestParseDistributedOperand(t *testing.T) {
	src := `
instruction LDI {
	format IType;
	encoding { opcode = 0x20; }
	operands rd, imm(imm_hi, imm_lo);
}
`
	f, errs := dsl.Parse(src, "partial.isa")
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, f.Blocks, 1)
	require.Equal(t, []string{"rd", "imm(imm_hi,imm_lo)"}, f.Blocks[0].Operands)
}

func TestCircularIncludeDetected(t *testing.T) {
	fr := fakeFS{
		"a.isa": `#include "b.isa"`,
		"b.isa": `#include "a.isa"`,
	}
	_, errs := dsl.Resolve("a.isa", fr)
	require.True(t, errs.HasErrors())
	found := false
	for _, e := range errs.Errors {
		if _, ok := e.(*dsl.CircularIncludeError); ok {
			found = true
		}
	}
	require.True(t, found)
}

func TestIncludeResolvedOncePerFile(t *testing.T) {
	fr := fakeFS{
		"root.isa": `#include "common.isa"
#include "extra.isa"`,
		"common.isa": `register R scalar width=32;`,
		"extra.isa":  `#include "common.isa"
register Q scalar width=32;`,
	}
	units, errs := dsl.Resolve("root.isa", fr)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, units, 3)
}

type fakeFS map[string]string

func (f fakeFS) ReadFile(path string) (string, error) {
	if src, ok := f[path]; ok {
		return src, nil
	}
	return "", &missingFileError{path}
}

type missingFileError struct{ path string }

func (e *missingFileError) Error() string { return "no such file: " + e.path }
