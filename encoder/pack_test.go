package encoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isadsl/isadsl/dsl"
	"github.com/isadsl/isadsl/encoder"
	"github.com/isadsl/isadsl/model"
)

func buildArch(t *testing.T, src string) *model.Architecture {
	t.Helper()
	f, errs := dsl.Parse(src, "t.isa")
	require.False(t, errs.HasErrors(), errs.Error())
	u, berr := model.Build(&dsl.Unit{Path: "t.isa", File: f})
	require.Nil(t, berr)
	require.True(t, u.IsArch)
	return u.Arch
}

func TestPackSimpleOperands(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format RType width=32 {
		field opcode[31:26] = 0x10;
		field rd[25:21];
		field rs1[20:16];
		field rs2[15:11];
	}
	instruction ADD {
		format RType;
		encoding { opcode = 0x10; }
		operands rd, rs1, rs2;
	}
}
`)
	ix := encoder.NewIndex(arch)
	word, width, err := ix.Pack(&arch.Instructions[0], map[string]uint64{"rd": 1, "rs1": 2, "rs2": 3})
	require.Nil(t, err)
	require.Equal(t, 32, width)
	require.EqualValues(t, (uint64(0x10)<<26)|(1<<21)|(2<<16)|(3<<11), word)
}

func TestPackFieldOverflow(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format RType width=32 {
		field opcode[31:26] = 0x10;
		field rd[25:21];
	}
	instruction X {
		format RType;
		encoding { opcode = 0x10; }
		operands rd;
	}
}
`)
	ix := encoder.NewIndex(arch)
	_, _, err := ix.Pack(&arch.Instructions[0], map[string]uint64{"rd": 0xFF})
	require.NotNil(t, err)
	require.Equal(t, encoder.FieldOverflow, err.Kind)
}

func TestPackDistributedOperand(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format IType width=32 {
		field opcode[31:26] = 0x20;
		field rd[25:21];
		field imm_hi[20:16];
		field imm_lo[15:11];
	}
	instruction LDI {
		format IType;
		encoding { opcode = 0x20; }
		operands rd, imm(imm_lo, imm_hi);
	}
}
`)
	ix := encoder.NewIndex(arch)
	// imm value 0x3FF: lowest 5 bits into imm_lo, next 5 bits into imm_hi.
	word, _, err := ix.Pack(&arch.Instructions[0], map[string]uint64{"rd": 0, "imm": 0x3FF})
	require.Nil(t, err)
	require.EqualValues(t, 0x1F, (word>>11)&0x1F)
	require.EqualValues(t, 0x1F, (word>>16)&0x1F)
}

func TestPackBundle(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format Slot8 width=8 {
		field opcode[7:4] = 0x1;
		field rd[3:0];
	}
	format BFmt width=16 {
	}
	bundle_format BB width=16 {
		slot s0[7:0];
		slot s1[15:8];
	}
	instruction NOPSLOT {
		format Slot8;
		encoding { opcode = 0x1; }
		operands rd;
	}
	instruction BUNDLE {
		format BFmt;
		bundle_format BB;
		encoding {}
		operands;
	}
}
`)
	ix := encoder.NewIndex(arch)
	var bundleInstr *model.Instruction
	for i := range arch.Instructions {
		if arch.Instructions[i].Name == "BUNDLE" {
			bundleInstr = &arch.Instructions[i]
		}
	}
	require.NotNil(t, bundleInstr)
	word, width, err := ix.PackBundle(bundleInstr, []encoder.SubInstruction{
		{Name: "NOPSLOT", Operands: map[string]uint64{"rd": 5}},
		{Name: "NOPSLOT", Operands: map[string]uint64{"rd": 7}},
	})
	require.Nil(t, err)
	require.Equal(t, 16, width)
	require.EqualValues(t, 0x15, word&0xFF)
	require.EqualValues(t, 0x17, (word>>8)&0xFF)
}
