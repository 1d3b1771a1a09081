package disasm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isadsl/isadsl/disasm"
	"github.com/isadsl/isadsl/dsl"
	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/vm"
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

type byteMem []byte

func (m byteMem) ReadByte(addr uint64) byte {
	if addr >= uint64(len(m)) {
		return 0
	}
	return m[addr]
}

const toySrc = `
architecture Toy {
	word_size = 16;
	endianness = little;

	format RType width=16 {
		field opcode[15:12] = 0x1;
		field rd[11:8];
		field rs1[7:4];
		field rs2[3:0];
	}
	instruction ADD {
		format RType;
		encoding { opcode = 0x1; }
		operands rd, rs1, rs2;
		syntax "ADD R{rd}, R{rs1}, R{rs2}";
	}

	format IType width=16 {
		field opcode[15:12] = 0x2;
		field rd[11:8];
		field imm[7:0];
	}
	instruction LDI {
		format IType;
		encoding { opcode = 0x2; }
		operands rd, imm;
	}

	format BFmt width=8 {
		field tag[7:0];
	}
	bundle_format BB width=40 {
		slot s0[23:8];
		slot s1[39:24];
	}
	instruction BUNDLE {
		format BFmt;
		bundle_format BB;
		encoding { tag = 0xFF; }
		operands;
	}
}
`

func TestDisassembleUsesTemplate(t *testing.T) {
	arch := buildArch(t, toySrc)
	d := disasm.New(arch)

	word := uint16(0x1000 | (3 << 8) | (1 << 4) | 2)
	mem := byteMem{byte(word), byte(word >> 8)}

	in, derr := d.Disassemble(mem, 0, false)
	require.Nil(t, derr)
	require.Equal(t, "ADD R3, R1, R2", in.Text)
}

func TestDisassembleDefaultRendering(t *testing.T) {
	arch := buildArch(t, toySrc)
	d := disasm.New(arch)

	word := uint16(0x2000 | (4 << 8) | 10)
	mem := byteMem{byte(word), byte(word >> 8)}

	in, derr := d.Disassemble(mem, 0, false)
	require.Nil(t, derr)
	require.Equal(t, "LDI 4, 10", in.Text)
}

func TestDisassembleBundleDefaultRendering(t *testing.T) {
	arch := buildArch(t, toySrc)
	d := disasm.New(arch)

	lo := uint16(0x1000 | (3 << 8) | (1 << 4) | 2)
	hi := uint16(0x2000 | (5 << 8) | 7)
	mem := byteMem{0xFF, byte(lo), byte(lo >> 8), byte(hi), byte(hi >> 8)}

	in, derr := d.Disassemble(mem, 0, false)
	require.Nil(t, derr)
	require.Equal(t, "BUNDLE[s0=ADD R3, R1, R2, s1=LDI 5, 7]", in.Text)
}

const noBundleSrc = `
architecture Narrow {
	word_size = 16;
	endianness = little;

	format RType width=16 {
		field opcode[15:12] = 0x1;
		field rd[11:8];
		field rs1[7:4];
		field rs2[3:0];
	}
	instruction ADD {
		format RType;
		encoding { opcode = 0x1; }
		operands rd, rs1, rs2;
	}
}
`

func TestDisassembleNoMatchError(t *testing.T) {
	arch := buildArch(t, noBundleSrc)
	d := disasm.New(arch)
	mem := byteMem{0xFF, 0xFF}

	_, derr := d.Disassemble(mem, 0, false)
	require.NotNil(t, derr)
	require.Equal(t, vm.NoMatch, derr.Kind)
}
