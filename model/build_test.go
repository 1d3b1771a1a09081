package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isadsl/isadsl/dsl"
	"github.com/isadsl/isadsl/model"
)

type fakeFS map[string]string

func (f fakeFS) ReadFile(path string) (string, error) {
	if src, ok := f[path]; ok {
		return src, nil
	}
	return "", &missingFileError{path}
}

type missingFileError struct{ path string }

func (e *missingFileError) Error() string { return "no such file: " + e.path }

func TestBuildArchitectureFromSource(t *testing.T) {
	src := `
architecture Toy {
	word_size = 32;
	endianness = big;

	register PSW scalar width=32 {
		field V[30:30];
	}

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
		behavior { rd = rs1 + rs2; }
	}
}
`
	f, errs := dsl.Parse(src, "toy.isa")
	require.False(t, errs.HasErrors(), errs.Error())
	u, berr := model.Build(&dsl.Unit{Path: "toy.isa", File: f})
	require.Nil(t, berr)
	require.True(t, u.IsArch)

	arch := u.Arch
	require.Equal(t, 32, arch.WordSize)
	require.Equal(t, model.Big, arch.Endianness)
	require.Len(t, arch.Registers, 1)
	require.Equal(t, model.BitRange{LSB: 30, MSB: 30}, arch.Registers[0].Fields["V"].Range)
	require.Len(t, arch.Formats, 1)
	require.True(t, arch.Formats[0].Fields[0].HasConst)
	require.EqualValues(t, 0x10, arch.Formats[0].Fields[0].Const)
	require.Len(t, arch.Instructions, 1)
	require.NotNil(t, arch.Instructions[0].Behavior)
}

func TestBuildNormalizesReversedBitRange(t *testing.T) {
	src := `register R scalar width=32 { field F[0:7]; }`
	f, errs := dsl.Parse(src, "p.isa")
	require.False(t, errs.HasErrors())
	u, berr := model.Build(&dsl.Unit{Path: "p.isa", File: f})
	require.Nil(t, berr)
	require.Equal(t, model.BitRange{LSB: 0, MSB: 7}, u.Partial.Registers[0].Fields["F"].Range)
}

func TestMergePartialConcatenatesInIncludeOrder(t *testing.T) {
	fr := fakeFS{
		"root.isa": `#include "regs.isa"
architecture Toy {
	word_size = 32;
	endianness = little;
}`,
		"regs.isa": `register R scalar width=32;`,
	}
	units, errs := dsl.Resolve("root.isa", fr)
	require.False(t, errs.HasErrors(), errs.Error())

	var modelUnits []*model.Unit
	for _, u := range units {
		mu, berr := model.Build(u)
		require.Nil(t, berr)
		modelUnits = append(modelUnits, mu)
	}

	arch, merr := model.Merge(reorderRootFirst(modelUnits))
	require.Nil(t, merr)
	require.Equal(t, "Toy", arch.Name)
	require.Len(t, arch.Registers, 1)
	require.Equal(t, "R", arch.Registers[0].Name)
}

// reorderRootFirst puts the architecture unit first, matching Merge's
// "root unit leads" contract. dsl.Resolve already lists the entry file
// first, so for units in Resolve order this returns them unchanged.
func reorderRootFirst(units []*model.Unit) []*model.Unit {
	for i, u := range units {
		if u.IsArch {
			out := append([]*model.Unit{u}, units[:i]...)
			out = append(out, units[i+1:]...)
			return out
		}
	}
	return units
}
