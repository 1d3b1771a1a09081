package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isadsl/isadsl/dsl"
	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/validate"
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

func TestValidArchitecturePasses(t *testing.T) {
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
		encoding {}
		operands rd, rs1, rs2;
		behavior { rd = rs1 + rs2; }
	}
}
`)
	res := validate.Validate(arch)
	require.False(t, res.HasErrors(), res.Error())
}

func TestFormatFieldOverlapDetected(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format F width=16 {
		field a[7:0];
		field b[4:2];
	}
}
`)
	res := validate.Validate(arch)
	require.True(t, res.HasErrors())
	require.Equal(t, validate.FormatOverlap, res.Errors[0].Kind)
}

func TestConstantTooWideDetected(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format F width=16 {
		field op[3:0] = 0x1F;
	}
}
`)
	res := validate.Validate(arch)
	require.True(t, res.HasErrors())
	require.Equal(t, validate.ConstantTooWide, res.Errors[0].Kind)
}

func TestEncodingOverridingFormatConstantDetected(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format F width=16 {
		field op[3:0] = 0x1;
	}
	instruction X {
		format F;
		encoding { op = 0x2; }
		operands;
	}
}
`)
	res := validate.Validate(arch)
	require.True(t, res.HasErrors())
	found := false
	for _, e := range res.Errors {
		if e.Kind == validate.ConstantOverridden {
			found = true
		}
	}
	require.True(t, found)
}

func TestDuplicateIdentificationTupleDetected(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	format F width=8 {
		field op[7:0];
	}
	instruction A {
		format F;
		encoding { op = 0x1; }
		operands;
	}
	instruction B {
		format F;
		encoding { op = 0x1; }
		operands;
	}
}
`)
	res := validate.Validate(arch)
	require.True(t, res.HasErrors())
	found := false
	for _, e := range res.Errors {
		if e.Kind == validate.DuplicateIdentificationTuple {
			found = true
		}
	}
	require.True(t, found)
}

func TestUnknownRegisterFieldDetected(t *testing.T) {
	arch := buildArch(t, `
architecture Toy {
	word_size = 32;
	endianness = little;
	register PSW scalar width=32 { field V[30:30]; }
	format F width=8 { field op[7:0]; }
	instruction X {
		format F;
		encoding { op = 0x1; }
		operands;
		behavior { PSW.Z = 1; }
	}
}
`)
	res := validate.Validate(arch)
	require.True(t, res.HasErrors())
	found := false
	for _, e := range res.Errors {
		if e.Kind == validate.UnknownField {
			found = true
		}
	}
	require.True(t, found)
}
