package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const toyArchSrc = `
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
		encoding {}
		operands rd, rs1, rs2;
	}
}
`

func writeTempArch(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "toy.isa")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestLoadArchitectureSuccess(t *testing.T) {
	path := writeTempArch(t, toyArchSrc)

	arch, err := loadArchitecture(path)
	require.NoError(t, err)
	require.Equal(t, "Toy", arch.Name)
	require.Len(t, arch.Instructions, 1)
}

func TestLoadArchitectureSyntaxError(t *testing.T) {
	path := writeTempArch(t, `architecture Toy { word_size = ; }`)

	_, err := loadArchitecture(path)
	require.Error(t, err)
}

func TestLoadArchitectureValidationError(t *testing.T) {
	src := `
architecture Toy {
	word_size = 16;
	endianness = little;

	format RType width=16 {
		field opcode[15:12] = 0x1;
		field rd[11:8];
	}

	instruction ADD {
		format RType;
		encoding { opcode = 0x1; }
		operands rd, missing;
	}
}
`
	path := writeTempArch(t, src)

	_, err := loadArchitecture(path)
	require.Error(t, err)
}

func TestLoadArchitectureMissingFile(t *testing.T) {
	_, err := loadArchitecture(filepath.Join(t.TempDir(), "nope.isa"))
	require.Error(t, err)
}
