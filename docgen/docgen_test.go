package docgen_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/isadsl/isadsl/dsl"
	"github.com/isadsl/isadsl/docgen"
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

const toySrc = `
architecture Toy {
	word_size = 16;
	endianness = little;

	register R file width=16 count=8;

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
		behavior { R[rd] = R[rs1] + R[rs2]; }
	}
}
`

func TestGenerateWritesInstructionPage(t *testing.T) {
	arch := buildArch(t, toySrc)
	dir := t.TempDir()

	err := docgen.Generate(arch, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "instr_ADD.md"))
	require.NoError(t, err)
	body := string(data)

	require.Contains(t, body, "# ADD")
	require.Contains(t, body, "Format: `RType`")
	require.Contains(t, body, "ADD R{rd}, R{rs1}, R{rs2}")
	require.Contains(t, body, "R[rd] = R[rs1] + R[rs2]")

	front, rest := splitFrontMatter(t, body)
	require.Equal(t, "ADD", front["title"])
	require.Equal(t, "instruction", front["kind"])
	_ = rest
}

func TestGenerateWritesRegisterPage(t *testing.T) {
	arch := buildArch(t, toySrc)
	dir := t.TempDir()

	require.NoError(t, docgen.Generate(arch, dir))

	data, err := os.ReadFile(filepath.Join(dir, "reg_R.md"))
	require.NoError(t, err)
	body := string(data)

	require.Contains(t, body, "# R")
	require.Contains(t, body, "Count: 8")

	front, _ := splitFrontMatter(t, body)
	require.Equal(t, "register", front["kind"])
}

func TestGenerateWritesFormatPage(t *testing.T) {
	arch := buildArch(t, toySrc)
	dir := t.TempDir()

	require.NoError(t, docgen.Generate(arch, dir))

	data, err := os.ReadFile(filepath.Join(dir, "fmt_RType.md"))
	require.NoError(t, err)
	body := string(data)

	require.Contains(t, body, "# RType")
	require.Contains(t, body, "| opcode |")
	require.Contains(t, body, "| rd |")

	front, _ := splitFrontMatter(t, body)
	require.Equal(t, "format", front["kind"])
}

func TestGenerateCreatesOutputDir(t *testing.T) {
	arch := buildArch(t, toySrc)
	dir := filepath.Join(t.TempDir(), "nested", "docs")

	require.NoError(t, docgen.Generate(arch, dir))

	_, err := os.Stat(filepath.Join(dir, "instr_ADD.md"))
	require.NoError(t, err)
}

func splitFrontMatter(t *testing.T, body string) (map[string]any, string) {
	t.Helper()
	const delim = "---\n"
	require.True(t, len(body) > len(delim) && body[:len(delim)] == delim)
	rest := body[len(delim):]
	end := indexOf(rest, delim)
	require.GreaterOrEqual(t, end, 0)
	fmText := rest[:end]
	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(fmText), &fm))
	return fm, rest[end+len(delim):]
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
