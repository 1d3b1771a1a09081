// Package docgen renders one Markdown reference page per instruction and
// one per register/format, grounded on the teacher's tools/format.go
// (table formatting) and tools/xref.go (cross-reference generation),
// repurposed from emulator runtime diagnostics to architecture
// documentation. Each page carries a small YAML front-matter block
// consumed by static-site generators.
package docgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/isadsl/isadsl/model"
)

const instructionTemplateSrc = "# {{.Name}}\n\n" +
	"Format: `{{.FormatName}}`{{if .BundleFormatName}} (bundle format `{{.BundleFormatName}}`){{end}}\n\n" +
	"## Operands\n\n" +
	"{{if .Operands}}| Name | Kind |\n|---|---|\n{{range .Operands}}| {{.Name}} | {{.Kind}} |\n{{end}}{{else}}_none_\n{{end}}\n" +
	"## Encoding\n\n" +
	"{{if .Encoding}}| Field | Value |\n|---|---|\n{{range $k, $v := .Encoding}}| {{$k}} | {{$v}} |\n{{end}}{{else}}_no fixed fields_\n{{end}}\n" +
	"{{if .AsmTemplate}}## Assembly syntax\n\n```\n{{.AsmTemplate}}\n```\n{{end}}\n" +
	"{{if .Behavior}}## RTL behavior\n\n```\n{{.Behavior}}\n```\n{{else if .External}}## Behavior\n\nImplemented externally (host-provided function).\n{{end}}\n"

const registerTemplateSrc = "# {{.Name}}\n\n" +
	"Kind: {{.Kind}}\nWidth: {{.Width}}\n{{if .Count}}Count: {{.Count}}\n{{end}}\n" +
	"{{if .Fields}}## Fields\n\n| Name | LSB | MSB |\n|---|---|---|\n{{range .Fields}}| {{.Name}} | {{.Range.LSB}} | {{.Range.MSB}} |\n{{end}}{{end}}\n"

const formatTemplateSrc = "# {{.Name}}\n\nWidth: {{.Width}}\n\n" +
	"## Fields\n\n| Name | LSB | MSB | Constant |\n|---|---|---|---|\n" +
	"{{range .Fields}}| {{.Name}} | {{.Range.LSB}} | {{.Range.MSB}} | {{if .HasConst}}{{.Const}}{{else}}-{{end}} |\n{{end}}\n"

var (
	instructionTemplate = template.Must(template.New("instruction").Parse(instructionTemplateSrc))
	registerTemplate    = template.Must(template.New("register").Parse(registerTemplateSrc))
	formatTemplate      = template.Must(template.New("format").Parse(formatTemplateSrc))
)

type frontMatter struct {
	Title string `yaml:"title"`
	Kind  string `yaml:"kind"`
	Width int    `yaml:"width,omitempty"`
}

func writePage(dir, name string, fm frontMatter, body string) error {
	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("docgen: marshal front matter for %s: %w", name, err)
	}
	content := "---\n" + string(fmBytes) + "---\n\n" + body
	path := filepath.Join(dir, name+".md")
	return os.WriteFile(path, []byte(content), 0644)
}

type instructionView struct {
	model.Instruction
	Behavior string
	External bool
}

func renderBehavior(in model.Instruction) string {
	return in.RawBehavior
}

// Generate writes one Markdown page per instruction, register, and format
// of arch into dir, creating dir if it does not exist.
func Generate(arch *model.Architecture, dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("docgen: create output dir: %w", err)
	}

	for _, in := range arch.Instructions {
		var b strings.Builder
		view := instructionView{Instruction: in, Behavior: renderBehavior(in), External: in.ExternalBehavior}
		if err := instructionTemplate.Execute(&b, view); err != nil {
			return fmt.Errorf("docgen: render instruction %s: %w", in.Name, err)
		}
		if err := writePage(dir, "instr_"+in.Name, frontMatter{Title: in.Name, Kind: "instruction"}, b.String()); err != nil {
			return err
		}
	}

	for _, r := range arch.Registers {
		var b strings.Builder
		if err := registerTemplate.Execute(&b, r); err != nil {
			return fmt.Errorf("docgen: render register %s: %w", r.Name, err)
		}
		if err := writePage(dir, "reg_"+r.Name, frontMatter{Title: r.Name, Kind: "register", Width: r.Width}, b.String()); err != nil {
			return err
		}
	}

	for _, f := range arch.Formats {
		var b strings.Builder
		if err := formatTemplate.Execute(&b, f); err != nil {
			return fmt.Errorf("docgen: render format %s: %w", f.Name, err)
		}
		if err := writePage(dir, "fmt_"+f.Name, frontMatter{Title: f.Name, Kind: "format", Width: f.Width}, b.String()); err != nil {
			return err
		}
	}

	return nil
}
