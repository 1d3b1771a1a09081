// Package disasm implements C11, the Disassembler: it decodes one
// instruction via vm's Identifier (C8) and renders it to text, either
// through the instruction's own assembly template or a default
// "MNEMONIC op1, op2, ..." rendering (§4.11). Grounded on the teacher's
// debugger disassembly formatting (one decoded instruction -> one line of
// text), generalized from a fixed ARM mnemonic table to model-declared
// templates.
package disasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/vm"
)

// Disassembler renders decoded instructions to assembly text.
type Disassembler struct {
	arch       *model.Architecture
	identifier *vm.Identifier
	bundleSlot map[string][]string // bundle format name -> slot names, declaration order
}

// New builds a Disassembler over arch.
func New(arch *model.Architecture) *Disassembler {
	d := &Disassembler{arch: arch, identifier: vm.NewIdentifier(arch), bundleSlot: map[string][]string{}}
	for _, bf := range arch.BundleFormats {
		var names []string
		for _, s := range bf.Slots {
			names = append(names, s.Name)
		}
		d.bundleSlot[bf.Name] = names
	}
	return d
}

// Instruction is one disassembled unit: its decoded form and the rendered
// assembly text.
type Instruction struct {
	Decoded vm.Decoded
	Text    string
}

// Disassemble decodes one instruction at addr and renders it, returning the
// width it occupies in bytes so a caller can advance to the next one.
func (d *Disassembler) Disassemble(mem vm.Memory, addr uint64, big bool) (Instruction, *vm.DecodeError) {
	dec, derr := d.identifier.Identify(mem, addr, big)
	if derr != nil {
		return Instruction{}, derr
	}
	if dec.Instr.BundleFormatName != "" {
		if derr := d.identifier.DecodeBundleSlots(mem, addr, big, &dec); derr != nil {
			return Instruction{}, derr
		}
	}
	return Instruction{Decoded: dec, Text: d.render(dec)}, nil
}

func (d *Disassembler) render(dec vm.Decoded) string {
	if dec.Instr.AsmTemplate != "" {
		return d.renderTemplate(dec.Instr.AsmTemplate, dec)
	}
	if dec.Instr.BundleFormatName != "" {
		return d.renderDefaultBundle(dec)
	}
	return d.renderDefaultPlain(dec)
}

// renderDefaultPlain renders "MNEMONIC op1, op2, ..." in operand
// declaration order, per §4.11's default.
func (d *Disassembler) renderDefaultPlain(dec vm.Decoded) string {
	var parts []string
	for _, op := range dec.Instr.Operands {
		parts = append(parts, formatOperand(dec.Operands[op.Name]))
	}
	if len(parts) == 0 {
		return dec.Instr.Name
	}
	return dec.Instr.Name + " " + strings.Join(parts, ", ")
}

// renderDefaultBundle renders "MNEMONIC[slot0=..., slot1=...]" when a
// bundle instruction has no assembly template.
func (d *Disassembler) renderDefaultBundle(dec vm.Decoded) string {
	names := d.bundleSlot[dec.Instr.BundleFormatName]
	var parts []string
	for i, sub := range dec.Slots {
		slotName := fmt.Sprintf("slot%d", i)
		if i < len(names) {
			slotName = names[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%s", slotName, d.render(sub)))
	}
	return dec.Instr.Name + "[" + strings.Join(parts, ", ") + "]"
}

func formatOperand(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// renderTemplate applies a Python-str.format-style template: `{{`/`}}` are
// literal braces, `{name}` substitutes an operand value, `{slotN}`
// recursively renders the Nth bundle sub-instruction (§4.11).
func (d *Disassembler) renderTemplate(tmpl string, dec vm.Decoded) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				i = len(tmpl)
				break
			}
			name := tmpl[i+1 : i+end]
			b.WriteString(d.renderPlaceholder(name, dec))
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func (d *Disassembler) renderPlaceholder(name string, dec vm.Decoded) string {
	if strings.HasPrefix(name, "slot") {
		if idx, err := strconv.Atoi(strings.TrimPrefix(name, "slot")); err == nil && idx >= 0 && idx < len(dec.Slots) {
			return d.render(dec.Slots[idx])
		}
	}
	if v, ok := dec.Operands[name]; ok {
		return formatOperand(v)
	}
	return "{" + name + "}"
}
