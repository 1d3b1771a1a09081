package assemble

import (
	"regexp"
	"strings"

	"github.com/isadsl/isadsl/encoder"
	"github.com/isadsl/isadsl/model"
)

// Assembler implements C9's two-pass algorithm (§4.9): Pass1 walks the
// source computing each statement's address and recording label addresses;
// Pass2 tokenizes operands and packs each statement via encoder (C7).
// Grounded on the teacher's parser.go two-file (macro-expand then parse)
// front end, generalized from ARM mnemonics to model-declared instructions
// and instruction aliases.
type Assembler struct {
	arch       *model.Architecture
	pack       *encoder.Index
	instrByName map[string]*model.Instruction
	aliasByName map[string]*model.InstructionAlias
	regsByName  map[string]*model.Register
}

// NewAssembler builds the lookup tables used by both passes.
func NewAssembler(arch *model.Architecture) *Assembler {
	a := &Assembler{
		arch:        arch,
		pack:        encoder.NewIndex(arch),
		instrByName: map[string]*model.Instruction{},
		aliasByName: map[string]*model.InstructionAlias{},
		regsByName:  map[string]*model.Register{},
	}
	for i := range arch.Instructions {
		a.instrByName[arch.Instructions[i].Name] = &arch.Instructions[i]
	}
	for i := range arch.InstructionAliases {
		a.aliasByName[arch.InstructionAliases[i].Name] = &arch.InstructionAliases[i]
	}
	for i := range arch.Registers {
		a.regsByName[arch.Registers[i].Name] = &arch.Registers[i]
	}
	return a
}

// statement is one parsed line: an optional label, and the mnemonic/bundle
// text that follows it (empty for a label-only line).
type statement struct {
	line  int
	label string
	text  string
}

func (a *Assembler) scan(source string) []statement {
	var out []statement
	for i, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}
		label, rest, ok := splitLabelPrefix(line)
		if ok {
			out = append(out, statement{line: i + 1, label: label, text: rest})
			continue
		}
		out = append(out, statement{line: i + 1, text: line})
	}
	return out
}

// resolveInstr looks up mnemonic directly, or through an instruction alias
// to its target instruction.
func (a *Assembler) resolveInstr(mnemonic string) (*model.Instruction, bool) {
	if in, ok := a.instrByName[mnemonic]; ok {
		return in, true
	}
	if al, ok := a.aliasByName[mnemonic]; ok {
		if in, ok := a.instrByName[al.TargetName]; ok {
			return in, true
		}
	}
	return nil, false
}

// widthBytes returns one statement's encoded size, without resolving
// operand values, for Pass1's address accounting.
func (a *Assembler) widthBytes(st statement) (int, *Error) {
	if subs, ok := parseBundleBody(st.text); ok {
		bi, berr := a.findBundleInstruction(len(subs))
		if berr != nil {
			return 0, berr
		}
		bf := a.bundleFormatOf(bi)
		return bf.Width / 8, nil
	}
	mnemonic, _ := splitMnemonic(st.text)
	in, ok := a.resolveInstr(mnemonic)
	if !ok {
		return 0, errf(UnknownMnemonic, st.line, "unknown mnemonic %q", mnemonic)
	}
	return a.formatWidthOf(in) / 8, nil
}

func (a *Assembler) formatWidthOf(in *model.Instruction) int {
	if in.BundleFormatName != "" {
		return a.bundleFormatOf(in).Width
	}
	for i := range a.arch.Formats {
		if a.arch.Formats[i].Name == in.FormatName {
			return a.arch.Formats[i].Width
		}
	}
	return 0
}

func (a *Assembler) bundleFormatOf(in *model.Instruction) *model.BundleFormat {
	for i := range a.arch.BundleFormats {
		if a.arch.BundleFormats[i].Name == in.BundleFormatName {
			return &a.arch.BundleFormats[i]
		}
	}
	return nil
}

// findBundleInstruction picks the architecture's bundle instruction whose
// bundle format declares exactly numSlots slots. A `bundle{...}` assembly
// statement names no mnemonic of its own, so the slot count is the only
// available disambiguator; an architecture with two bundle formats sharing
// a slot count makes this statement genuinely ambiguous.
func (a *Assembler) findBundleInstruction(numSlots int) (*model.Instruction, *Error) {
	var found *model.Instruction
	for i := range a.arch.Instructions {
		in := &a.arch.Instructions[i]
		if in.BundleFormatName == "" {
			continue
		}
		bf := a.bundleFormatOf(in)
		if bf == nil || len(bf.Slots) != numSlots {
			continue
		}
		if found != nil {
			return nil, errf(AliasInference, 0, "ambiguous bundle statement: multiple bundle instructions have %d slots", numSlots)
		}
		found = in
	}
	if found == nil {
		return nil, errf(UnknownMnemonic, 0, "no bundle instruction with %d slots", numSlots)
	}
	return found, nil
}

var registerTokenPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*?)(\d+)$`)

// resolveRegisterToken maps an assembly register token ("R3") to the
// integer value an operand field expects: a declared alias's target index
// if the token names a register alias, else a Name+digits match against a
// declared register file's name ("R3" against file "R", index 3). Scalar
// (non-indexed) registers have no such integer value and are not
// resolvable by this heuristic.
func (a *Assembler) resolveRegisterToken(token string) (uint64, bool) {
	if reg, ok := a.regsByName[token]; ok && reg.Kind == model.RegisterAlias && reg.AliasTargetIndex >= 0 {
		return uint64(reg.AliasTargetIndex), true
	}
	m := registerTokenPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	name, idxLit := m[1], m[2]
	reg, ok := a.regsByName[name]
	if !ok || reg.Kind != model.RegisterFile {
		return 0, false
	}
	idx, ok := parseIntLiteral(idxLit)
	if !ok {
		return 0, false
	}
	return idx, true
}

// resolveOperandValue resolves one operand token against, in order,
// integer literals, label references, then register tokens (§4.9).
func (a *Assembler) resolveOperandValue(token string, line int, labels map[string]uint64) (uint64, *Error) {
	token = strings.TrimSpace(token)
	if v, ok := parseIntLiteral(token); ok {
		return v, nil
	}
	if v, ok := labels[token]; ok {
		return v, nil
	}
	if v, ok := a.resolveRegisterToken(token); ok {
		return v, nil
	}
	return 0, errf(UnknownLabel, line, "cannot resolve operand %q (not a literal, label, or register)", token)
}

// operandValues resolves a plain statement's operand tokens into the
// target instruction's operand-name-keyed value map, applying instruction
// alias operand inference (§4.9) when mnemonic names an alias.
func (a *Assembler) operandValues(mnemonic string, tokens []string, line int, labels map[string]uint64) (*model.Instruction, map[string]uint64, *Error) {
	in, ok := a.resolveInstr(mnemonic)
	if !ok {
		return nil, nil, errf(UnknownMnemonic, line, "unknown mnemonic %q", mnemonic)
	}

	al, isAlias := a.aliasByName[mnemonic]
	if !isAlias {
		if len(tokens) != len(in.Operands) {
			return nil, nil, errf(AliasInference, line, "%s expects %d operands, got %d", mnemonic, len(in.Operands), len(tokens))
		}
		vals := map[string]uint64{}
		for i, op := range in.Operands {
			v, err := a.resolveOperandValue(tokens[i], line, labels)
			if err != nil {
				return nil, nil, err
			}
			vals[op.Name] = v
		}
		return in, vals, nil
	}

	if len(tokens) != len(al.DeclaredOperands) {
		return nil, nil, errf(AliasInference, line, "%s expects %d operands, got %d", mnemonic, len(al.DeclaredOperands), len(tokens))
	}
	vals := map[string]uint64{}
	for _, op := range in.Operands {
		vals[op.Name] = 0
	}
	for i, name := range al.DeclaredOperands {
		found := false
		for _, op := range in.Operands {
			if op.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, nil, errf(AliasInference, line, "alias %s declares operand %q not present on target %s", mnemonic, name, al.TargetName)
		}
		v, err := a.resolveOperandValue(tokens[i], line, labels)
		if err != nil {
			return nil, nil, err
		}
		vals[name] = v
	}
	return in, vals, nil
}

func appendWord(out []byte, word uint64, widthBits int, big bool) []byte {
	n := widthBits / 8
	for i := 0; i < n; i++ {
		var shift uint
		if big {
			shift = uint((n - 1 - i) * 8)
		} else {
			shift = uint(i * 8)
		}
		out = append(out, byte(word>>shift))
	}
	return out
}

// Assemble runs both passes over source and returns the concatenated
// encoded instruction stream (§6's binary format: no headers, no padding).
func (a *Assembler) Assemble(source string) ([]byte, *Error) {
	stmts := a.scan(source)
	big := a.arch.Endianness == model.Big

	// Pass 1: label collection.
	labels := map[string]uint64{}
	addr := uint64(0)
	for _, st := range stmts {
		if st.label != "" {
			labels[st.label] = addr
		}
		if st.text == "" {
			continue
		}
		w, err := a.widthBytes(st)
		if err != nil {
			return nil, err
		}
		addr += uint64(w)
	}

	// Pass 2: encode.
	var out []byte
	for _, st := range stmts {
		if st.text == "" {
			continue
		}
		if subs, ok := parseBundleBody(st.text); ok {
			bi, berr := a.findBundleInstruction(len(subs))
			if berr != nil {
				return nil, berr
			}
			var subInstrs []encoder.SubInstruction
			for _, sub := range subs {
				mnemonic, operandText := splitMnemonic(sub)
				subIn, vals, err := a.operandValues(mnemonic, splitArgs(operandText), st.line, labels)
				if err != nil {
					return nil, err
				}
				subInstrs = append(subInstrs, encoder.SubInstruction{Name: subIn.Name, Operands: vals})
			}
			word, width, perr := a.pack.PackBundle(bi, subInstrs)
			if perr != nil {
				return nil, errf(AliasInference, st.line, "%s", perr.Error())
			}
			out = appendWord(out, word, width, big)
			continue
		}

		mnemonic, operandText := splitMnemonic(st.text)
		in, vals, err := a.operandValues(mnemonic, splitArgs(operandText), st.line, labels)
		if err != nil {
			return nil, err
		}
		word, width, perr := a.pack.Pack(in, vals)
		if perr != nil {
			return nil, errf(AliasInference, st.line, "%s", perr.Error())
		}
		out = appendWord(out, word, width, big)
	}
	return out, nil
}
