package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/isadsl/isadsl/dsl"
	"github.com/isadsl/isadsl/rtl"
)

// BuildError reports a problem lowering a parse tree into model entities:
// a malformed literal, an unknown attribute, or a structurally invalid
// block that the parser accepted but the model cannot represent.
type BuildError struct {
	File    string
	Context string
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Context, e.Message)
}

// Unit is one resolved file's lowering: either a full Architecture (for an
// `architecture { }` file) or a Partial fragment (for a bare top-level
// file), per §4.2/§4.4's merge-vs-inheritance split.
type Unit struct {
	Path    string
	IsArch  bool
	Arch    *Architecture
	Partial *Partial
}

// Partial holds the top-level declarations of a file with no `architecture`
// wrapper, to be concatenated or merged into a root architecture by C4.
type Partial struct {
	Registers          []Register
	Formats            []Format
	BundleFormats      []BundleFormat
	Instructions       []Instruction
	InstructionAliases []InstructionAlias
}

// Build lowers one dsl.Unit's parse tree into typed model entities: constant
// literals are parsed to non-negative integers and bit ranges normalized to
// (lsb, msb) with lsb <= msb, regardless of declaration order (§3).
func Build(u *dsl.Unit) (*Unit, *BuildError) {
	f := u.File
	out := &Unit{Path: u.Path, IsArch: f.IsArchitecture}

	if f.IsArchitecture {
		arch := &Architecture{Name: f.ArchName}
		if ws, ok := f.Props["word_size"]; ok {
			v, err := strconv.Atoi(ws)
			if err != nil {
				return nil, &BuildError{File: u.Path, Context: "architecture " + f.ArchName, Message: "word_size: " + err.Error()}
			}
			arch.WordSize = v
		}
		if en, ok := f.Props["endianness"]; ok {
			switch en {
			case "little":
				arch.Endianness = Little
			case "big":
				arch.Endianness = Big
			default:
				return nil, &BuildError{File: u.Path, Context: "architecture " + f.ArchName, Message: "endianness must be little or big, got " + en}
			}
		}
		if err := buildBlocksInto(u.Path, f.Blocks, &arch.Registers, &arch.Formats, &arch.BundleFormats, &arch.Instructions, &arch.InstructionAliases); err != nil {
			return nil, err
		}
		out.Arch = arch
		return out, nil
	}

	p := &Partial{}
	if err := buildBlocksInto(u.Path, f.Blocks, &p.Registers, &p.Formats, &p.BundleFormats, &p.Instructions, &p.InstructionAliases); err != nil {
		return nil, err
	}
	out.Partial = p
	return out, nil
}

func buildBlocksInto(file string, blocks []dsl.Block, regs *[]Register, formats *[]Format, bundles *[]BundleFormat, instrs *[]Instruction, aliases *[]InstructionAlias) *BuildError {
	for _, b := range blocks {
		switch b.Kind {
		case "register":
			r, err := buildRegister(file, b)
			if err != nil {
				return err
			}
			*regs = append(*regs, r)
		case "format":
			fm, err := buildFormat(file, b)
			if err != nil {
				return err
			}
			*formats = append(*formats, fm)
		case "bundle_format":
			bf, err := buildBundleFormat(file, b)
			if err != nil {
				return err
			}
			*bundles = append(*bundles, bf)
		case "instruction":
			in, err := buildInstruction(file, b)
			if err != nil {
				return err
			}
			*instrs = append(*instrs, in)
		case "instruction_alias":
			al, err := buildInstructionAlias(file, b)
			if err != nil {
				return err
			}
			*aliases = append(*aliases, al)
		default:
			return &BuildError{File: file, Context: b.Name, Message: "unknown block kind " + b.Kind}
		}
	}
	return nil
}

func parseInt(file, ctx, lit string) (int, *BuildError) {
	v, err := rtl.ParseLiteral(lit)
	if err != nil {
		return 0, &BuildError{File: file, Context: ctx, Message: fmt.Sprintf("bad integer literal %q: %v", lit, err)}
	}
	return int(v), nil
}

func parseUint(file, ctx, lit string) (uint64, *BuildError) {
	v, err := rtl.ParseLiteral(lit)
	if err != nil {
		return 0, &BuildError{File: file, Context: ctx, Message: fmt.Sprintf("bad integer literal %q: %v", lit, err)}
	}
	return v, nil
}

// normalizeRange returns (lsb, msb) with lsb <= msb regardless of the
// declared order, per §3's "either order accepted" rule.
func normalizeRange(a, b int) (lsb, msb int) {
	if a <= b {
		return a, b
	}
	return b, a
}

func buildBitRange(file, ctx, msbLit, lsbLit string) (BitRange, *BuildError) {
	a, err := parseInt(file, ctx, msbLit)
	if err != nil {
		return BitRange{}, err
	}
	b, err := parseInt(file, ctx, lsbLit)
	if err != nil {
		return BitRange{}, err
	}
	lsb, msb := normalizeRange(a, b)
	return BitRange{LSB: lsb, MSB: msb}, nil
}

func buildRegister(file string, b dsl.Block) (Register, *BuildError) {
	r := Register{Name: b.Name, Fields: map[string]Field{}}
	variant := b.Attrs["variant"]
	switch variant {
	case "file":
		r.Kind = RegisterFile
	case "vector":
		r.Kind = RegisterVector
	case "virtual":
		r.Kind = RegisterVirtual
	case "alias":
		r.Kind = RegisterAlias
	default:
		r.Kind = RegisterScalar
	}

	if w, ok := b.Attrs["width"]; ok {
		v, err := parseInt(file, "register "+b.Name, w)
		if err != nil {
			return Register{}, err
		}
		r.Width = v
	}
	if c, ok := b.Attrs["count"]; ok {
		v, err := parseInt(file, "register "+b.Name, c)
		if err != nil {
			return Register{}, err
		}
		r.Count = v
	}
	if lw, ok := b.Attrs["lane_width"]; ok {
		v, err := parseInt(file, "register "+b.Name, lw)
		if err != nil {
			return Register{}, err
		}
		r.LaneWidth = v
	}
	if lc, ok := b.Attrs["lane_count"]; ok {
		v, err := parseInt(file, "register "+b.Name, lc)
		if err != nil {
			return Register{}, err
		}
		r.LaneCount = v
	}
	if r.Kind == RegisterVector && r.Width == 0 && r.LaneWidth > 0 && r.LaneCount > 0 {
		r.Width = r.LaneWidth * r.LaneCount
	}

	if target, ok := b.Attrs["target"]; ok {
		r.Kind = RegisterAlias
		r.AliasTargetIndex = -1
		if strings.HasPrefix(target, "[") {
			idxLit := strings.TrimSuffix(strings.TrimPrefix(target, "["), "]")
			idx, err := parseInt(file, "register "+b.Name, idxLit)
			if err != nil {
				return Register{}, err
			}
			r.AliasTargetIndex = idx
		} else {
			r.AliasTarget = target
		}
	}
	if aliasTarget, ok := b.Attrs["alias"]; ok {
		r.Kind = RegisterAlias
		r.AliasTarget = aliasTarget
		r.AliasTargetIndex = -1
	}

	for i, comp := range b.Components {
		// Each component is either a bare scalar register name, or
		// "Name[idx]" selecting one element of a register file.
		if open := strings.IndexByte(comp, '['); open >= 0 {
			name := comp[:open]
			idxLit := strings.TrimSuffix(comp[open+1:], "]")
			idx, err := parseInt(file, "register "+b.Name, idxLit)
			if err != nil {
				return Register{}, err
			}
			r.Components = append(r.Components, VirtualComponent{RegisterName: name, IsFileIndex: true, Index: idx})
		} else {
			r.Components = append(r.Components, VirtualComponent{RegisterName: comp})
		}
		_ = i
	}

	for _, fd := range b.Fields {
		rng, err := buildBitRange(file, "register "+b.Name+" field "+fd.Name, fd.MSB, fd.LSB)
		if err != nil {
			return Register{}, err
		}
		r.Fields[fd.Name] = Field{Name: fd.Name, Range: rng}
		r.FieldOrder = append(r.FieldOrder, fd.Name)
	}

	return r, nil
}

func buildFormat(file string, b dsl.Block) (Format, *BuildError) {
	fm := Format{Name: b.Name, IdentificationFields: b.IdentificationFields}
	if w, ok := b.Attrs["width"]; ok {
		v, err := parseInt(file, "format "+b.Name, w)
		if err != nil {
			return Format{}, err
		}
		fm.Width = v
	}
	for _, fd := range b.Fields {
		rng, err := buildBitRange(file, "format "+b.Name+" field "+fd.Name, fd.MSB, fd.LSB)
		if err != nil {
			return Format{}, err
		}
		ff := FormatField{Name: fd.Name, Range: rng}
		if fd.HasConst {
			v, err := parseUint(file, "format "+b.Name+" field "+fd.Name, fd.Const)
			if err != nil {
				return Format{}, err
			}
			ff.HasConst = true
			ff.Const = v
		}
		fm.Fields = append(fm.Fields, ff)
	}
	return fm, nil
}

func buildBundleFormat(file string, b dsl.Block) (BundleFormat, *BuildError) {
	bf := BundleFormat{Name: b.Name, IdentificationFields: b.IdentificationFields}
	if w, ok := b.Attrs["width"]; ok {
		v, err := parseInt(file, "bundle_format "+b.Name, w)
		if err != nil {
			return BundleFormat{}, err
		}
		bf.Width = v
	}
	if is, ok := b.Attrs["instruction_start"]; ok {
		v, err := parseInt(file, "bundle_format "+b.Name, is)
		if err != nil {
			return BundleFormat{}, err
		}
		bf.HasInstructionStart = true
		bf.InstructionStart = v
	}
	for _, sd := range b.Slots {
		rng, err := buildBitRange(file, "bundle_format "+b.Name+" slot "+sd.Name, sd.MSB, sd.LSB)
		if err != nil {
			return BundleFormat{}, err
		}
		bf.Slots = append(bf.Slots, Slot{Name: sd.Name, Range: rng})
	}
	return bf, nil
}

// parseOperandDescriptor splits dsl.Parser's rendered "name" or
// "name(f1,f2)" text back into an Operand.
func parseOperandDescriptor(s string) Operand {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return Operand{Name: s, Kind: OperandSimple, FieldNames: []string{s}}
	}
	name := s[:open]
	inner := strings.TrimSuffix(s[open+1:], ")")
	var fields []string
	for _, f := range strings.Split(inner, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	return Operand{Name: name, Kind: OperandDistributed, FieldNames: fields}
}

func buildInstruction(file string, b dsl.Block) (Instruction, *BuildError) {
	in := Instruction{
		Name:             b.Name,
		FormatName:       b.FormatName,
		BundleFormatName: b.BundleFormatName,
		Encoding:         map[string]uint64{},
		AsmTemplate:      b.AsmSyntax,
		ExternalBehavior: b.External,
	}
	for fname, lit := range b.Encoding {
		v, err := parseUint(file, "instruction "+b.Name+" encoding "+fname, lit)
		if err != nil {
			return Instruction{}, err
		}
		in.Encoding[fname] = v
	}
	for _, desc := range b.Operands {
		in.Operands = append(in.Operands, parseOperandDescriptor(desc))
	}
	if !b.External && strings.TrimSpace(b.Behavior) != "" {
		rp := rtl.NewParser(b.Behavior)
		block, err := rp.ParseBlock()
		if err != nil {
			return Instruction{}, &BuildError{File: file, Context: "instruction " + b.Name + " behavior", Message: err.Error()}
		}
		in.Behavior = block
		in.RawBehavior = strings.TrimSpace(b.Behavior)
	}
	return in, nil
}

func buildInstructionAlias(file string, b dsl.Block) (InstructionAlias, *BuildError) {
	return InstructionAlias{
		Name:             b.Name,
		TargetName:       b.TargetName,
		AsmTemplate:      b.AsmSyntax,
		DeclaredOperands: b.Operands,
	}, nil
}
