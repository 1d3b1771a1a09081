// Package validate implements C5: the static checks that must pass before
// an Architecture is safe to hand to the RTL evaluator, packer, decoder,
// assembler or disassembler. Every check collects its failures rather than
// stopping at the first (§4.5/§7's "C1-C5 collect all errors" policy).
package validate

import (
	"fmt"

	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/rtl"
)

// Kind enumerates the fifteen ValidationError kinds named in §4.5/§7.
type Kind int

const (
	NameDuplication Kind = iota
	FormatOverlap
	WidthExceeded
	ConstantTooWide
	ConstantOverridden
	UnresolvedReference
	OperandMismatch
	VirtualWidthMismatch
	FieldOverlap
	IdentificationAmbiguity
	RTLReferenceNotFound
	BuiltinArity
	BuiltinWidthOutOfRange
	UnknownField
	DuplicateIdentificationTuple
)

func (k Kind) String() string {
	names := [...]string{
		"NameDuplication", "FormatOverlap", "WidthExceeded", "ConstantTooWide",
		"ConstantOverridden", "UnresolvedReference", "OperandMismatch",
		"VirtualWidthMismatch", "FieldOverlap", "IdentificationAmbiguity",
		"RTLReferenceNotFound", "BuiltinArity", "BuiltinWidthOutOfRange",
		"UnknownField", "DuplicateIdentificationTuple",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Error is one validation failure, located by the name of the entity it
// was found in.
type Error struct {
	Kind     Kind
	Location string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

// Result collects every Error found across one architecture.
type Result struct {
	Errors []*Error
}

func (r *Result) add(kind Kind, location, format string, args ...any) {
	r.Errors = append(r.Errors, &Error{Kind: kind, Location: location, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

func (r *Result) Error() string {
	s := ""
	for i, e := range r.Errors {
		if i > 0 {
			s += "\n"
		}
		s += e.Error()
	}
	return s
}

// index bundles architecture lookup tables built once and reused by every
// check, grounded on §9's "resolve names to indices eagerly" design note.
type index struct {
	arch *model.Architecture

	registers map[string]*model.Register
	formats   map[string]*model.Format
	bundles   map[string]*model.BundleFormat
	instrs    map[string]*model.Instruction
}

func buildIndex(arch *model.Architecture) *index {
	ix := &index{
		arch:      arch,
		registers: map[string]*model.Register{},
		formats:   map[string]*model.Format{},
		bundles:   map[string]*model.BundleFormat{},
		instrs:    map[string]*model.Instruction{},
	}
	for i := range arch.Registers {
		ix.registers[arch.Registers[i].Name] = &arch.Registers[i]
	}
	for i := range arch.Formats {
		ix.formats[arch.Formats[i].Name] = &arch.Formats[i]
	}
	for i := range arch.BundleFormats {
		ix.bundles[arch.BundleFormats[i].Name] = &arch.BundleFormats[i]
	}
	for i := range arch.Instructions {
		ix.instrs[arch.Instructions[i].Name] = &arch.Instructions[i]
	}
	return ix
}

// Validate runs every §4.5 check against arch and returns every failure
// found, in check order.
func Validate(arch *model.Architecture) *Result {
	r := &Result{}
	ix := buildIndex(arch)

	checkNameUniqueness(arch, r)
	checkFormats(arch, r)
	checkBundleFormats(arch, r)
	checkRegisters(arch, r)
	checkVirtualRegisters(ix, r)
	checkRegisterAliases(ix, r)
	checkInstructions(ix, r)
	checkInstructionAliases(ix, r)
	checkRTLBehaviors(ix, r)
	checkIdentificationUniqueness(ix, r)

	return r
}

func checkNameUniqueness(arch *model.Architecture, r *Result) {
	seen := map[string]bool{}
	for _, reg := range arch.Registers {
		if seen["register:"+reg.Name] {
			r.add(NameDuplication, reg.Name, "duplicate register name")
		}
		seen["register:"+reg.Name] = true
	}
	seen = map[string]bool{}
	for _, f := range arch.Formats {
		if seen[f.Name] {
			r.add(NameDuplication, f.Name, "duplicate format name")
		}
		seen[f.Name] = true
	}
	seen = map[string]bool{}
	for _, b := range arch.BundleFormats {
		if seen[b.Name] {
			r.add(NameDuplication, b.Name, "duplicate bundle format name")
		}
		seen[b.Name] = true
	}
	seen = map[string]bool{}
	for _, i := range arch.Instructions {
		if seen[i.Name] {
			r.add(NameDuplication, i.Name, "duplicate instruction name")
		}
		seen[i.Name] = true
	}
	seen = map[string]bool{}
	for _, a := range arch.InstructionAliases {
		if seen[a.Name] {
			r.add(NameDuplication, a.Name, "duplicate instruction alias name")
		}
		seen[a.Name] = true
	}
}

func checkFormats(arch *model.Architecture, r *Result) {
	for _, f := range arch.Formats {
		for i, a := range f.Fields {
			if a.Range.MSB >= f.Width {
				r.add(WidthExceeded, f.Name, "field %s: msb %d >= format width %d", a.Name, a.Range.MSB, f.Width)
			}
			if a.HasConst {
				limit := uint64(1) << uint(a.Range.Width())
				if a.Const >= limit {
					r.add(ConstantTooWide, f.Name, "field %s: constant %d does not fit in %d bits", a.Name, a.Const, a.Range.Width())
				}
			}
			for j, b := range f.Fields {
				if i == j {
					continue
				}
				if a.Range.Overlaps(b.Range) {
					r.add(FormatOverlap, f.Name, "fields %s and %s overlap", a.Name, b.Name)
				}
			}
		}
	}
}

func checkBundleFormats(arch *model.Architecture, r *Result) {
	for _, b := range arch.BundleFormats {
		for i, s := range b.Slots {
			if s.Range.MSB >= b.Width {
				r.add(WidthExceeded, b.Name, "slot %s: msb %d >= bundle width %d", s.Name, s.Range.MSB, b.Width)
			}
			for j, t := range b.Slots {
				if i == j {
					continue
				}
				if s.Range.Overlaps(t.Range) {
					r.add(FormatOverlap, b.Name, "slots %s and %s overlap", s.Name, t.Name)
				}
			}
		}
		if b.HasInstructionStart && (b.InstructionStart < 0 || b.InstructionStart >= b.Width) {
			r.add(WidthExceeded, b.Name, "instruction_start %d outside [0,%d)", b.InstructionStart, b.Width)
		}
	}
}

func checkRegisters(arch *model.Architecture, r *Result) {
	for _, reg := range arch.Registers {
		for i, name := range reg.FieldOrder {
			a := reg.Fields[name]
			if a.Range.MSB >= reg.Width {
				r.add(WidthExceeded, reg.Name, "field %s: msb %d >= register width %d", a.Name, a.Range.MSB, reg.Width)
			}
			for j, other := range reg.FieldOrder {
				if i == j {
					continue
				}
				b := reg.Fields[other]
				if a.Range.Overlaps(b.Range) {
					r.add(FieldOverlap, reg.Name, "fields %s and %s overlap", a.Name, b.Name)
				}
			}
		}
	}
}

func checkVirtualRegisters(ix *index, r *Result) {
	for _, reg := range ix.arch.Registers {
		if reg.Kind != model.RegisterVirtual {
			continue
		}
		total := 0
		for _, c := range reg.Components {
			target, ok := ix.registers[c.RegisterName]
			if !ok {
				r.add(UnresolvedReference, reg.Name, "virtual component references unknown register %s", c.RegisterName)
				continue
			}
			if c.IsFileIndex {
				if target.Kind != model.RegisterFile {
					r.add(UnresolvedReference, reg.Name, "virtual component indexes non-file register %s", c.RegisterName)
					continue
				}
				if c.Index < 0 || c.Index >= target.Count {
					r.add(UnresolvedReference, reg.Name, "virtual component index %d out of range for %s[0:%d)", c.Index, c.RegisterName, target.Count)
					continue
				}
			}
			total += target.Width
		}
		if reg.Width != 0 && total != reg.Width {
			r.add(VirtualWidthMismatch, reg.Name, "component widths sum to %d, want %d", total, reg.Width)
		}
	}
}

func checkRegisterAliases(ix *index, r *Result) {
	for _, reg := range ix.arch.Registers {
		if reg.Kind != model.RegisterAlias {
			continue
		}
		target, ok := ix.registers[reg.AliasTarget]
		if !ok {
			r.add(UnresolvedReference, reg.Name, "alias target %s does not exist", reg.AliasTarget)
			continue
		}
		if reg.AliasTargetIndex >= 0 {
			if target.Kind != model.RegisterFile {
				r.add(UnresolvedReference, reg.Name, "alias target %s is not a register file", reg.AliasTarget)
			} else if reg.AliasTargetIndex >= target.Count {
				r.add(UnresolvedReference, reg.Name, "alias index %d out of range for %s[0:%d)", reg.AliasTargetIndex, reg.AliasTarget, target.Count)
			}
		}
	}
}

func checkInstructions(ix *index, r *Result) {
	for _, instr := range ix.arch.Instructions {
		var fmtDef *model.Format
		if instr.FormatName != "" {
			f, ok := ix.formats[instr.FormatName]
			if !ok {
				r.add(UnresolvedReference, instr.Name, "references unknown format %s", instr.FormatName)
			} else {
				fmtDef = f
			}
		}
		if instr.BundleFormatName != "" {
			if _, ok := ix.bundles[instr.BundleFormatName]; !ok {
				r.add(UnresolvedReference, instr.Name, "references unknown bundle format %s", instr.BundleFormatName)
			}
		}
		if fmtDef == nil {
			continue
		}

		usedByEncoding := map[string]bool{}
		for fieldName, val := range instr.Encoding {
			ff, ok := fmtDef.FieldByName(fieldName)
			if !ok {
				r.add(UnresolvedReference, instr.Name, "encoding references unknown field %s of format %s", fieldName, fmtDef.Name)
				continue
			}
			if ff.HasConst {
				r.add(ConstantOverridden, instr.Name, "encoding overrides format constant field %s", fieldName)
				continue
			}
			limit := uint64(1) << uint(ff.Range.Width())
			if val >= limit {
				r.add(ConstantTooWide, instr.Name, "encoding value %d for field %s does not fit in %d bits", val, fieldName, ff.Range.Width())
			}
			usedByEncoding[fieldName] = true
		}

		for _, op := range instr.Operands {
			for _, fieldName := range op.FieldNames {
				ff, ok := fmtDef.FieldByName(fieldName)
				if !ok {
					r.add(OperandMismatch, instr.Name, "operand %s references unknown field %s", op.Name, fieldName)
					continue
				}
				if usedByEncoding[fieldName] {
					r.add(OperandMismatch, instr.Name, "operand %s reuses fixed-encoding field %s", op.Name, fieldName)
				}
				_ = ff
			}
			if op.Kind == model.OperandDistributed {
				seen := map[string]bool{}
				for _, fn := range op.FieldNames {
					if seen[fn] {
						r.add(OperandMismatch, instr.Name, "operand %s repeats field %s", op.Name, fn)
					}
					seen[fn] = true
				}
			}
		}
	}
}

func checkInstructionAliases(ix *index, r *Result) {
	for _, a := range ix.arch.InstructionAliases {
		target, ok := ix.instrs[a.TargetName]
		if !ok {
			r.add(UnresolvedReference, a.Name, "target instruction %s does not exist", a.TargetName)
			continue
		}
		declared := map[string]bool{}
		for _, name := range a.DeclaredOperands {
			declared[name] = true
		}
		for _, name := range a.DeclaredOperands {
			found := false
			for _, op := range target.Operands {
				if op.Name == name {
					found = true
					break
				}
			}
			if !found {
				r.add(OperandMismatch, a.Name, "declared operand %s is not an operand of %s", name, a.TargetName)
			}
		}
		if len(a.DeclaredOperands) > len(target.Operands) {
			r.add(OperandMismatch, a.Name, "declares more operands than target instruction %s accepts", a.TargetName)
		}
	}
}

// identMaskValue computes the fixed bit pattern an instruction's
// identification fields impose on its own format's word: mask has a 1 in
// every bit position some identification field constrains, value holds the
// required bits at those positions. A field with no constant (neither a
// format constant nor a fixed encoding entry) contributes nothing, per
// §4.8's "every identification field's value in the loaded bits equals the
// instruction's encoding (or format constant)".
func identMaskValue(f *model.Format, instr *model.Instruction, idFields []string) (mask, value uint64) {
	for _, name := range idFields {
		ff, ok := f.FieldByName(name)
		if !ok {
			continue
		}
		v, known := uint64(0), false
		if ff.HasConst {
			v, known = ff.Const, true
		} else if ev, ok := instr.Encoding[name]; ok {
			v, known = ev, true
		}
		if !known {
			continue
		}
		fieldMask := identBits(ff.Range.Width())
		mask |= fieldMask << uint(ff.Range.LSB)
		value |= (v & fieldMask) << uint(ff.Range.LSB)
	}
	return mask, value
}

func identBits(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// identCandidate is one instruction's resolved identification pattern,
// ready for the bit-level collision check below.
type identCandidate struct {
	instr *model.Instruction
	width int
	mask  uint64
	value uint64
}

// checkIdentificationUniqueness enforces §4.5 item 12 / §8's "no bit
// pattern of any width matches the identification fields of both" rule: it
// is not enough to compare instructions of the same format, because the
// decoder (§4.8) tries every candidate sharing a format width together, and
// tries widths in ascending order without ever revisiting a shorter width
// once something matched there. Two instructions collide whenever every bit
// position both of them fix agrees on its required value; where only one
// constrains a bit, or neither does, a word can always be built satisfying
// both, which is exactly the ambiguity (same width) or shadowing (shorter
// prefixing longer) the validator must reject before it reaches the decoder.
func checkIdentificationUniqueness(ix *index, r *Result) {
	byFormat := map[string][]*model.Instruction{}
	for i := range ix.arch.Instructions {
		instr := &ix.arch.Instructions[i]
		if instr.FormatName == "" {
			continue
		}
		byFormat[instr.FormatName] = append(byFormat[instr.FormatName], instr)
	}

	var candidates []identCandidate
	for fmtName, instrs := range byFormat {
		fmtDef := ix.formats[fmtName]
		if fmtDef == nil {
			continue
		}
		idFields := fmtDef.IdentificationFields
		if len(idFields) == 0 {
			idFields = identificationFieldNames(fmtDef, instrs)
		}

		seen := map[string]string{}
		for _, instr := range instrs {
			key := tupleKey(idFields, instr.Encoding)
			if prev, ok := seen[key]; ok {
				r.add(DuplicateIdentificationTuple, instr.Name, "identification tuple collides with instruction %s on format %s", prev, fmtName)
				continue
			}
			seen[key] = instr.Name

			mask, value := identMaskValue(fmtDef, instr, idFields)
			candidates = append(candidates, identCandidate{instr: instr, width: fmtDef.Width, mask: mask, value: value})
		}
	}

	for i := 0; i < len(candidates); i++ {
		a := candidates[i]
		for j := i + 1; j < len(candidates); j++ {
			b := candidates[j]
			if a.instr.FormatName == b.instr.FormatName {
				continue // already reported as a same-format duplicate tuple above
			}
			common := a.mask & b.mask
			if (a.value & common) != (b.value & common) {
				continue // some bit both fix disagrees: no word can satisfy both
			}
			if a.width == b.width {
				r.add(IdentificationAmbiguity, b.instr.Name, "identification fields do not distinguish it from instruction %s (same width %d, formats %s/%s)", a.instr.Name, a.width, a.instr.FormatName, b.instr.FormatName)
				continue
			}
			shorter, longer := a, b
			if longer.width < shorter.width {
				shorter, longer = longer, shorter
			}
			r.add(IdentificationAmbiguity, longer.instr.Name, "identification fields are a prefix match of shorter instruction %s (width %d vs %d): %s would be decoded first", shorter.instr.Name, shorter.width, longer.width, shorter.instr.Name)
		}
	}
}

// identificationFieldNames defaults to every field that some instruction of
// this format fixes in its encoding, when the format omits an explicit
// identification_fields list (§3).
func identificationFieldNames(f *model.Format, instrs []*model.Instruction) []string {
	set := map[string]bool{}
	for _, instr := range instrs {
		for name := range instr.Encoding {
			set[name] = true
		}
	}
	var names []string
	for _, ff := range f.Fields {
		if set[ff.Name] {
			names = append(names, ff.Name)
		}
	}
	return names
}

func tupleKey(fields []string, encoding map[string]uint64) string {
	key := ""
	for _, f := range fields {
		key += fmt.Sprintf("%s=%d;", f, encoding[f])
	}
	return key
}

func checkRTLBehaviors(ix *index, r *Result) {
	for i := range ix.arch.Instructions {
		instr := &ix.arch.Instructions[i]
		if instr.Behavior == nil {
			continue
		}
		operands := map[string]bool{}
		for _, op := range instr.Operands {
			operands[op.Name] = true
		}
		w := &rtlWalker{ix: ix, r: r, instr: instr.Name, operands: operands}
		w.walkBlock(instr.Behavior)
	}
}

type rtlWalker struct {
	ix       *index
	r        *Result
	instr    string
	operands map[string]bool
}

func (w *rtlWalker) walkBlock(b *rtl.Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		w.walkStmt(s)
	}
}

func (w *rtlWalker) walkStmt(s rtl.Stmt) {
	switch n := s.(type) {
	case rtl.Assign:
		w.walkLValue(n.LValue)
		w.walkExpr(n.Value)
	case *rtl.Block:
		w.walkBlock(n)
	case rtl.If:
		w.walkExpr(n.Cond)
		w.walkBlock(n.Then)
		w.walkBlock(n.Else)
	case rtl.For:
		if n.Init != nil {
			w.walkStmt(*n.Init)
		}
		w.walkExpr(n.Cond)
		if n.Step != nil {
			w.walkStmt(*n.Step)
		}
		w.walkBlock(n.Body)
	}
}

func (w *rtlWalker) walkLValue(e rtl.Expr) {
	switch n := e.(type) {
	case rtl.Ident:
		w.checkName(n.Name)
	case rtl.Index:
		w.checkIndexedName(n.Base)
		w.walkExpr(n.Index)
	case rtl.LaneIndex:
		w.checkIndexedName(n.Base)
		w.walkExpr(n.Elem)
		w.walkExpr(n.Lane)
	case rtl.FieldAccess:
		w.walkFieldAccess(n)
	}
}

func (w *rtlWalker) walkExpr(e rtl.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case rtl.Number:
	case rtl.Ident:
		w.checkName(n.Name)
	case rtl.FieldAccess:
		w.walkFieldAccess(n)
	case rtl.Index:
		w.checkIndexedName(n.Base)
		w.walkExpr(n.Index)
	case rtl.LaneIndex:
		w.checkIndexedName(n.Base)
		w.walkExpr(n.Elem)
		w.walkExpr(n.Lane)
	case rtl.Bitfield:
		w.walkExpr(n.Base)
		w.walkExpr(n.MSB)
		w.walkExpr(n.LSB)
	case rtl.Unary:
		w.walkExpr(n.X)
	case rtl.Binary:
		w.walkExpr(n.Left)
		w.walkExpr(n.Right)
	case rtl.Ternary:
		w.walkExpr(n.Cond)
		w.walkExpr(n.Then)
		w.walkExpr(n.Else)
	case rtl.Call:
		w.checkCall(n)
		for _, a := range n.Args {
			w.walkExpr(a)
		}
	}
}

func (w *rtlWalker) walkFieldAccess(n rtl.FieldAccess) {
	w.walkExpr(n.Base)
	base, ok := n.Base.(rtl.Ident)
	if !ok {
		return
	}
	reg, ok := w.ix.registers[base.Name]
	if !ok {
		return // already reported by checkName via walkExpr(n.Base)
	}
	if _, ok := reg.Fields[n.Field]; !ok {
		w.r.add(UnknownField, w.instr, "register %s has no field %s", base.Name, n.Field)
	}
}

func (w *rtlWalker) checkName(name string) {
	if name == "MEM" || w.operands[name] {
		return
	}
	if _, ok := w.ix.registers[name]; ok {
		return
	}
	// Unknown bare identifiers are treated as RTL temporaries (introduced
	// on first assignment, §4.6); only indexed/field accesses to unknown
	// registers are reference errors.
}

func (w *rtlWalker) checkIndexedName(base string) {
	if base == "MEM" {
		return
	}
	reg, ok := w.ix.registers[base]
	if !ok {
		w.r.add(RTLReferenceNotFound, w.instr, "indexed access to unknown register %s", base)
		return
	}
	if reg.Kind != model.RegisterFile && reg.Kind != model.RegisterVector {
		w.r.add(RTLReferenceNotFound, w.instr, "indexed access %s[...] targets a non-file register", base)
	}
}

var builtinArities = map[string][2]int{
	"sign_extend": {2, 3}, "sext": {2, 3}, "sx": {2, 3},
	"zero_extend": {2, 3}, "zext": {2, 3}, "zx": {2, 3},
	"extract_bits": {3, 3},
	"to_signed":    {2, 2}, "to_unsigned": {2, 2},
	"ssov": {2, 2}, "suov": {2, 2},
	"carry": {3, 3}, "borrow": {3, 3},
	"reverse16": {1, 1}, "leading_ones": {1, 1}, "leading_zeros": {1, 1}, "leading_signs": {1, 1},
}

func (w *rtlWalker) checkCall(n rtl.Call) {
	bounds, ok := builtinArities[n.Name]
	if !ok {
		w.r.add(BuiltinArity, w.instr, "unknown built-in %s", n.Name)
		return
	}
	if len(n.Args) < bounds[0] || len(n.Args) > bounds[1] {
		w.r.add(BuiltinArity, w.instr, "%s expects %d-%d arguments, got %d", n.Name, bounds[0], bounds[1], len(n.Args))
	}
	switch n.Name {
	case "sign_extend", "sext", "sx", "zero_extend", "zext", "zx":
		for _, a := range n.Args[1:] {
			if num, ok := a.(rtl.Number); ok {
				if num.Value < 1 || num.Value > 64 {
					w.r.add(BuiltinWidthOutOfRange, w.instr, "%s width constant %d outside [1,64]", n.Name, num.Value)
				}
			}
		}
	case "to_signed", "to_unsigned", "ssov", "suov":
		if len(n.Args) == 2 {
			if num, ok := n.Args[1].(rtl.Number); ok {
				if num.Value < 1 || num.Value > 64 {
					w.r.add(BuiltinWidthOutOfRange, w.instr, "%s width constant %d outside [1,64]", n.Name, num.Value)
				}
			}
		}
	}
}
