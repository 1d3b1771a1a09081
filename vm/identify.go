// Package vm implements C8 (two-step instruction identification/decode)
// and C10 (the fetch/identify/decode/execute simulator loop), grounded on
// the teacher's executor.go main loop and trace.go step/halt bookkeeping,
// generalized from a fixed ARM32 fetch-decode-execute cycle to a
// model-driven, variable-width, bundle-aware one.
package vm

import (
	"github.com/isadsl/isadsl/model"
)

// Memory is the byte-addressed address space C8/C10 read from. Out-of-
// range reads return zero, matching §4.6's memory semantics.
type Memory interface {
	ReadByte(addr uint64) byte
}

// Identifier groups an architecture's instructions by format width and
// resolves format/bundle-format names, so Identify doesn't re-scan the
// architecture on every fetch.
type Identifier struct {
	arch    *model.Architecture
	formats map[string]*model.Format
	bundles map[string]*model.BundleFormat

	// allWidths/allByWidth cover every instruction (bundle and non-bundle
	// alike, per §4.8: "Bundle instructions are candidates too"), used for
	// the outer fetch.
	allWidths  []int
	allByWidth map[int][]*model.Instruction

	// plainWidths/plainByWidth exclude bundle instructions, used when
	// recursively identifying one bundle slot's sub-instruction (§4.8:
	// "slot-local identification... excludes bundle instructions").
	plainWidths  []int
	plainByWidth map[int][]*model.Instruction
}

// NewIdentifier builds the width-grouped candidate tables described by
// §4.8's "Setup" step.
func NewIdentifier(arch *model.Architecture) *Identifier {
	id := &Identifier{
		arch:         arch,
		formats:      map[string]*model.Format{},
		bundles:      map[string]*model.BundleFormat{},
		allByWidth:   map[int][]*model.Instruction{},
		plainByWidth: map[int][]*model.Instruction{},
	}
	for i := range arch.Formats {
		id.formats[arch.Formats[i].Name] = &arch.Formats[i]
	}
	for i := range arch.BundleFormats {
		id.bundles[arch.BundleFormats[i].Name] = &arch.BundleFormats[i]
	}
	seenAll := map[int]bool{}
	seenPlain := map[int]bool{}
	for i := range arch.Instructions {
		instr := &arch.Instructions[i]
		fmtDef, ok := id.formats[instr.FormatName]
		if !ok {
			continue
		}
		id.allByWidth[fmtDef.Width] = append(id.allByWidth[fmtDef.Width], instr)
		if !seenAll[fmtDef.Width] {
			id.allWidths = append(id.allWidths, fmtDef.Width)
			seenAll[fmtDef.Width] = true
		}
		if instr.BundleFormatName == "" {
			id.plainByWidth[fmtDef.Width] = append(id.plainByWidth[fmtDef.Width], instr)
			if !seenPlain[fmtDef.Width] {
				id.plainWidths = append(id.plainWidths, fmtDef.Width)
				seenPlain[fmtDef.Width] = true
			}
		}
	}
	sortInts(id.allWidths)
	sortInts(id.plainWidths)
	return id
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// loadBits reads ceil(nbits/8) bytes starting at addr, respecting
// endianness, and returns them right-aligned, masked to nbits.
func loadBits(mem Memory, addr uint64, nbits int, big bool) uint64 {
	nbytes := (nbits + 7) / 8
	var v uint64
	for i := 0; i < nbytes; i++ {
		b := uint64(mem.ReadByte(addr + uint64(i)))
		if big {
			v = (v << 8) | b
		} else {
			v |= b << uint(i*8)
		}
	}
	if nbits < nbytes*8 {
		v &= (uint64(1) << uint(nbits)) - 1
	}
	return v
}

func fieldValue(word uint64, ff model.FormatField) uint64 {
	return (word >> uint(ff.Range.LSB)) & ((uint64(1) << uint(ff.Range.Width())) - 1)
}

// identificationFields returns f's declared identification fields, or,
// absent a declaration, every field some candidate instruction fixes in
// its encoding (mirrors validate's default, §3).
func identificationFields(f *model.Format, candidates []*model.Instruction) []string {
	if len(f.IdentificationFields) > 0 {
		return f.IdentificationFields
	}
	set := map[string]bool{}
	for _, instr := range candidates {
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

func expectedValue(instr *model.Instruction, ff model.FormatField) (uint64, bool) {
	if ff.HasConst {
		return ff.Const, true
	}
	if v, ok := instr.Encoding[ff.Name]; ok {
		return v, true
	}
	return 0, false
}

func matches(word uint64, fmtDef *model.Format, instr *model.Instruction, idFields []string) bool {
	for _, name := range idFields {
		ff, ok := fmtDef.FieldByName(name)
		if !ok {
			return false
		}
		want, ok := expectedValue(instr, ff)
		if !ok {
			continue
		}
		if fieldValue(word, ff) != want {
			return false
		}
	}
	return true
}

// Decoded is one identified instruction with its extracted operand values;
// Width is the full encoded width (the bundle format's width for a bundle
// instruction, the format's width otherwise). Slots holds the decoded
// sub-instructions of a bundle, in slot declaration order.
type Decoded struct {
	Instr    *model.Instruction
	Width    int
	Operands map[string]uint64
	Slots    []Decoded
}

// Identify runs §4.8's two-step algorithm at addr against every
// instruction (bundle and non-bundle alike).
func (id *Identifier) Identify(mem Memory, addr uint64, big bool) (Decoded, *DecodeError) {
	return id.identifyAmong(mem, addr, big, id.allWidths, id.allByWidth)
}

// identifySlot restricts candidates to non-bundle instructions whose
// format width equals the slot width exactly, per §4.8's bundle-decoding
// rule (slot-local identification excludes bundle instructions).
func (id *Identifier) identifySlot(mem Memory, addr uint64, big bool, slotWidth int) (Decoded, *DecodeError) {
	cands, ok := id.plainByWidth[slotWidth]
	if !ok || len(cands) == 0 {
		return Decoded{}, decodeErrf(NoMatch, addr, "no instructions of width %d for slot", slotWidth)
	}
	return id.identifyAmong(mem, addr, big, []int{slotWidth}, map[int][]*model.Instruction{slotWidth: cands})
}

func (id *Identifier) identifyAmong(mem Memory, addr uint64, big bool, widths []int, byWidth map[int][]*model.Instruction) (Decoded, *DecodeError) {
	for _, w := range widths {
		candidates := byWidth[w]
		if len(candidates) == 0 {
			continue
		}
		word := loadBits(mem, addr, w, big)

		var matched []*model.Instruction
		for _, instr := range candidates {
			fmtDef := id.formats[instr.FormatName]
			idFields := identificationFields(fmtDef, candidates)
			if matches(word, fmtDef, instr, idFields) {
				matched = append(matched, instr)
			}
		}
		if len(matched) == 1 {
			return id.decodeOperands(matched[0], word, w)
		}
		if len(matched) > 1 {
			return Decoded{}, decodeErrf(Ambiguous, addr, "width %d: %d candidates match (%v)", w, len(matched), instrNames(matched))
		}
	}
	return Decoded{}, decodeErrf(NoMatch, addr, "no candidate format width matched")
}

func instrNames(instrs []*model.Instruction) []string {
	names := make([]string, len(instrs))
	for i, in := range instrs {
		names[i] = in.Name
	}
	return names
}

func (id *Identifier) decodeOperands(instr *model.Instruction, word uint64, formatWidth int) (Decoded, *DecodeError) {
	fmtDef := id.formats[instr.FormatName]
	width := formatWidth
	if instr.BundleFormatName != "" {
		if bf, ok := id.bundles[instr.BundleFormatName]; ok {
			width = bf.Width
		}
	}

	d := Decoded{Instr: instr, Width: width, Operands: map[string]uint64{}}
	for _, op := range instr.Operands {
		if op.Kind == model.OperandSimple {
			ff, ok := fmtDef.FieldByName(op.FieldNames[0])
			if !ok {
				continue
			}
			d.Operands[op.Name] = fieldValue(word, ff)
			continue
		}
		var val uint64
		shift := uint(0)
		for _, fieldName := range op.FieldNames {
			ff, ok := fmtDef.FieldByName(fieldName)
			if !ok {
				continue
			}
			val |= fieldValue(word, ff) << shift
			shift += uint(ff.Range.Width())
		}
		d.Operands[op.Name] = val
	}
	return d, nil
}

// DecodeBundleSlots fills in d.Slots by recursively identifying one
// sub-instruction per slot of d.Instr's bundle format, at addr plus the
// slot's byte offset (§4.8's bundle-decoding rule). d must already be a
// bundle instruction's Decoded result (from Identify).
func (id *Identifier) DecodeBundleSlots(mem Memory, addr uint64, big bool, d *Decoded) *DecodeError {
	bundleFmt, ok := id.bundles[d.Instr.BundleFormatName]
	if !ok {
		return decodeErrf(NoMatch, addr, "unknown bundle format %s", d.Instr.BundleFormatName)
	}
	for _, slot := range bundleFmt.Slots {
		slotAddr := addr + uint64(slot.Range.LSB/8)
		sub, derr := id.identifySlot(mem, slotAddr, big, slot.Range.Width())
		if derr != nil {
			return derr
		}
		d.Slots = append(d.Slots, sub)
	}
	return nil
}
