// Package encoder implements C7, the Packer: it turns an instruction name
// plus concrete operand integers into a fixed-width encoded word, following
// §4.7's five-step algorithm. Grounded on the teacher's encoder.go (a
// mnemonic-keyed switch producing a uint32), generalized here into a
// format-field-table walk driven by the model instead of a fixed ARM
// opcode map.
package encoder

import (
	"github.com/isadsl/isadsl/model"
)

// Index resolves instruction, format, and bundle format names to their
// model entities, mirroring validate's lookup table (§9's "resolve by
// name into indices eagerly" design note).
type Index struct {
	arch      *model.Architecture
	formats   map[string]*model.Format
	bundles   map[string]*model.BundleFormat
	instrs    map[string]*model.Instruction
}

// NewIndex builds the lookup tables once so repeated Pack/PackBundle calls
// don't re-scan the architecture's slices.
func NewIndex(arch *model.Architecture) *Index {
	ix := &Index{arch: arch, formats: map[string]*model.Format{}, bundles: map[string]*model.BundleFormat{}, instrs: map[string]*model.Instruction{}}
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

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// writeField ORs value (masked to the field's width) into word at the
// field's bit range, failing if the value doesn't fit or the field is
// already a format constant.
func writeField(word uint64, ff model.FormatField, value uint64, context string) (uint64, *Error) {
	if ff.HasConst {
		return 0, errf(Overwrite, context, "field %s is a format constant and cannot be written by an instruction", ff.Name)
	}
	if value > mask(ff.Range.Width()) {
		return 0, errf(FieldOverflow, context, "value %d does not fit field %s (%d bits)", value, ff.Name, ff.Range.Width())
	}
	return word | (value << uint(ff.Range.LSB)), nil
}

// Pack encodes one instruction given its decoded operand values, keyed by
// operand name, following §4.7 steps 1-4. It does not handle bundling;
// see PackBundle.
func (ix *Index) Pack(instr *model.Instruction, operands map[string]uint64) (uint64, int, *Error) {
	fmtDef, ok := ix.formats[instr.FormatName]
	if !ok {
		return 0, 0, errf(FieldOverflow, instr.Name, "unknown format %s", instr.FormatName)
	}

	var word uint64
	for _, ff := range fmtDef.Fields {
		if ff.HasConst {
			word |= ff.Const << uint(ff.Range.LSB)
		}
	}
	for fieldName, val := range instr.Encoding {
		ff, ok := fmtDef.FieldByName(fieldName)
		if !ok {
			return 0, 0, errf(FieldOverflow, instr.Name, "encoding references unknown field %s", fieldName)
		}
		if ff.HasConst && val != ff.Const {
			return 0, 0, errf(Overwrite, instr.Name, "encoding conflicts with format constant field %s", fieldName)
		}
		if val > mask(ff.Range.Width()) {
			return 0, 0, errf(FieldOverflow, instr.Name, "encoding value %d does not fit field %s", val, fieldName)
		}
		word |= val << uint(ff.Range.LSB)
	}

	for _, op := range instr.Operands {
		val, ok := operands[op.Name]
		if !ok {
			return 0, 0, errf(FieldOverflow, instr.Name, "missing value for operand %s", op.Name)
		}
		if op.Kind == model.OperandSimple {
			ff, ok := fmtDef.FieldByName(op.FieldNames[0])
			if !ok {
				return 0, 0, errf(FieldOverflow, instr.Name, "operand %s references unknown field", op.Name)
			}
			var werr *Error
			word, werr = writeField(word, ff, val, instr.Name)
			if werr != nil {
				return 0, 0, werr
			}
			continue
		}

		// Distributed: split val into consecutive groups matching each
		// field's width, LSB-first in declaration order (f1 lowest).
		shift := uint(0)
		remaining := val
		for _, fieldName := range op.FieldNames {
			ff, ok := fmtDef.FieldByName(fieldName)
			if !ok {
				return 0, 0, errf(FieldOverflow, instr.Name, "distributed operand %s references unknown field %s", op.Name, fieldName)
			}
			w := ff.Range.Width()
			group := remaining & mask(w)
			remaining >>= uint(w)
			var werr *Error
			word, werr = writeField(word, ff, group, instr.Name)
			if werr != nil {
				return 0, 0, werr
			}
			shift += uint(w)
		}
		if remaining != 0 {
			return 0, 0, errf(FieldOverflow, instr.Name, "operand %s value %d overflows its distributed fields (%d total bits)", op.Name, val, shift)
		}
	}

	return word, fmtDef.Width, nil
}

// SubInstruction is one bundle slot's contribution: the sub-instruction
// name and its operand values.
type SubInstruction struct {
	Name     string
	Operands map[string]uint64
}

// PackBundle encodes a bundle instruction's own identifying bits plus a
// sequence of sub-instructions, one per declared slot, per §4.7's bundle
// algorithm.
func (ix *Index) PackBundle(bundleInstr *model.Instruction, subs []SubInstruction) (uint64, int, *Error) {
	bundleFmt, ok := ix.bundles[bundleInstr.BundleFormatName]
	if !ok {
		return 0, 0, errf(FieldOverflow, bundleInstr.Name, "unknown bundle format %s", bundleInstr.BundleFormatName)
	}
	fmtDef, ok := ix.formats[bundleInstr.FormatName]
	if !ok {
		return 0, 0, errf(FieldOverflow, bundleInstr.Name, "unknown format %s", bundleInstr.FormatName)
	}

	var word uint64
	for _, ff := range fmtDef.Fields {
		if ff.HasConst {
			word |= ff.Const << uint(ff.Range.LSB)
		}
	}
	for fieldName, val := range bundleInstr.Encoding {
		ff, ok := fmtDef.FieldByName(fieldName)
		if !ok {
			return 0, 0, errf(FieldOverflow, bundleInstr.Name, "encoding references unknown field %s", fieldName)
		}
		word |= (val & mask(ff.Range.Width())) << uint(ff.Range.LSB)
	}

	if len(subs) != len(bundleFmt.Slots) {
		return 0, 0, errf(BundleFitError, bundleInstr.Name, "expected %d sub-instructions, got %d", len(bundleFmt.Slots), len(subs))
	}

	for i, slot := range bundleFmt.Slots {
		sub := subs[i]
		subInstr, ok := ix.instrs[sub.Name]
		if !ok {
			return 0, 0, errf(BundleFitError, bundleInstr.Name, "slot %s: unknown sub-instruction %s", slot.Name, sub.Name)
		}
		subWord, subWidth, perr := ix.Pack(subInstr, sub.Operands)
		if perr != nil {
			return 0, 0, perr
		}
		if subWidth > slot.Range.Width() {
			return 0, 0, errf(BundleFitError, bundleInstr.Name, "slot %s: sub-instruction %s width %d exceeds slot width %d", slot.Name, sub.Name, subWidth, slot.Range.Width())
		}
		word |= (subWord & mask(subWidth)) << uint(slot.Range.LSB)
	}

	return word, bundleFmt.Width, nil
}
