// Package model defines the typed, arena-indexed representation of an ISA:
// architectures, registers, formats, bundle formats, instructions and
// instruction aliases. Entities are built by Build, merged by Merge,
// and frozen once validate.Validate succeeds; C6-C11 only read them
// afterwards.
package model

import "github.com/isadsl/isadsl/rtl"

// Endianness is the byte order of an architecture's word storage.
type Endianness int

const (
	Little Endianness = iota
	Big
)

func (e Endianness) String() string {
	if e == Big {
		return "big"
	}
	return "little"
}

// BitRange is an inclusive [lsb, msb] bit range with lsb <= msb.
type BitRange struct {
	LSB int
	MSB int
}

// Width returns the number of bits spanned by the range.
func (r BitRange) Width() int {
	return r.MSB - r.LSB + 1
}

// Overlaps reports whether two bit ranges share any bit position.
func (r BitRange) Overlaps(o BitRange) bool {
	return r.LSB <= o.MSB && o.LSB <= r.MSB
}

// RegisterKind tags which variant of §3 a Register value holds.
type RegisterKind int

const (
	RegisterScalar RegisterKind = iota
	RegisterFile
	RegisterVector
	RegisterVirtual
	RegisterAlias
)

// Field is a named, non-overlapping bit slice within a register, behaving
// like a C union member of the backing word.
type Field struct {
	Name  string
	Range BitRange
}

// VirtualComponent references one element contributing bits to a virtual
// register, LSB-first in declaration order.
type VirtualComponent struct {
	// RegisterName is the scalar register or register file this component
	// draws from.
	RegisterName string
	// IsFileIndex marks whether Index selects an element of a register file
	// (true) or the component is the scalar register itself (false).
	IsFileIndex bool
	Index       int
	Width       int
}

// Register is a tagged variant covering every register form in §3.
type Register struct {
	Kind RegisterKind
	Name string

	// Scalar / file / vector / virtual width (file: per-element width).
	Width int
	// File / vector count; 0 means "not a file".
	Count int
	// Vector lane width and lane count (Width = LaneWidth*LaneCount).
	LaneWidth int
	LaneCount int

	// Virtual register composition, LSB-first.
	Components []VirtualComponent

	// Alias target (register name, plus optional file index; -1 = not indexed).
	AliasTarget      string
	AliasTargetIndex int

	// Declared bit fields, keyed by name for O(1) lookup, plus declaration
	// order for stable iteration (docs, errors).
	Fields     map[string]Field
	FieldOrder []string
}

// FormatField is one named, optionally-constant bit slice of a Format.
type FormatField struct {
	Name     string
	Range    BitRange
	HasConst bool
	Const    uint64
}

// Format describes the fixed bit layout shared by one or more instructions.
type Format struct {
	Name   string
	Width  int
	Fields []FormatField

	// IdentificationFields names the subset of Fields (by name) compared
	// during two-step decode. Empty means "all fields that appear in some
	// instruction's encoding"; validate and vm each compute that default
	// where they use it, and this field stays empty.
	IdentificationFields []string
}

// FieldByName returns the format field with the given name, if any.
func (f *Format) FieldByName(name string) (FormatField, bool) {
	for _, ff := range f.Fields {
		if ff.Name == name {
			return ff, true
		}
	}
	return FormatField{}, false
}

// Slot is one non-overlapping sub-instruction region of a BundleFormat.
type Slot struct {
	Name  string
	Range BitRange
}

// BundleFormat describes the slot layout of a bundle word.
type BundleFormat struct {
	Name   string
	Width  int
	Slots  []Slot
	HasInstructionStart bool
	InstructionStart    int

	IdentificationFields []string
}

// OperandKind distinguishes a simple operand (one format field) from a
// distributed operand (concatenation of several fields).
type OperandKind int

const (
	OperandSimple OperandKind = iota
	OperandDistributed
)

// Operand is one entry of an instruction's operand list.
type Operand struct {
	Name string
	Kind OperandKind
	// FieldNames holds the one field (simple) or the ordered field list
	// (distributed, declaration order f1..fn; value reconstructs as
	// fn ∘ ... ∘ f1, LSB to MSB).
	FieldNames []string
}

// Instruction is one mnemonic: a format binding, fixed encoding, operand
// list, optional assembly template and optional RTL behavior.
type Instruction struct {
	Name string

	FormatName       string
	BundleFormatName string // empty if not a bundle instruction

	// Encoding maps format field name to its fixed constant for this
	// instruction (distinct from format-level constants, §3).
	Encoding map[string]uint64

	Operands []Operand

	// AsmTemplate is a .format-style template; empty means "use the
	// default MNEMONIC op1, op2, ... rendering" (§4.11).
	AsmTemplate string

	// Behavior is the parsed RTL block; nil if ExternalBehavior is true.
	Behavior *rtl.Block

	// RawBehavior is Behavior's original source text, kept for
	// documentation rendering (docgen) since the AST has no printer.
	RawBehavior string

	ExternalBehavior bool
}

// InstructionAlias is an alternate mnemonic for an existing instruction.
type InstructionAlias struct {
	Name           string
	TargetName     string
	AsmTemplate    string
	DeclaredOperands []string
}

// Architecture is the top-level container described by one ISA-DSL file
// (after include resolution and merge/inheritance).
type Architecture struct {
	Name       string
	WordSize   int
	Endianness Endianness

	Registers          []Register
	Formats            []Format
	BundleFormats      []BundleFormat
	Instructions       []Instruction
	InstructionAliases []InstructionAlias
}
