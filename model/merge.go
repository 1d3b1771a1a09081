package model

// MergeError reports a problem combining included units into one
// Architecture: an empty unit list, or a root unit that is not a full
// architecture file.
type MergeError struct {
	Path    string
	Message string
}

func (e *MergeError) Error() string { return e.Path + ": " + e.Message }

// Merge combines the root unit and every unit it (transitively) includes,
// in dsl.Resolve's depth-first preorder, into one Architecture.
//
// Two modes apply per included unit (§4.4):
//   - merge mode: a Partial file's registers/formats/bundle formats/
//     instructions/aliases are concatenated onto the accumulated
//     architecture in include order.
//   - inheritance mode: an included unit that is itself a full
//     `architecture { }` file acts as a base architecture; the
//     accumulator's existing entries (by name, within each collection)
//     take precedence, and the base contributes only the names the
//     accumulator does not already declare.
//
// The root unit must be a full architecture; its own declarations seed the
// accumulator before any include is folded in.
func Merge(units []*Unit) (*Architecture, *MergeError) {
	if len(units) == 0 {
		return nil, &MergeError{Path: "", Message: "no units to merge"}
	}
	root := units[0]
	if !root.IsArch {
		return nil, &MergeError{Path: root.Path, Message: "root file must declare an architecture block"}
	}

	acc := &Architecture{
		Name:       root.Arch.Name,
		WordSize:   root.Arch.WordSize,
		Endianness: root.Arch.Endianness,
	}
	acc.Registers = append(acc.Registers, root.Arch.Registers...)
	acc.Formats = append(acc.Formats, root.Arch.Formats...)
	acc.BundleFormats = append(acc.BundleFormats, root.Arch.BundleFormats...)
	acc.Instructions = append(acc.Instructions, root.Arch.Instructions...)
	acc.InstructionAliases = append(acc.InstructionAliases, root.Arch.InstructionAliases...)

	for _, u := range units[1:] {
		if u.IsArch {
			mergeInheritance(acc, u.Arch)
			continue
		}
		mergePartial(acc, u.Partial)
	}

	return acc, nil
}

func mergePartial(acc *Architecture, p *Partial) {
	acc.Registers = append(acc.Registers, p.Registers...)
	acc.Formats = append(acc.Formats, p.Formats...)
	acc.BundleFormats = append(acc.BundleFormats, p.BundleFormats...)
	acc.Instructions = append(acc.Instructions, p.Instructions...)
	acc.InstructionAliases = append(acc.InstructionAliases, p.InstructionAliases...)
}

func mergeInheritance(acc *Architecture, base *Architecture) {
	if acc.WordSize == 0 {
		acc.WordSize = base.WordSize
	}

	haveReg := names(acc.Registers, func(r Register) string { return r.Name })
	for _, r := range base.Registers {
		if !haveReg[r.Name] {
			acc.Registers = append(acc.Registers, r)
		}
	}

	haveFmt := names(acc.Formats, func(f Format) string { return f.Name })
	for _, f := range base.Formats {
		if !haveFmt[f.Name] {
			acc.Formats = append(acc.Formats, f)
		}
	}

	haveBundle := names(acc.BundleFormats, func(b BundleFormat) string { return b.Name })
	for _, b := range base.BundleFormats {
		if !haveBundle[b.Name] {
			acc.BundleFormats = append(acc.BundleFormats, b)
		}
	}

	haveInstr := names(acc.Instructions, func(i Instruction) string { return i.Name })
	for _, i := range base.Instructions {
		if !haveInstr[i.Name] {
			acc.Instructions = append(acc.Instructions, i)
		}
	}

	haveAlias := names(acc.InstructionAliases, func(a InstructionAlias) string { return a.Name })
	for _, a := range base.InstructionAliases {
		if !haveAlias[a.Name] {
			acc.InstructionAliases = append(acc.InstructionAliases, a)
		}
	}
}

func names[T any](items []T, key func(T) string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[key(it)] = true
	}
	return m
}
