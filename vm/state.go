package vm

import (
	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/rtl"
)

// BuildRegisterState translates a validated Architecture's register
// declarations into the rtl package's runtime representation, zero-
// initialized, per §4.10 ("all registers initialized to zero"). This is
// the one place model.Register (static, validated) is lowered into
// rtl.RegisterInfo (mutable, per-instance); rtl deliberately has no
// dependency on model to avoid an import cycle (§9).
func BuildRegisterState(arch *model.Architecture) map[string]*rtl.RegisterInfo {
	regs := make(map[string]*rtl.RegisterInfo, len(arch.Registers))
	for _, r := range arch.Registers {
		ri := &rtl.RegisterInfo{Name: r.Name, Width: r.Width}
		switch r.Kind {
		case model.RegisterFile:
			ri.IsFile = true
			ri.Count = r.Count
			ri.Elems = make([]uint64, r.Count)
		case model.RegisterVector:
			ri.IsFile = true
			ri.IsVector = true
			ri.Count = r.Count
			ri.LaneWidth = r.LaneWidth
			ri.LaneCount = r.LaneCount
			ri.Elems = make([]uint64, r.Count)
		case model.RegisterVirtual:
			ri.IsVirtual = true
			for _, c := range r.Components {
				ri.Components = append(ri.Components, rtl.VirtualComponent{
					RegisterName: c.RegisterName,
					IsFileIndex:  c.IsFileIndex,
					Index:        c.Index,
					Width:        c.Width,
				})
			}
		case model.RegisterAlias:
			ri.IsAlias = true
			ri.AliasOf = r.AliasTarget
			if r.AliasTargetIndex >= 0 {
				ri.AliasIsFileIndex = true
				ri.AliasIndex = r.AliasTargetIndex
			}
		}
		if len(r.Fields) > 0 {
			ri.Fields = make(map[string]rtl.BitRangeSpec, len(r.Fields))
			for name, f := range r.Fields {
				ri.Fields[name] = rtl.BitRangeSpec{LSB: f.Range.LSB, MSB: f.Range.MSB}
			}
		}
		regs[r.Name] = ri
	}

	// Virtual components' Width is looked up from their target register
	// after every register exists, since components may reference a
	// register declared later in the file.
	for _, r := range arch.Registers {
		if r.Kind != model.RegisterVirtual {
			continue
		}
		ri := regs[r.Name]
		for i, c := range r.Components {
			if target, ok := regs[c.RegisterName]; ok {
				ri.Components[i].Width = target.Width
			}
		}
	}

	return regs
}
