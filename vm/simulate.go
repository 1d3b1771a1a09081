package vm

import (
	"fmt"

	"github.com/isadsl/isadsl/model"
	"github.com/isadsl/isadsl/rtl"
)

// ExternalFunc implements an instruction's behavior when the instruction
// declares `external` instead of an RTL block (§3), analogous to the
// teacher's syscall-table registration pattern.
type ExternalFunc func(sim *Simulator, operands map[string]uint64) error

// memAdapter exposes an rtl.State's byte memory as vm.Memory for C8.
type memAdapter struct{ s *rtl.State }

func (m memAdapter) ReadByte(addr uint64) byte { return m.s.Mem[addr] }

// Simulator is C10's machine: registers, memory, PC, and the step cap
// enforced by the driver, grounded on the teacher's executor.go VM struct
// generalized from a fixed ARM register file to a model-driven one.
type Simulator struct {
	Arch       *model.Architecture
	Identifier *Identifier
	State      *rtl.State
	External   map[string]ExternalFunc

	StepCap int
	Halted  bool
	Steps   int
}

// NewSimulator builds a zero-initialized machine for arch, per §4.10.
func NewSimulator(arch *model.Architecture, stepCap int) *Simulator {
	regs := BuildRegisterState(arch)
	pcReg := "PC"
	if _, ok := regs[pcReg]; !ok {
		for name := range regs {
			pcReg = name
			break
		}
	}
	return &Simulator{
		Arch:       arch,
		Identifier: NewIdentifier(arch),
		State:      rtl.NewState(arch.WordSize, arch.Endianness == model.Big, regs, nil, map[string]uint64{}, pcReg),
		External:   map[string]ExternalFunc{},
		StepCap:    stepCap,
	}
}

// RegisterExternal binds name (an instruction declared `external`) to fn.
func (sim *Simulator) RegisterExternal(name string, fn ExternalFunc) {
	sim.External[name] = fn
}

func (sim *Simulator) pc() uint64 {
	return sim.State.Regs[sim.State.PCRegister].Value
}

// Run executes instructions from the current PC until halt, a decode
// error, or the step cap is reached (§4.10 step 4).
func (sim *Simulator) Run() error {
	for sim.StepCap <= 0 || sim.Steps < sim.StepCap {
		if sim.Halted {
			return nil
		}
		if err := sim.Step(); err != nil {
			return err
		}
		sim.Steps++
	}
	return nil
}

// Step fetches, identifies, decodes and executes exactly one instruction
// (or one bundle) at the current PC, per §4.10 steps 1-3.
func (sim *Simulator) Step() error {
	mem := memAdapter{sim.State}
	big := sim.Arch.Endianness == model.Big
	addr := sim.pc()

	d, derr := sim.Identifier.Identify(mem, addr, big)
	if derr != nil {
		return derr
	}

	if d.Instr.BundleFormatName != "" {
		if derr := sim.Identifier.DecodeBundleSlots(mem, addr, big, &d); derr != nil {
			return derr
		}
		for _, sub := range d.Slots {
			if err := sim.execute(sub); err != nil {
				return err
			}
		}
		sim.advancePC(d.Width)
		return nil
	}

	if err := sim.execute(d); err != nil {
		return err
	}
	if !sim.State.PCAssigned() {
		sim.advancePC(d.Width)
	}
	return nil
}

// execute runs one (non-bundle) decoded instruction's behavior, without
// advancing PC; bundle slots call this directly so PC advances exactly
// once per §4.10 step 2.
func (sim *Simulator) execute(d Decoded) error {
	prevOperands := sim.State.Operands
	sim.State.Operands = d.Operands
	defer func() { sim.State.Operands = prevOperands }()

	if d.Instr.ExternalBehavior {
		fn, ok := sim.External[d.Instr.Name]
		if !ok {
			return fmt.Errorf("vm: no external behavior registered for %s", d.Instr.Name)
		}
		return fn(sim, d.Operands)
	}
	if d.Instr.Behavior == nil {
		return nil
	}
	return rtl.Exec(d.Instr.Behavior, sim.State)
}

func (sim *Simulator) advancePC(widthBits int) {
	cur := sim.pc()
	_ = sim.State.SetScalar(sim.State.PCRegister, cur+uint64(widthBits/8))
}
