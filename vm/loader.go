package vm

// LoadProgram writes an assembled instruction stream into a Simulator's
// memory starting at loadAddr and sets PC to entryAddr, the minimal
// load step implied by §6's binary format (concatenated instruction
// words, no headers, no segments, no data directives). Grounded on the
// teacher's loader.go entry-point setup, generalized from its ARM
// memory-segment/directive bookkeeping (now handled entirely by the
// assembler producing a flat byte stream, §6) down to a plain byte copy.
func LoadProgram(sim *Simulator, program []byte, loadAddr, entryAddr uint64) {
	for i, b := range program {
		sim.State.Mem[loadAddr+uint64(i)] = b
	}
	_ = sim.State.SetScalar(sim.State.PCRegister, entryAddr)
}
