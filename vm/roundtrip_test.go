package vm_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/isadsl/isadsl/encoder"
	"github.com/isadsl/isadsl/vm"
)

type byteMem []byte

func (m byteMem) ReadByte(addr uint64) byte {
	if addr >= uint64(len(m)) {
		return 0
	}
	return m[addr]
}

func writeWord(mem byteMem, addr uint64, word uint64, widthBits int, big bool) {
	n := widthBits / 8
	for i := 0; i < n; i++ {
		shift := uint(i * 8)
		if big {
			shift = uint((n - 1 - i) * 8)
		}
		mem[int(addr)+i] = byte(word >> shift)
	}
}

// TestPackIdentifyRoundTrip exercises C7 (pack) feeding straight into C8
// (identify/decode): for a range of operand values, the word Pack produces
// must decode back to the same operand values via Identify.
func TestPackIdentifyRoundTrip(t *testing.T) {
	arch := buildArch(t, toySrc)
	ix := encoder.NewIndex(arch)
	id := vm.NewIdentifier(arch)
	instr := &arch.Instructions[0] // ADD

	cases := []map[string]uint64{
		{"rd": 0, "rs1": 0, "rs2": 0},
		{"rd": 1, "rs1": 2, "rs2": 3},
		{"rd": 15, "rs1": 15, "rs2": 15},
		{"rd": 7, "rs1": 0, "rs2": 15},
	}

	for _, operands := range cases {
		word, width, perr := ix.Pack(instr, operands)
		require.Nil(t, perr)

		mem := make(byteMem, width/8)
		writeWord(mem, 0, word, width, false)

		dec, derr := id.Identify(mem, 0, false)
		require.Nil(t, derr)
		require.Equal(t, instr.Name, dec.Instr.Name)

		if diff := cmp.Diff(operands, dec.Operands); diff != "" {
			t.Errorf("operand round-trip mismatch (-want +got):\n%s", diff)
		}
	}
}
