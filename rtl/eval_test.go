package rtl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isadsl/isadsl/rtl"
)

func parseExec(t *testing.T, src string, s *rtl.State) {
	t.Helper()
	p := rtl.NewParser(src)
	block, err := p.ParseBlock()
	require.NoError(t, err)
	require.NoError(t, rtl.Exec(block, s))
}

func newTestState(wordSize int) *rtl.State {
	regs := map[string]*rtl.RegisterInfo{
		"rd":  {Name: "rd", Width: 32},
		"rs1": {Name: "rs1", Width: 32},
	}
	return rtl.NewState(wordSize, false, regs, nil, map[string]uint64{}, "PC")
}

func TestTernarySignedAbsoluteValue(t *testing.T) {
	s := newTestState(32)
	require.NoError(t, s.SetScalar("rs1", 0xF1))
	parseExec(t, `signed = to_signed(rs1[7:0], 8); rd = (signed >= 0) ? signed : (0 - signed);`, s)
	v, err := s.Regs["rd"].Value, error(nil)
	require.NoError(t, err)
	require.EqualValues(t, 15, v)
}

func TestBitfieldLaw(t *testing.T) {
	s := newTestState(32)
	for _, tc := range []struct {
		x        uint64
		msb, lsb int
		want     uint64
	}{
		{0xFF00, 15, 8, 0xFF},
		{0b110101, 4, 1, 0b1010},
	} {
		got := rtl.ExtractBits(tc.x, tc.msb, tc.lsb)
		require.Equal(t, tc.want, got)
	}
	_ = s
}

func TestSignExtendLaw(t *testing.T) {
	s := newTestState(32)
	require.NoError(t, s.SetScalar("rs1", 0x81)) // 8-bit: -127
	parseExec(t, `rd = sign_extend(rs1, 8);`, s)
	require.EqualValues(t, uint32(0xFFFFFF81), uint32(s.Regs["rd"].Value))
}

func TestDivByZero(t *testing.T) {
	s := newTestState(32)
	p := rtl.NewParser(`rd = rs1 / 0;`)
	block, err := p.ParseBlock()
	require.NoError(t, err)
	err = rtl.Exec(block, s)
	require.Error(t, err)
	rerr, ok := err.(*rtl.Error)
	require.True(t, ok)
	require.Equal(t, rtl.DivByZero, rerr.Kind)
}

func TestFieldWriteLeavesOtherBitsUnchanged(t *testing.T) {
	regs := map[string]*rtl.RegisterInfo{
		"PSW": {
			Name:  "PSW",
			Width: 32,
			Fields: map[string]rtl.BitRangeSpec{
				"V": {LSB: 30, MSB: 30},
			},
		},
	}
	s := rtl.NewState(32, false, regs, nil, map[string]uint64{}, "PC")
	require.NoError(t, s.SetScalar("PSW", 0x12345678))
	require.NoError(t, s.SetField("PSW", "V", 1))
	require.EqualValues(t, 0x52345678, s.Regs["PSW"].Value)
}

func TestExtractBitsFullWidth(t *testing.T) {
	require.True(t, rtl.ExtractBits(0xFFFFFFFF, 31, 0) == 0xFFFFFFFF)
}

func TestMemoryRoundTrip(t *testing.T) {
	s := newTestState(32)
	p := rtl.NewParser(`MEM[0] = rs1;`)
	block, err := p.ParseBlock()
	require.NoError(t, err)
	require.NoError(t, s.SetScalar("rs1", 0xAABBCCDD))
	require.NoError(t, rtl.Exec(block, s))
	require.EqualValues(t, 0xAABBCCDD, s.MemRead(0, 4))
}
