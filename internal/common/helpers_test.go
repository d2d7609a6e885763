package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatting(t *testing.T) {
	assert.Equal(t, "0.024981836", LamportsToSOL(24_981_836))
	assert.Equal(t, "1.000000", MicroToUSDC(1_000_000))
	assert.Equal(t, "0.000001", MicroToUSDC(1))
	assert.Equal(t, "0.000000", MicroToUSDC(0))
}

func TestParsing(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"1", 1_000_000},
		{"1.5", 1_500_000},
		{" 0.796 ", 796_000},
		{".25", 250_000},
		{"0.0000019", 1},
	}
	for _, tt := range tests {
		got, err := USDCToMicro(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	lamports, err := SOLToLamports("0.000001333")
	require.NoError(t, err)
	assert.Equal(t, uint64(1_333), lamports)

	for _, bad := range []string{"", "1.2.3", "abc", "-1", "99999999999999999999"} {
		_, err := USDCToMicro(bad)
		assert.Error(t, err, bad)
	}
}

func TestBPSFee(t *testing.T) {
	fee, err := BPSFee(800_000, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(4_000), fee)

	fee, err = BPSFee(199, 50)
	require.NoError(t, err)
	assert.Zero(t, fee, "floor")

	fee, err = BPSFee(math.MaxUint64, BPSDenominator)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), fee)

	_, err = BPSFee(1, BPSDenominator+1)
	assert.Error(t, err)
}

func TestValueOf(t *testing.T) {
	v, err := ValueOf(1_500_000_000, SOLDecimals, "151.24")
	require.NoError(t, err)
	assert.Equal(t, "226.86", v)

	v, err = ValueOf(1_333, SOLDecimals, "150")
	require.NoError(t, err)
	assert.Equal(t, "0.00", v)

	_, err = ValueOf(1, SOLDecimals, "abc")
	assert.Error(t, err)
}
