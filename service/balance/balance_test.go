package balance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		amount   uint64
		decimals uint8
		want     string
	}{
		{"nine decimals", 1234567890, 9, "1.234567890"},
		{"grouped integer part", 1234567000000, 3, "1,234,567,000.000"},
		{"zero decimals", 1234567, 0, "1,234,567"},
		{"zero amount", 0, 6, "0.000000"},
		{"sub unit", 5, 6, "0.000005"},
		{"exactly three digits", 999, 0, "999"},
		{"four digits", 1000, 0, "1,000"},
		{"max uint64", math.MaxUint64, 0, "18,446,744,073,709,551,615"},
		{"max uint64 with decimals", math.MaxUint64, 9, "18,446,744,073.709551615"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.amount, tt.decimals))
		})
	}
}

func TestFormatSOL(t *testing.T) {
	assert.Equal(t, "2.500000000", FormatSOL(2_500_000_000))
}

func TestFormatInteger(t *testing.T) {
	assert.Equal(t, "48,000,000", FormatInteger(48_000_000))
	assert.Equal(t, "12", FormatInteger(12))
}

func TestSplitLamports(t *testing.T) {
	whole, frac := SplitLamports(12_345_678_901)
	assert.Equal(t, int64(12), whole)
	assert.Equal(t, int64(345_678_901), frac)

	whole, frac = SplitLamports(999)
	assert.Equal(t, int64(0), whole)
	assert.Equal(t, int64(999), frac)
}
