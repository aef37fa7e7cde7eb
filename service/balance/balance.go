// Package balance renders raw on-chain integer amounts as human-readable
// decimal strings.
package balance

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// SOLDecimals is the decimal precision of native SOL.
const SOLDecimals = 9

// Format renders amount shifted by decimals, with exactly decimals digits
// after the point and thousands separators in the integer part.
//
//	Format(1234567890, 9)    -> "1.234567890"
//	Format(1234567000000, 3) -> "1,234,567,000.000"
//	Format(1234567, 0)       -> "1,234,567"
func Format(amount uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	s := d.StringFixed(int32(decimals))

	whole, frac, hasFrac := strings.Cut(s, ".")
	whole = group(whole)
	if !hasFrac {
		return whole
	}
	return whole + "." + frac
}

// FormatSOL renders lamports as SOL.
func FormatSOL(lamports uint64) string {
	return Format(lamports, SOLDecimals)
}

// FormatInteger renders n with thousands separators.
func FormatInteger(n uint64) string {
	return group(new(big.Int).SetUint64(n).String())
}

// SplitLamports splits a lamport amount into whole SOL and the remaining lamports.
func SplitLamports(lamports int64) (whole, frac int64) {
	return lamports / LamportsPerSOL, lamports % LamportsPerSOL
}

// group inserts a comma every 3 digits from the right.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var result []byte
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digits[i])
	}
	return string(result)
}
