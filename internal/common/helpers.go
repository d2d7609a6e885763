package common

import (
	"fmt"
	"math/big"
	"math/bits"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	SOLDecimals  = 9 // SOL has 9 decimals (lamports)
	USDCDecimals = 6 // USDC has 6 decimals (micro)

	// BPSDenominator is 100% in basis points.
	BPSDenominator = 10_000
)

// LamportsToSOL converts lamports to SOL string without float precision loss
func LamportsToSOL(lamports uint64) string {
	return formatWithDecimals(lamports, SOLDecimals)
}

// SOLToLamports converts SOL string to lamports without float precision loss
func SOLToLamports(sol string) (uint64, error) {
	return parseWithDecimals(sol, SOLDecimals)
}

// MicroToUSDC converts micro units to USDC string without float precision loss
func MicroToUSDC(micro uint64) string {
	return formatWithDecimals(micro, USDCDecimals)
}

// USDCToMicro converts USDC string to micro units without float precision loss
func USDCToMicro(usdc string) (uint64, error) {
	return parseWithDecimals(usdc, USDCDecimals)
}

// ValueOf prices amount base units of an asset with the given decimals at
// rate quote units per whole unit, rounded to cents.
// Example: ValueOf(1_500_000_000, SOLDecimals, "151.24") = "226.86"
func ValueOf(amount uint64, decimals int32, rate string) (string, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return "", fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	units := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals)
	return units.Mul(r).StringFixed(2), nil
}

// BPSFee returns floor(amount * bps / 10000). bps above 10000 is rejected.
func BPSFee(amount uint64, bps uint16) (uint64, error) {
	if bps > BPSDenominator {
		return 0, fmt.Errorf("fee of %d bps exceeds 100%%", bps)
	}
	hi, lo := bits.Mul64(amount, uint64(bps))
	fee, _ := bits.Div64(hi, lo, BPSDenominator)
	return fee, nil
}

// formatWithDecimals converts integer to decimal string by inserting decimal point
// Example: formatWithDecimals(24981836, 9) = "0.024981836"
func formatWithDecimals(value uint64, decimals int) string {
	s := strconv.FormatUint(value, 10)

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	pos := len(s) - decimals
	return s[:pos] + "." + s[pos:]
}

// parseWithDecimals converts decimal string to integer by removing decimal point
// Example: parseWithDecimals("0.024981836", 9) = 24981836
func parseWithDecimals(s string, decimals int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}

	whole, frac, found := strings.Cut(s, ".")
	if found && strings.Contains(frac, ".") {
		return 0, fmt.Errorf("invalid decimal format")
	}
	if whole == "" {
		whole = "0"
	}

	// Pad or truncate fractional part to exact decimals
	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else if len(frac) > decimals {
		frac = frac[:decimals]
	}

	n, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return n, nil
}
