package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SatsPerCoin is the number of base-currency satoshis in one whole coin.
const SatsPerCoin = 100_000_000

const coinPrecision = 8

// FormatCoins renders a satoshi amount as whole coins, trailing zeros stripped.
func FormatCoins(sats int64) string {
	d := decimal.NewFromInt(sats).Div(decimal.NewFromInt(SatsPerCoin))
	return trimZeros(d.StringFixed(coinPrecision))
}

// FormatScaled renders raw/scale as a decimal string, trailing zeros stripped.
// Used for oracle prices (priceRaw over priceScale) and token display units.
func FormatScaled(raw, scale int64) string {
	if scale == 0 {
		return "0"
	}
	d := decimal.NewFromInt(raw).Div(decimal.NewFromInt(scale))
	return trimZeros(d.StringFixed(coinPrecision))
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// AbsDiff returns |a - b| without overflow for the magnitudes this
// system handles (amounts bounded by the protocol's supply caps).
func AbsDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
