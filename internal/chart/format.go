package chart

import (
	"math/big"
	"strconv"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"klinechart/internal/domain"
)

// Placeholder is rendered in place of a missing or unparseable number.
const Placeholder = "-"

// FormatDate renders an 8-digit trade date as YYYY-MM-DD. Values of any
// other length are returned unchanged.
func FormatDate(d domain.TradeDate) string {
	s := string(d)
	if len(s) != 8 {
		return s
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
}

// FormatNumber renders v with exactly four decimal places, or Placeholder
// when v is absent. Rounding applies to the exact binary value of v, so
// 7934.65935 (stored just below the tie) renders as 7934.6593. Exact ties
// round away from zero.
func FormatNumber(v null.Float) string {
	if !v.Valid {
		return Placeholder
	}
	d, ok := exactDecimal(v.Float64)
	if !ok {
		return Placeholder
	}
	return d.StringFixed(4)
}

// exactDecimal expands f to its exact decimal value. A finite float64 is
// a/2^k, which has exactly k fractional decimal digits.
func exactDecimal(f float64) (decimal.Decimal, bool) {
	r := new(big.Rat).SetFloat64(f)
	if r == nil {
		return decimal.Decimal{}, false
	}
	digits := r.Denom().BitLen() - 1
	d, err := decimal.NewFromString(strconv.FormatFloat(f, 'f', digits, 64))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// FormatAny parses a raw decoded value and formats it like FormatNumber.
func FormatAny(v any) string {
	return FormatNumber(domain.ParseValue(v))
}
