// Package feemath holds the shared money math for the savings pool: percentage
// fees, pro-rata splits, and the truncation rule applied to every payout.
// All arithmetic is on decimals; float64 cannot carry the conservation
// guarantees the pool ledger is checked against.
package feemath

import "github.com/shopspring/decimal"

// Scale is the number of decimal places payouts are truncated to. Truncation
// (never rounding up) keeps the sum of shares at or below the divided total,
// so dust stays in the pool instead of being minted.
const Scale = 8

var hundred = decimal.NewFromInt(100)

// Percent returns pct% of amount, truncated to Scale.
func Percent(amount decimal.Decimal, pct int64) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(pct)).Div(hundred).Truncate(Scale)
}

// AfterFee returns amount with a feePct% fee removed: amount*(100-fee)/100.
func AfterFee(amount decimal.Decimal, feePct int64) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(100 - feePct)).Div(hundred).Truncate(Scale)
}

// PerShare splits total evenly over n shares, truncated to Scale.
// n <= 0 yields zero rather than dividing by zero.
func PerShare(total decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Truncate(Scale)
}

// ProRata scales amount by part/whole, truncated to Scale. A zero or negative
// whole yields zero.
func ProRata(amount, part, whole decimal.Decimal) decimal.Decimal {
	if whole.Sign() <= 0 {
		return decimal.Zero
	}
	return amount.Mul(part).Div(whole).Truncate(Scale)
}

// ClampNonNeg returns d, or zero if d is negative.
func ClampNonNeg(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
