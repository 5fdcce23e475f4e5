package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount as Brazilian currency, e.g. R$ 1.234,56.
func FormatBRL(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	fixed := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return sign + "R$ " + b.String() + "," + frac
}
