// Package pricing computes sale totals. Amounts are rounded to cents, half up.
package pricing

import (
	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

var hundred = decimal.NewFromInt(100)

// Totals are the derived money amounts of a sale line.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
}

// ComputeTotals prices quantity units at unitPrice with a percentage discount.
func ComputeTotals(quantity int64, unitPrice, discountPercent decimal.Decimal) (Totals, error) {
	if quantity <= 0 {
		return Totals{}, domain.Invalidf("quantity must be positive, got %d", quantity)
	}
	if unitPrice.IsNegative() {
		return Totals{}, domain.Invalidf("unitPrice must not be negative, got %s", unitPrice)
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return Totals{}, domain.Invalidf("discount must be between 0 and 100, got %s", discountPercent)
	}

	subtotal := roundCents(unitPrice.Mul(decimal.NewFromInt(quantity)))
	discount := roundCents(subtotal.Mul(discountPercent).Div(hundred))
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TotalAmount:    subtotal.Sub(discount),
	}, nil
}

// roundCents rounds half away from zero, which is half up for the
// non-negative amounts handled here.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
