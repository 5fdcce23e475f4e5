package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

var hundred = decimal.NewFromInt(100)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal sums unit price × quantity over the lines.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

type Input struct {
	Subtotal        decimal.Decimal
	Coupon          *models.Coupon
	LoyaltyDiscount decimal.Decimal
	Shipping        decimal.Decimal
}

type Breakdown struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	CouponDiscount  decimal.Decimal `json:"coupon_discount"`
	LoyaltyDiscount decimal.Decimal `json:"loyalty_discount"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	ShippingQuoted  decimal.Decimal `json:"shipping_quoted"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
}

// Compose combines subtotal, coupon, loyalty discount and shipping into the payable total.
// The total never goes below zero.
func Compose(in Input) Breakdown {
	couponDiscount := CouponDiscount(in.Coupon, in.Subtotal)

	shipping := in.Shipping
	if shipping.Sign() < 0 {
		shipping = decimal.Zero
	}
	charged := shipping
	if WaivesShipping(in.Coupon) {
		charged = decimal.Zero
	}

	loyaltyDiscount := in.LoyaltyDiscount
	if loyaltyDiscount.Sign() < 0 {
		loyaltyDiscount = decimal.Zero
	}
	loyaltyDiscount = loyaltyDiscount.Round(2)

	totalDiscount := couponDiscount.Add(loyaltyDiscount)
	total := in.Subtotal.Sub(totalDiscount).Add(charged)
	if total.Sign() < 0 {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal:        in.Subtotal.Round(2),
		CouponDiscount:  couponDiscount,
		LoyaltyDiscount: loyaltyDiscount,
		TotalDiscount:   totalDiscount.Round(2),
		ShippingQuoted:  shipping.Round(2),
		Shipping:        charged.Round(2),
		Total:           total.Round(2),
	}
}
