package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponExpired     = errors.New("coupon expired")
	ErrCouponUsageLimit  = errors.New("coupon usage limit reached")
	ErrCouponMinPurchase = errors.New("coupon minimum purchase not met")
)

// CouponError carries the shopper-facing reason a coupon was refused.
// errors.Is matches it against the Err* kinds above.
type CouponError struct {
	Kind        error
	MinPurchase decimal.Decimal
}

func (e *CouponError) Error() string {
	switch e.Kind {
	case ErrCouponUsageLimit:
		return "this coupon has reached its usage limit"
	case ErrCouponMinPurchase:
		return fmt.Sprintf("minimum purchase of R$ %s required for this coupon", e.MinPurchase.StringFixed(2))
	default:
		return "invalid or expired coupon"
	}
}

func (e *CouponError) Unwrap() error {
	return e.Kind
}

// CheckCoupon reports whether a coupon can be applied to the subtotal at time now.
func CheckCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time) error {
	if c == nil || !c.Active {
		return &CouponError{Kind: ErrCouponNotFound}
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return &CouponError{Kind: ErrCouponExpired}
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return &CouponError{Kind: ErrCouponUsageLimit}
	}
	if c.MinPurchase != nil && subtotal.LessThan(*c.MinPurchase) {
		return &CouponError{Kind: ErrCouponMinPurchase, MinPurchase: *c.MinPurchase}
	}
	return nil
}

// CouponDiscount is the amount a coupon takes off the subtotal, rounded to cents
// and never more than the subtotal. free_shipping coupons discount nothing here.
func CouponDiscount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil || subtotal.Sign() <= 0 {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.Type {
	case models.CouponPercentage:
		discount = subtotal.Mul(c.Value).Div(hundred)
	case models.CouponFixed:
		discount = c.Value
	default:
		return decimal.Zero
	}

	if discount.Sign() < 0 {
		return decimal.Zero
	}
	return decimal.Min(discount, subtotal).Round(2)
}

// WaivesShipping reports whether the coupon zeroes the shipping charge.
func WaivesShipping(c *models.Coupon) bool {
	return c != nil && c.Type == models.CouponFreeShipping
}
