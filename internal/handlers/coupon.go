package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/coupons"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/pricing"
)

// CouponHandler previews coupons for the cart page.
type CouponHandler struct {
	coupons *coupons.Service
}

// NewCouponHandler constructs CouponHandler.
func NewCouponHandler(svc *coupons.Service) *CouponHandler {
	return &CouponHandler{coupons: svc}
}

type validateCouponRequest struct {
	Code     string          `json:"code" validate:"required,max=50"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidateCoupon checks a code against the subtotal and previews its discount.
func (h *CouponHandler) ValidateCoupon(c *fiber.Ctx) error {
	var req validateCouponRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Subtotal.IsNegative() {
		return apperr.Validation("subtotal must not be negative")
	}

	coupon, err := h.coupons.Validate(c.UserContext(), req.Code, req.Subtotal)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"code":          coupon.Code,
			"type":          coupon.Type,
			"value":         coupon.Value,
			"discount":      pricing.CouponDiscount(coupon, req.Subtotal),
			"free_shipping": pricing.WaivesShipping(coupon),
		},
	})
}
