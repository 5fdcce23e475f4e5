package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
)

// ShippingHandler quotes delivery options for a postal code.
type ShippingHandler struct {
	resolver checkout.ShippingQuoter
}

// NewShippingHandler constructs ShippingHandler.
func NewShippingHandler(resolver checkout.ShippingQuoter) *ShippingHandler {
	return &ShippingHandler{resolver: resolver}
}

type shippingQuoteRequest struct {
	PostalCode    string          `json:"postal_code" validate:"required"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
}

// Quote returns the available tiers, falling back to regional estimates.
func (h *ShippingHandler) Quote(c *fiber.Ctx) error {
	var req shippingQuoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.DeclaredValue.IsNegative() {
		return apperr.Validation("declared_value must not be negative")
	}

	quote, err := h.resolver.Resolve(c.UserContext(), req.PostalCode, req.DeclaredValue)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": quote})
}
