package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
)

const recentTransactions = 20

// LoyaltyHandler exposes balances and redemption previews.
type LoyaltyHandler struct {
	loyalty *loyalty.Service
}

// NewLoyaltyHandler constructs LoyaltyHandler.
func NewLoyaltyHandler(svc *loyalty.Service) *LoyaltyHandler {
	return &LoyaltyHandler{loyalty: svc}
}

// GetAccount returns the balance and recent ledger rows for an email.
func (h *LoyaltyHandler) GetAccount(c *fiber.Ctx) error {
	email := c.Params("email")
	account, err := h.loyalty.Account(c.UserContext(), email)
	if err != nil {
		return err
	}
	transactions, err := h.loyalty.Transactions(c.UserContext(), email, recentTransactions)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"account":      account,
			"points_value": loyalty.PointsValue(account.Points),
			"min_redeem":   loyalty.MinRedeemPoints,
			"transactions": transactions,
		},
	})
}

type loyaltyQuoteRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Points int64  `json:"points" validate:"required,gt=0"`
}

// Quote previews the discount a redemption would give without spending points.
func (h *LoyaltyHandler) Quote(c *fiber.Ctx) error {
	var req loyaltyQuoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	redemption, err := h.loyalty.Quote(c.UserContext(), req.Email, req.Points)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": redemption})
}
