package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/cart"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
)

// WebhookSecretHeader carries the shared secret on payment notifications.
const WebhookSecretHeader = "X-Webhook-Secret"

// CheckoutHandler places orders and serves the shopper-facing order endpoints.
type CheckoutHandler struct {
	checkout      *checkout.Service
	orders        *orders.Service
	webhookSecret string
	log           *logger.Logger
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(checkoutSvc *checkout.Service, orderSvc *orders.Service, webhookSecret string, log *logger.Logger) *CheckoutHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CheckoutHandler{checkout: checkoutSvc, orders: orderSvc, webhookSecret: webhookSecret, log: log}
}

type customerRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"max=30"`
	Address    string `json:"address" validate:"required,max=500"`
	PostalCode string `json:"postal_code" validate:"required"`
}

type checkoutItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	Customer        customerRequest       `json:"customer"`
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	CouponCode      string                `json:"coupon_code" validate:"max=50"`
	LoyaltyPoints   int64                 `json:"loyalty_points" validate:"gte=0"`
	ShippingService string                `json:"shipping_service" validate:"required"`
	PaymentMethod   string                `json:"payment_method" validate:"max=30"`
	Notes           string                `json:"notes" validate:"max=1000"`
}

// PlaceOrder validates the cart and commits the order.
func (h *CheckoutHandler) PlaceOrder(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	lines := make([]cart.Line, 0, len(req.Items))
	for _, item := range req.Items {
		id, err := parseID(item.ProductID, "product_id")
		if err != nil {
			return err
		}
		lines = append(lines, cart.Line{ProductID: id, Quantity: item.Quantity})
	}

	result, err := h.checkout.Place(c.UserContext(), checkout.Request{
		Customer: checkout.Customer{
			Name:       req.Customer.Name,
			Email:      req.Customer.Email,
			Phone:      req.Customer.Phone,
			Address:    req.Customer.Address,
			PostalCode: req.Customer.PostalCode,
		},
		Items:           lines,
		CouponCode:      req.CouponCode,
		LoyaltyPoints:   req.LoyaltyPoints,
		ShippingService: req.ShippingService,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           result.Order.ID,
			"order_number": result.Order.OrderNumber,
			"access_token": result.Order.AccessToken,
			"status":       result.Order.Status,
			"breakdown":    result.Breakdown,
			"payment_url":  result.PaymentURL,
		},
	})
}

// TrackOrder looks an order up by its opaque access token.
func (h *CheckoutHandler) TrackOrder(c *fiber.Ctx) error {
	order, err := h.orders.FindByToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// RetryPayment issues a new payment link for a pending order.
func (h *CheckoutHandler) RetryPayment(c *fiber.Ctx) error {
	order, err := h.checkout.RetryPayment(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"order_number": order.OrderNumber,
			"payment_url":  order.PaymentURL,
		},
	})
}

type paymentWebhookRequest struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// PaymentWebhook receives gateway notifications and confirms approved payments.
func (h *CheckoutHandler) PaymentWebhook(c *fiber.Ctx) error {
	if h.webhookSecret != "" {
		given := c.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.webhookSecret)) != 1 {
			return apperr.Unauthorized("invalid webhook signature")
		}
	}

	var req paymentWebhookRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
		}
	}

	kind := req.Type
	if kind == "" {
		kind = c.Query("type", c.Query("topic"))
	}
	paymentID := strings.TrimSpace(req.Data.ID)
	if paymentID == "" {
		paymentID = strings.TrimSpace(c.Query("data.id", c.Query("id")))
	}

	if kind != "payment" || paymentID == "" {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"processed": false}})
	}

	ctx := h.log.WithField(c.UserContext(), "payment_id", paymentID)
	order, changed, err := h.checkout.ConfirmPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	data := fiber.Map{"processed": changed}
	if order != nil {
		data["order_number"] = order.OrderNumber
		data["status"] = order.Status
	}
	return c.JSON(fiber.Map{"success": true, "data": data})
}
