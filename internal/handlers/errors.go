package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/cart"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/pricing"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/ratelimit"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/shipping"
)

var errStockAlertExists = errors.New("stock alert already registered")

// ErrorHandler renders every failure as {"success": false, "error": {...}}.
// Upstream and internal failures are logged with their cause and shown generically.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		appErr := toAppError(err)
		meta := apperr.MetadataFor(appErr.Code())

		if meta.HTTPStatus >= fiber.StatusInternalServerError {
			ctx := log.WithFields(c.UserContext(), map[string]any{
				"method": c.Method(),
				"path":   c.Path(),
				"code":   string(appErr.Code()),
			})
			log.Error(ctx, "request failed", err)
		}

		body := fiber.Map{
			"code":    appErr.Code(),
			"message": appErr.PublicMessage(),
		}
		if meta.DetailsAllowed && appErr.Details() != nil {
			body["details"] = appErr.Details()
		}
		return c.Status(meta.HTTPStatus).JSON(fiber.Map{
			"success": false,
			"error":   body,
		})
	}
}

// toAppError maps domain sentinels onto client-facing codes.
func toAppError(err error) *apperr.Error {
	if appErr := apperr.As(err); appErr != nil {
		return appErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return apperr.NotFound(fiberErr.Message)
		case fiber.StatusUnauthorized:
			return apperr.Unauthorized(fiberErr.Message)
		case fiber.StatusTooManyRequests:
			return apperr.New(apperr.CodeRateLimit, fiberErr.Message)
		}
		if fiberErr.Code < fiber.StatusInternalServerError {
			return apperr.Validation(fiberErr.Message)
		}
		return apperr.Internal(err, fiberErr.Message)
	}

	var couponErr *pricing.CouponError
	if errors.As(err, &couponErr) {
		return apperr.BusinessRule(err, couponErr.Error())
	}
	var transitionErr *orders.TransitionError
	if errors.As(err, &transitionErr) {
		return apperr.BusinessRule(err, transitionErr.Error())
	}
	var productErr *checkout.ProductError
	if errors.As(err, &productErr) {
		return apperr.BusinessRule(err, productErr.Error())
	}
	var upstream *services.APIError
	if errors.As(err, &upstream) {
		return apperr.Dependency(err, upstream.Service+" request failed")
	}

	switch {
	case errors.Is(err, cart.ErrEmpty),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, shipping.ErrInvalidPostalCode),
		errors.Is(err, loyalty.ErrInvalidEmail),
		errors.Is(err, checkout.ErrUnknownShippingService),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrEmptyTracking),
		errors.Is(err, services.ErrUnknownEmailType):
		return apperr.Validation(err.Error())
	case errors.Is(err, loyalty.ErrBelowMinimum):
		return apperr.BusinessRule(err, fmt.Sprintf("minimum redemption is %d points", loyalty.MinRedeemPoints))
	case errors.Is(err, loyalty.ErrInsufficientPoints),
		errors.Is(err, loyalty.ErrAlreadyEarned),
		errors.Is(err, checkout.ErrNotPending),
		errors.Is(err, checkout.ErrNothingToPay),
		errors.Is(err, checkout.ErrPointsExceedTotal),
		errors.Is(err, errStockAlertExists):
		return apperr.BusinessRule(err, err.Error())
	case errors.Is(err, orders.ErrNotFound):
		return apperr.NotFound(err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("resource not found")
	case errors.Is(err, loyalty.ErrConcurrentUpdate),
		errors.Is(err, orders.ErrStatusChanged):
		return apperr.Wrap(apperr.CodeConflict, err, err.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.CodeConflict, err, "resource already exists")
	case errors.Is(err, ratelimit.ErrTooManyAttempts):
		return apperr.New(apperr.CodeRateLimit, "too many login attempts, try again later")
	case errors.Is(err, services.ErrNotConfigured),
		errors.Is(err, shipping.ErrNotConfigured):
		return apperr.Dependency(err, "upstream service not configured")
	}
	return apperr.Internal(err, "unexpected error")
}
