package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/cart"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/pricing"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/ratelimit"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/shipping"
)

func TestToAppError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code apperr.Code
	}{
		{"postal code", fmt.Errorf("resolve: %w", shipping.ErrInvalidPostalCode), apperr.CodeValidation},
		{"empty cart", cart.ErrEmpty, apperr.CodeValidation},
		{"coupon", &pricing.CouponError{Kind: pricing.ErrCouponExpired}, apperr.CodeBusinessRule},
		{"below minimum", loyalty.ErrBelowMinimum, apperr.CodeBusinessRule},
		{"points over total", checkout.ErrPointsExceedTotal, apperr.CodeBusinessRule},
		{"transition", &orders.TransitionError{From: "pending", To: "delivered"}, apperr.CodeBusinessRule},
		{"order missing", orders.ErrNotFound, apperr.CodeNotFound},
		{"record missing", gorm.ErrRecordNotFound, apperr.CodeNotFound},
		{"ledger race", loyalty.ErrConcurrentUpdate, apperr.CodeConflict},
		{"duplicate", gorm.ErrDuplicatedKey, apperr.CodeConflict},
		{"locked out", ratelimit.ErrTooManyAttempts, apperr.CodeRateLimit},
		{"upstream", &services.APIError{Service: "payment", Status: 500}, apperr.CodeDependency},
		{"fiber 404", fiber.ErrNotFound, apperr.CodeNotFound},
		{"fiber 400", fiber.ErrBadRequest, apperr.CodeValidation},
		{"unknown", errors.New("boom"), apperr.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, toAppError(tc.err).Code())
		})
	}
}

func TestUpstreamFailuresStayGeneric(t *testing.T) {
	err := toAppError(&services.APIError{Service: "email", Status: 401, Body: "invalid api key re_123"})
	assert.Equal(t, "service temporarily unavailable, please try again", err.PublicMessage())

	err = toAppError(errors.New("pq: relation does not exist"))
	assert.Equal(t, "something went wrong, please try again", err.PublicMessage())
}
