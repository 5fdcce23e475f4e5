package handlers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
)

func checkoutBody(email, postalCode string, items ...fiber.Map) fiber.Map {
	return fiber.Map{
		"customer": fiber.Map{
			"name":        "Ana Souza",
			"email":       email,
			"phone":       "11999990000",
			"address":     "Rua Augusta, 100",
			"postal_code": postalCode,
		},
		"items":            items,
		"shipping_service": "economy",
		"payment_method":   "pix",
	}
}

func item(p models.Product, quantity int) fiber.Map {
	return fiber.Map{"product_id": p.ID.String(), "quantity": quantity}
}

func (e *testEnv) placeOrder(email string, p models.Product, quantity int) map[string]any {
	e.t.Helper()
	resp := e.do("POST", "/api/checkout", checkoutBody(email, "01310-100", item(p, quantity)), nil)
	require.Equal(e.t, fiber.StatusCreated, resp.status, resp.body)
	return resp.data()
}

func TestCheckoutPlacesOrder(t *testing.T) {
	env := newEnv(t)
	p := env.product("Oud Royal", "300", 10)

	data := env.placeOrder("Ana@Example.com", p, 2)
	breakdown := data["breakdown"].(map[string]any)
	assert.True(t, decimalField(t, breakdown, "subtotal").Equal(decimal.NewFromInt(600)))
	assert.True(t, decimalField(t, breakdown, "shipping").Equal(decimal.NewFromInt(25)))
	assert.True(t, decimalField(t, breakdown, "total").Equal(decimal.NewFromInt(625)))
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, "https://pay.example/"+data["order_number"].(string), data["payment_url"])

	track := env.do("GET", "/api/orders/track/"+data["access_token"].(string), nil, nil)
	require.Equal(t, fiber.StatusOK, track.status)
	assert.Equal(t, data["order_number"], track.data()["order_number"])
	assert.Len(t, track.data()["items"], 1)
	assert.Equal(t, []services.EmailType{services.EmailConfirmation}, env.mailer.kinds())

	missing := env.do("GET", "/api/orders/track/not-a-token", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, missing.status)
	assert.Equal(t, "NOT_FOUND", missing.errorCode())
}

func TestCheckoutRejections(t *testing.T) {
	env := newEnv(t)
	p := env.product("Oud Royal", "300", 1)

	body := checkoutBody("", "01310-100", item(p, 1))
	resp := env.do("POST", "/api/checkout", body, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)
	assert.Equal(t, "VALIDATION_ERROR", resp.errorCode())
	details := resp.body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "is required", details["email"])

	resp = env.do("POST", "/api/checkout", checkoutBody("ana@example.com", "00000000", item(p, 1)), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)

	resp = env.do("POST", "/api/checkout", checkoutBody("ana@example.com", "01310-100", item(p, 2)), nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "BUSINESS_RULE", resp.errorCode())

	body = checkoutBody("ana@example.com", "01310-100", item(p, 1))
	body["shipping_service"] = "drone"
	resp = env.do("POST", "/api/checkout", body, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)

	body = checkoutBody("ana@example.com", "01310-100", item(p, 1))
	body["coupon_code"] = "NOPE"
	resp = env.do("POST", "/api/checkout", body, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "invalid or expired coupon", resp.errorMessage())

	var count int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPaymentWebhookConfirmsOrder(t *testing.T) {
	env := newEnv(t)
	p := env.product("Oud Royal", "300", 10)
	data := env.placeOrder("ana@example.com", p, 1)
	token := data["access_token"].(string)

	retry := env.do("POST", "/api/orders/"+token+"/payment", nil, nil)
	require.Equal(t, fiber.StatusOK, retry.status)
	assert.NotEmpty(t, retry.data()["payment_url"])

	hook := fiber.Map{"type": "payment", "data": fiber.Map{"id": "123"}}
	resp := env.do("POST", "/api/payments/webhook", hook, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.status)

	env.payments.payment = &services.Payment{ID: 123, Status: services.PaymentStatusApproved, ExternalReference: data["order_number"].(string)}
	secret := map[string]string{WebhookSecretHeader: testWebhookSecret}
	resp = env.do("POST", "/api/payments/webhook", hook, secret)
	require.Equal(t, fiber.StatusOK, resp.status, resp.body)
	assert.Equal(t, true, resp.data()["processed"])
	assert.Equal(t, "paid", resp.data()["status"])
	assert.Contains(t, env.mailer.kinds(), services.EmailPaymentApproved)

	resp = env.do("POST", "/api/payments/webhook", hook, secret)
	assert.Equal(t, false, resp.data()["processed"])

	resp = env.do("POST", "/api/payments/webhook", fiber.Map{"type": "merchant_order"}, secret)
	assert.Equal(t, fiber.StatusOK, resp.status)
	assert.Equal(t, false, resp.data()["processed"])

	retry = env.do("POST", "/api/orders/"+token+"/payment", nil, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, retry.status)
}

func TestValidateCoupon(t *testing.T) {
	env := newEnv(t)
	env.coupon("BEMVINDO", models.CouponFixed, "50")
	env.coupon("FRETEGRATIS", models.CouponFreeShipping, "0")

	resp := env.do("POST", "/api/coupons/validate", fiber.Map{"code": " bemvindo ", "subtotal": 200}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.body)
	assert.Equal(t, "BEMVINDO", resp.data()["code"])
	assert.True(t, decimalField(t, resp.data(), "discount").Equal(decimal.NewFromInt(50)))
	assert.Equal(t, false, resp.data()["free_shipping"])

	resp = env.do("POST", "/api/coupons/validate", fiber.Map{"code": "fretegratis", "subtotal": "80"}, nil)
	require.Equal(t, fiber.StatusOK, resp.status)
	assert.Equal(t, true, resp.data()["free_shipping"])

	resp = env.do("POST", "/api/coupons/validate", fiber.Map{"code": "NOPE", "subtotal": 200}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "invalid or expired coupon", resp.errorMessage())

	resp = env.do("POST", "/api/coupons/validate", fiber.Map{"subtotal": 200}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)
}

func TestShippingQuote(t *testing.T) {
	env := newEnv(t)

	resp := env.do("POST", "/api/shipping/quote", fiber.Map{"postal_code": "1111-1111", "declared_value": 100}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)

	resp = env.do("POST", "/api/shipping/quote", fiber.Map{"postal_code": "01310-100", "declared_value": 100}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.body)
	assert.Equal(t, "01310100", resp.data()["postal_code"])
	options := resp.data()["options"].([]any)
	require.Len(t, options, 2)
	first := options[0].(map[string]any)
	assert.Equal(t, "economy", first["service"])
	assert.True(t, decimalField(t, first, "price").Equal(decimal.NewFromInt(25)))

	resp = env.do("POST", "/api/shipping/quote", fiber.Map{"postal_code": "01310-100", "declared_value": 1500}, nil)
	require.Equal(t, fiber.StatusOK, resp.status)
	assert.Equal(t, true, resp.data()["free_shipping"])
}

func TestLoyaltyEndpoints(t *testing.T) {
	env := newEnv(t)
	_, err := loyalty.NewService(env.db, nil).Earn(context.Background(), "ana@example.com", decimal.NewFromInt(300), uuid.New())
	require.NoError(t, err)

	resp := env.do("GET", "/api/loyalty/Ana@Example.com", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.body)
	account := resp.data()["account"].(map[string]any)
	assert.Equal(t, float64(300), account["points"])
	assert.True(t, decimalField(t, resp.data(), "points_value").Equal(decimal.NewFromInt(30)))
	assert.Len(t, resp.data()["transactions"], 1)

	resp = env.do("POST", "/api/loyalty/quote", fiber.Map{"email": "ana@example.com", "points": 50}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "minimum redemption is 100 points", resp.errorMessage())

	resp = env.do("POST", "/api/loyalty/quote", fiber.Map{"email": "ana@example.com", "points": 400}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.status)

	resp = env.do("POST", "/api/loyalty/quote", fiber.Map{"email": "ana@example.com", "points": 200}, nil)
	require.Equal(t, fiber.StatusOK, resp.status)
	assert.True(t, decimalField(t, resp.data(), "discount").Equal(decimal.NewFromInt(20)))

	unknown := env.do("GET", "/api/loyalty/nobody@example.com", nil, nil)
	require.Equal(t, fiber.StatusOK, unknown.status)
	assert.Equal(t, float64(0), unknown.data()["account"].(map[string]any)["points"])
}

func TestCatalogAndStockAlerts(t *testing.T) {
	env := newEnv(t)
	soldOut := env.product("Oud Royal", "300", 0)
	hidden := env.product("Ambre Nuit", "250", 3)
	require.NoError(t, env.db.Model(&hidden).Update("active", false).Error)

	resp := env.do("GET", "/api/products?search=oud", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)
	pagination := resp.body["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["total_items"])

	resp = env.do("GET", "/api/products/"+hidden.ID.String(), nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.status)
	resp = env.do("GET", "/api/products/not-an-id", nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)

	path := "/api/products/" + soldOut.ID.String() + "/stock-alerts"
	resp = env.do("POST", path, fiber.Map{"email": "Bia@Example.com"}, nil)
	require.Equal(t, fiber.StatusCreated, resp.status, resp.body)
	assert.Equal(t, "bia@example.com", resp.data()["email"])

	resp = env.do("POST", path, fiber.Map{"email": "bia@example.com"}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.status)
	assert.Equal(t, "stock alert already registered", resp.errorMessage())

	resp = env.do("POST", path, fiber.Map{"email": "not-an-email"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.status)
}
