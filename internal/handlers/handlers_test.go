package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/coupons"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/database/databasetest"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/middleware"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/ratelimit"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/shipping"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

const (
	testSecret        = "test-jwt-secret"
	testAdminPassword = "s3nha-forte"
	testWebhookSecret = "hook-secret"
)

type fixedRates map[string]string

func (f fixedRates) Quote(_ context.Context, req shipping.RateRequest) (shipping.Rate, error) {
	price, ok := f[req.Tier.Code]
	if !ok {
		return shipping.Rate{}, errors.New("unavailable")
	}
	return shipping.Rate{Price: decimal.RequireFromString(price), DeliveryDays: 4}, nil
}

type fakePayments struct {
	payment *services.Payment
}

func (f *fakePayments) CreatePreference(_ context.Context, req services.PreferenceRequest) (*services.Preference, error) {
	return &services.Preference{ID: "pref-" + req.ExternalReference, InitPoint: "https://pay.example/" + req.ExternalReference}, nil
}

func (f *fakePayments) GetPayment(_ context.Context, id string) (*services.Payment, error) {
	if f.payment == nil {
		return nil, errors.New("payment not found")
	}
	return f.payment, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []services.EmailType
}

func (f *fakeMailer) Send(_ context.Context, kind services.EmailType, _ *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind)
	return nil
}

func (f *fakeMailer) kinds() []services.EmailType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.EmailType(nil), f.sent...)
}

type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	app      *fiber.App
	payments *fakePayments
	mailer   *fakeMailer
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := databasetest.Open(t)
	env := &testEnv{t: t, db: db, payments: &fakePayments{}, mailer: &fakeMailer{}}

	resolver := shipping.NewResolver(fixedRates{"economy": "25", "express": "40"}, shipping.ResolverOptions{
		FreeShippingThreshold: decimal.NewFromInt(1000),
	})
	orderSvc := orders.NewService(db)
	loyaltySvc := loyalty.NewService(db, nil)
	checkoutSvc := checkout.NewService(checkout.Deps{
		DB:       db,
		Orders:   orderSvc,
		Loyalty:  loyaltySvc,
		Shipping: resolver,
		Payments: env.payments,
		Mailer:   env.mailer,
		SiteURL:  "https://loja.example",
		Dispatch: func(f func()) { f() },
	})
	credential, err := utils.NewAdminCredential(testAdminPassword, "")
	require.NoError(t, err)

	checkoutHandler := NewCheckoutHandler(checkoutSvc, orderSvc, testWebhookSecret, nil)
	couponHandler := NewCouponHandler(coupons.NewService(db))
	shippingHandler := NewShippingHandler(resolver)
	loyaltyHandler := NewLoyaltyHandler(loyaltySvc)
	productHandler := NewProductHandler(db)
	adminHandler := NewAdminHandler(AdminOptions{
		DB:         db,
		Orders:     orderSvc,
		Checkout:   checkoutSvc,
		Mailer:     env.mailer,
		Limiter:    ratelimit.NewLoginLimiter(ratelimit.NewMemoryStore(), 5, 15*time.Minute),
		Credential: credential,
		JWTSecret:  testSecret,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Nop())})
	api := app.Group("/api")
	api.Get("/products", productHandler.ListProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Post("/products/:id/stock-alerts", productHandler.CreateStockAlert)
	api.Post("/coupons/validate", couponHandler.ValidateCoupon)
	api.Post("/shipping/quote", shippingHandler.Quote)
	api.Get("/loyalty/:email", loyaltyHandler.GetAccount)
	api.Post("/loyalty/quote", loyaltyHandler.Quote)
	api.Post("/checkout", checkoutHandler.PlaceOrder)
	api.Get("/orders/track/:token", checkoutHandler.TrackOrder)
	api.Post("/orders/:token/payment", checkoutHandler.RetryPayment)
	api.Post("/payments/webhook", checkoutHandler.PaymentWebhook)
	api.Post("/admin", adminHandler.Handle)
	api.Get("/admin/session", middleware.AdminAuth(testSecret), adminHandler.Session)

	env.app = app
	return env
}

type response struct {
	status int
	body   map[string]any
}

func (r response) data() map[string]any {
	data, _ := r.body["data"].(map[string]any)
	return data
}

func (r response) list() []any {
	list, _ := r.body["data"].([]any)
	return list
}

func (r response) errorCode() string {
	errBody, _ := r.body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func (r response) errorMessage() string {
	errBody, _ := r.body["error"].(map[string]any)
	message, _ := errBody["message"].(string)
	return message
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) response {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	out := response{status: resp.StatusCode}
	if len(raw) > 0 {
		require.NoError(e.t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (e *testEnv) admin(action string, data any) response {
	e.t.Helper()
	token, _, err := utils.GenerateAdminToken(testSecret, time.Hour)
	require.NoError(e.t, err)
	return e.do("POST", "/api/admin", fiber.Map{"action": action, "data": data}, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

func (e *testEnv) product(name, price string, stock int) models.Product {
	e.t.Helper()
	p := models.Product{Name: name, Brand: "Maison", Category: "unissex", Size: "100ml", Price: decimal.RequireFromString(price), Stock: stock, Active: true}
	require.NoError(e.t, e.db.Create(&p).Error)
	return p
}

func (e *testEnv) coupon(code string, kind models.CouponType, value string) models.Coupon {
	e.t.Helper()
	c := models.Coupon{Code: code, Type: kind, Value: decimal.RequireFromString(value), Active: true}
	require.NoError(e.t, e.db.Create(&c).Error)
	return c
}

func decimalField(t *testing.T, m map[string]any, key string) decimal.Decimal {
	t.Helper()
	raw, ok := m[key].(string)
	require.True(t, ok, "%s should be a decimal string, got %#v", key, m[key])
	return decimal.RequireFromString(raw)
}
