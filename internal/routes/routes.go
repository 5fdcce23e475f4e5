package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/config"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/coupons"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/handlers"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/metrics"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/middleware"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/ratelimit"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

// Deps carries the services the HTTP layer is built from.
type Deps struct {
	DB         *gorm.DB
	Config     *config.Config
	Checkout   *checkout.Service
	Orders     *orders.Service
	Coupons    *coupons.Service
	Loyalty    *loyalty.Service
	Shipping   checkout.ShippingQuoter
	Mailer     checkout.Mailer
	Limiter    *ratelimit.LoginLimiter
	Credential *utils.AdminCredential
	Metrics    *metrics.Storefront
	Gatherer   prometheus.Gatherer
	Logger     *logger.Logger
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, d Deps) {
	checkoutHandler := handlers.NewCheckoutHandler(d.Checkout, d.Orders, d.Config.PaymentWebhookSecret, d.Logger)
	couponHandler := handlers.NewCouponHandler(d.Coupons)
	shippingHandler := handlers.NewShippingHandler(d.Shipping)
	loyaltyHandler := handlers.NewLoyaltyHandler(d.Loyalty)
	productHandler := handlers.NewProductHandler(d.DB)
	adminHandler := handlers.NewAdminHandler(handlers.AdminOptions{
		DB:         d.DB,
		Orders:     d.Orders,
		Checkout:   d.Checkout,
		Mailer:     d.Mailer,
		Limiter:    d.Limiter,
		Credential: d.Credential,
		JWTSecret:  d.Config.JWTSecret,
		TokenTTL:   d.Config.AdminTokenTTL,
		Metrics:    d.Metrics,
		Logger:     d.Logger,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"status": "ok"}})
	})
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/:id/stock-alerts", productHandler.CreateStockAlert)

	// Cart helpers
	api.Post("/coupons/validate", couponHandler.ValidateCoupon)
	api.Post("/shipping/quote", shippingHandler.Quote)

	loyaltyGroup := api.Group("/loyalty")
	loyaltyGroup.Get("/:email", loyaltyHandler.GetAccount)
	loyaltyGroup.Post("/quote", loyaltyHandler.Quote)

	// Checkout and orders
	api.Post("/checkout", checkoutHandler.PlaceOrder)
	api.Get("/orders/track/:token", checkoutHandler.TrackOrder)
	api.Post("/orders/:token/payment", checkoutHandler.RetryPayment)
	api.Post("/payments/webhook", checkoutHandler.PaymentWebhook)

	// Admin
	api.Post("/admin", adminHandler.Handle)
	api.Get("/admin/session", middleware.AdminAuth(d.Config.JWTSecret), adminHandler.Session)
}
