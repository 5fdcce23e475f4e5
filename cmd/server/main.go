package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/config"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/coupons"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/database"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/handlers"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/metrics"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/ratelimit"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/routes"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/shipping"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

func main() {
	cfg := config.Load()
	appLog := logger.New(logger.Options{
		ServiceName: "jf-imports-api",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}

	credential, err := utils.NewAdminCredential(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		log.Fatalf("admin credential: %v", err)
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisStore, err := ratelimit.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			appLog.Error(ctx, "redis unavailable, login throttle falls back to memory", err)
		} else {
			defer redisStore.Close()
			store = redisStore
		}
	}
	limiter := ratelimit.NewLoginLimiter(store, cfg.LoginMaxAttempts, cfg.LoginWindow)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefront(registry)

	httpClient := &http.Client{Timeout: 15 * time.Second}

	var rateClient shipping.RateClient
	if cfg.ShippingAPIToken != "" {
		rateClient = shipping.NewHTTPRateClient(cfg.ShippingAPIURL, cfg.ShippingAPIToken, httpClient)
	}
	resolver := shipping.NewResolver(rateClient, shipping.ResolverOptions{
		OriginPostalCode:      cfg.ShippingOriginCEP,
		Timeout:               cfg.ShippingTimeout,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		Logger:                appLog,
		Metrics:               storefrontMetrics,
	})

	payments := services.NewPaymentService(cfg.PaymentAPIURL, cfg.PaymentAccessToken, httpClient)
	mailer := services.NewEmailService(services.EmailOptions{
		BaseURL:   cfg.EmailAPIURL,
		APIKey:    cfg.EmailAPIKey,
		From:      cfg.EmailFrom,
		SiteURL:   cfg.SiteURL,
		StoreName: "JF Imports",
		Client:    httpClient,
	})
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	if !payments.Enabled() {
		appLog.Warn(ctx, "payment gateway not configured, orders will have no payment link")
	}
	if !mailer.Enabled() {
		appLog.Warn(ctx, "email api not configured, transactional emails are skipped")
	}

	couponSvc := coupons.NewService(db)
	loyaltySvc := loyalty.NewService(db, storefrontMetrics)
	orderSvc := orders.NewService(db)
	checkoutSvc := checkout.NewService(checkout.Deps{
		DB:       db,
		Coupons:  couponSvc,
		Loyalty:  loyaltySvc,
		Orders:   orderSvc,
		Shipping: resolver,
		Payments: payments,
		Mailer:   mailer,
		Notifier: telegram,
		Logger:   appLog,
		Metrics:  storefrontMetrics,
		SiteURL:  cfg.SiteURL,
		Currency: cfg.Currency,
	})

	app := fiber.New(fiber.Config{
		AppName:      "JF Imports Backend",
		ErrorHandler: handlers.ErrorHandler(appLog),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	routes.Register(app, routes.Deps{
		DB:         db,
		Config:     cfg,
		Checkout:   checkoutSvc,
		Orders:     orderSvc,
		Coupons:    couponSvc,
		Loyalty:    loyaltySvc,
		Shipping:   resolver,
		Mailer:     mailer,
		Limiter:    limiter,
		Credential: credential,
		Metrics:    storefrontMetrics,
		Gatherer:   registry,
		Logger:     appLog,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		appLog.Info(ctx, "shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLog.Error(ctx, "shutdown failed", err)
		}
	}()

	appLog.Info(appLog.WithField(ctx, "port", cfg.AppPort), "starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
