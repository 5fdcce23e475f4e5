package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/checkout"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/metrics"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/middleware"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/ratelimit"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

type adminAction func(c *fiber.Ctx, data json.RawMessage) error

// AdminHandler serves the back-office through a single {action, data} endpoint.
type AdminHandler struct {
	db         *gorm.DB
	orders     *orders.Service
	checkout   *checkout.Service
	products   *ProductHandler
	mailer     checkout.Mailer
	limiter    *ratelimit.LoginLimiter
	credential *utils.AdminCredential
	jwtSecret  string
	tokenTTL   time.Duration
	metrics    *metrics.Storefront
	log        *logger.Logger
	now        func() time.Time

	actions map[string]adminAction
}

// AdminOptions wires AdminHandler.
type AdminOptions struct {
	DB         *gorm.DB
	Orders     *orders.Service
	Checkout   *checkout.Service
	Mailer     checkout.Mailer
	Limiter    *ratelimit.LoginLimiter
	Credential *utils.AdminCredential
	JWTSecret  string
	TokenTTL   time.Duration
	Metrics    *metrics.Storefront
	Logger     *logger.Logger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(opts AdminOptions) *AdminHandler {
	if opts.Orders == nil {
		opts.Orders = orders.NewService(opts.DB)
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLoginLimiter(nil, ratelimit.DefaultMaxAttempts, ratelimit.DefaultWindow)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 8 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	h := &AdminHandler{
		db:         opts.DB,
		orders:     opts.Orders,
		checkout:   opts.Checkout,
		products:   NewProductHandler(opts.DB),
		mailer:     opts.Mailer,
		limiter:    opts.Limiter,
		credential: opts.Credential,
		jwtSecret:  opts.JWTSecret,
		tokenTTL:   opts.TokenTTL,
		metrics:    opts.Metrics,
		log:        opts.Logger,
		now:        time.Now,
	}
	h.actions = map[string]adminAction{
		"stats":               h.stats,
		"list_orders":         h.listOrders,
		"get_order":           h.getOrder,
		"update_order_status": h.updateOrderStatus,
		"update_tracking":     h.updateTracking,
		"delete_order":        h.deleteOrder,
		"list_coupons":        h.listCoupons,
		"create_coupon":       h.createCoupon,
		"update_coupon":       h.updateCoupon,
		"delete_coupon":       h.deleteCoupon,
		"list_products":       h.listProducts,
		"create_product":      h.createProduct,
		"update_product":      h.updateProduct,
		"delete_product":      h.deleteProduct,
		"list_customers":      h.listCustomers,
		"send_email":          h.sendEmail,
	}
	return h
}

type adminRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Handle dispatches an admin action. Everything except login needs a bearer token.
func (h *AdminHandler) Handle(c *fiber.Ctx) error {
	var req adminRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	action := strings.TrimSpace(req.Action)

	if action == "login" {
		return h.login(c, req.Data)
	}
	if err := middleware.Authenticate(c, h.jwtSecret); err != nil {
		return err
	}

	handler, ok := h.actions[action]
	if !ok {
		return apperr.Validation("unknown action")
	}
	return handler(c, req.Data)
}

// Session confirms the caller's token is still valid.
func (h *AdminHandler) Session(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"valid": true}})
}

// decodeData unmarshals the action payload and validates it.
func decodeData(data json.RawMessage, dest any) error {
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, dest); err != nil {
			return apperr.Wrap(apperr.CodeValidation, err, "invalid action data")
		}
	}
	return validateStruct(dest)
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *AdminHandler) login(c *fiber.Ctx, data json.RawMessage) error {
	ctx := h.log.WithField(c.UserContext(), "source", c.IP())
	source := c.IP()

	if err := h.limiter.Check(ctx, source); err != nil {
		if errors.Is(err, ratelimit.ErrTooManyAttempts) {
			h.metrics.AdminLogin("locked")
			h.log.Warn(ctx, "admin login locked out")
			return err
		}
		h.log.Error(ctx, "login limiter unavailable", err)
	}

	var req loginRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	if !h.credential.Verify(req.Password) {
		h.metrics.AdminLogin("failure")
		if _, err := h.limiter.Fail(ctx, source); err != nil {
			h.log.Error(ctx, "login limiter unavailable", err)
		}
		h.log.Warn(ctx, "admin login failed")
		return apperr.Unauthorized("incorrect password")
	}

	if err := h.limiter.Succeed(ctx, source); err != nil {
		h.log.Error(ctx, "login limiter unavailable", err)
	}
	token, expiresAt, err := utils.GenerateAdminToken(h.jwtSecret, h.tokenTTL)
	if err != nil {
		return err
	}
	h.metrics.AdminLogin("success")
	h.log.Info(ctx, "admin logged in")

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token":      token,
			"expires_at": expiresAt,
		},
	})
}

type statsRequest struct {
	Period string `json:"period" validate:"omitempty,oneof=today 7d 30d 90d all"`
}

// periodStart returns the lower bound for a stats period; zero means all time.
func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "7d":
		return now.AddDate(0, 0, -7)
	case "30d", "":
		return now.AddDate(0, 0, -30)
	case "90d":
		return now.AddDate(0, 0, -90)
	}
	return time.Time{}
}

func (h *AdminHandler) stats(c *fiber.Ctx, data json.RawMessage) error {
	var req statsRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	if req.Period == "" {
		req.Period = "30d"
	}

	db := h.db.WithContext(c.UserContext())
	scoped := func() *gorm.DB {
		q := db.Model(&models.Order{})
		if since := periodStart(req.Period, h.now()); !since.IsZero() {
			q = q.Where("created_at >= ?", since)
		}
		return q
	}

	var totalOrders int64
	if err := scoped().Count(&totalOrders).Error; err != nil {
		return err
	}

	var paidOrders int64
	if err := scoped().Where("status <> ?", models.OrderCancelled).Count(&paidOrders).Error; err != nil {
		return err
	}

	var agg struct {
		Revenue decimal.Decimal
	}
	if err := scoped().
		Where("status <> ?", models.OrderCancelled).
		Select("COALESCE(SUM(total_amount), 0) as revenue").
		Scan(&agg).Error; err != nil {
		return err
	}
	revenue := agg.Revenue

	averageTicket := decimal.Zero
	if paidOrders > 0 {
		averageTicket = revenue.Div(decimal.NewFromInt(paidOrders)).Round(2)
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := scoped().
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}
	ordersByStatus := make(map[string]int64, len(statusCounts))
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	var customers int64
	if err := scoped().Distinct("customer_email").Count(&customers).Error; err != nil {
		return err
	}

	var outstandingPoints int64
	if err := db.Model(&models.LoyaltyAccount{}).
		Select("COALESCE(SUM(points), 0)").
		Scan(&outstandingPoints).Error; err != nil {
		return err
	}

	var activeCoupons int64
	if err := db.Model(&models.Coupon{}).Where("active = ?", true).Count(&activeCoupons).Error; err != nil {
		return err
	}

	var recent []models.Order
	if err := db.Order("created_at desc").Limit(5).Find(&recent).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"period":                     req.Period,
			"total_orders":               totalOrders,
			"revenue":                    revenue.Round(2),
			"average_ticket":             averageTicket,
			"orders_by_status":           ordersByStatus,
			"customers":                  customers,
			"loyalty_points_outstanding": outstandingPoints,
			"active_coupons":             activeCoupons,
			"recent_orders":              recent,
		},
	})
}
