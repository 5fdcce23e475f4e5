package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/coupons"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

var hundred = decimal.NewFromInt(100)

type listRequest struct {
	Search string `json:"search" validate:"max=100"`
	Page   int    `json:"page" validate:"gte=0"`
	Limit  int    `json:"limit" validate:"gte=0"`
}

type couponRequest struct {
	Code        string           `json:"code" validate:"required,max=50"`
	Type        string           `json:"type" validate:"required,oneof=percentage fixed free_shipping"`
	Value       decimal.Decimal  `json:"value"`
	MinPurchase *decimal.Decimal `json:"min_purchase"`
	MaxUses     *int             `json:"max_uses" validate:"omitempty,gte=1"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	Active      *bool            `json:"active"`
}

func (r couponRequest) apply(coupon *models.Coupon) error {
	kind := models.CouponType(r.Type)
	switch kind {
	case models.CouponPercentage:
		if !r.Value.IsPositive() || r.Value.GreaterThan(hundred) {
			return apperr.Validation("percentage value must be between 0 and 100")
		}
	case models.CouponFixed:
		if !r.Value.IsPositive() {
			return apperr.Validation("fixed value must be positive")
		}
	case models.CouponFreeShipping:
		r.Value = decimal.Zero
	}
	if r.MinPurchase != nil && r.MinPurchase.IsNegative() {
		return apperr.Validation("min_purchase must not be negative")
	}

	code := coupons.NormalizeCode(r.Code)
	if code == "" {
		return apperr.Validation("code is required")
	}

	coupon.Code = code
	coupon.Type = kind
	coupon.Value = r.Value.Round(2)
	coupon.MinPurchase = nil
	if r.MinPurchase != nil {
		minPurchase := r.MinPurchase.Round(2)
		coupon.MinPurchase = &minPurchase
	}
	coupon.MaxUses = r.MaxUses
	coupon.ExpiresAt = r.ExpiresAt
	coupon.Active = true
	if r.Active != nil {
		coupon.Active = *r.Active
	}
	return nil
}

func (h *AdminHandler) listCoupons(c *fiber.Ctx, data json.RawMessage) error {
	var req listRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	pg := utils.NewPagination(req.Page, req.Limit)

	query := h.db.WithContext(c.UserContext()).Model(&models.Coupon{})
	if search := strings.TrimSpace(req.Search); search != "" {
		query = query.Where("code LIKE ?", "%"+coupons.NormalizeCode(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var rows []models.Coupon
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&rows).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       rows,
		"pagination": pg.Meta(total),
	})
}

func (h *AdminHandler) createCoupon(c *fiber.Ctx, data json.RawMessage) error {
	var req couponRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	var coupon models.Coupon
	if err := req.apply(&coupon); err != nil {
		return err
	}
	if err := h.db.WithContext(c.UserContext()).Create(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.CodeConflict, "coupon code already exists")
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": coupon})
}

type updateCouponRequest struct {
	ID string `json:"id" validate:"required,uuid"`
	couponRequest
}

func (h *AdminHandler) updateCoupon(c *fiber.Ctx, data json.RawMessage) error {
	var req updateCouponRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var coupon models.Coupon
	if err := db.First(&coupon, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("coupon not found")
		}
		return err
	}
	if err := req.couponRequest.apply(&coupon); err != nil {
		return err
	}
	// used_count is owned by checkout; never overwrite it from the form.
	if err := db.Model(&coupon).
		Select("code", "type", "value", "min_purchase", "max_uses", "expires_at", "active").
		Updates(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.CodeConflict, "coupon code already exists")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": coupon})
}

func (h *AdminHandler) deleteCoupon(c *fiber.Ctx, data json.RawMessage) error {
	var req idRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}

	res := h.db.WithContext(c.UserContext()).Delete(&models.Coupon{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("coupon not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": id}})
}

type listProductsRequest struct {
	listRequest
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

type adminProduct struct {
	models.Product
	PendingStockAlerts int64 `json:"pending_stock_alerts"`
}

func (h *AdminHandler) listProducts(c *fiber.Ctx, data json.RawMessage) error {
	var req listProductsRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	pg := utils.NewPagination(req.Page, req.Limit)

	products, total, err := h.products.listProducts(c.UserContext(), productFilter{
		Search:          req.Search,
		Brand:           req.Brand,
		Category:        req.Category,
		IncludeInactive: true,
	}, pg)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, len(products))
	for i, product := range products {
		ids[i] = product.ID
	}
	alerts, err := h.products.pendingAlerts(c.UserContext(), ids)
	if err != nil {
		return err
	}

	rows := make([]adminProduct, len(products))
	for i, product := range products {
		rows[i] = adminProduct{Product: product, PendingStockAlerts: alerts[product.ID]}
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       rows,
		"pagination": pg.Meta(total),
	})
}

func (h *AdminHandler) createProduct(c *fiber.Ctx, data json.RawMessage) error {
	var req productRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	product, err := h.products.createProduct(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

type updateProductRequest struct {
	ID string `json:"id" validate:"required,uuid"`
	productRequest
}

func (h *AdminHandler) updateProduct(c *fiber.Ctx, data json.RawMessage) error {
	var req updateProductRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}
	product, err := h.products.updateProduct(c.UserContext(), id, req.productRequest)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

func (h *AdminHandler) deleteProduct(c *fiber.Ctx, data json.RawMessage) error {
	var req idRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	id, err := parseID(req.ID, "id")
	if err != nil {
		return err
	}
	if err := h.products.deleteProduct(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"id": id}})
}
