package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

// ProductHandler serves the public catalog and stock alerts.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

type productFilter struct {
	Search          string
	Brand           string
	Category        string
	Featured        *bool
	IncludeInactive bool
}

func (h *ProductHandler) listProducts(ctx context.Context, filter productFilter, pg utils.Pagination) ([]models.Product, int64, error) {
	query := h.db.WithContext(ctx).Model(&models.Product{})

	if !filter.IncludeInactive {
		query = query.Where("active = ?", true)
	}
	if brand := strings.TrimSpace(filter.Brand); brand != "" {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(brand))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(category))
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(description) LIKE ?", q, q, q)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := query.Order("featured desc").Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListProducts returns paginated active products with optional filters.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	filter := productFilter{
		Search:   c.Query("search"),
		Brand:    c.Query("brand"),
		Category: c.Query("category"),
	}
	if v := c.Query("featured"); v != "" {
		if featured, err := strconv.ParseBool(v); err == nil {
			filter.Featured = &featured
		}
	}

	products, total, err := h.listProducts(c.UserContext(), filter, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       products,
		"pagination": pg.Meta(total),
	})
}

// GetProduct loads an active product.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return err
	}

	var product models.Product
	if err := h.db.WithContext(c.UserContext()).
		First(&product, "id = ? AND active = ?", id, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

type stockAlertRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateStockAlert registers an email to hear when a product is back in stock.
func (h *ProductHandler) CreateStockAlert(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return err
	}
	var req stockAlertRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	email := loyalty.NormalizeEmail(req.Email)

	var alert models.StockAlert
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").First(&product, "id = ? AND active = ?", id, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("product not found")
			}
			return err
		}

		var pending int64
		if err := tx.Model(&models.StockAlert{}).
			Where("email = ? AND product_id = ? AND notified = ?", email, id, false).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errStockAlertExists
		}

		alert = models.StockAlert{Email: email, ProductID: id}
		return tx.Create(&alert).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": alert})
}

type productRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Brand       string           `json:"brand" validate:"max=120"`
	Description string           `json:"description"`
	Category    string           `json:"category" validate:"max=120"`
	Size        string           `json:"size" validate:"max=50"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       int              `json:"stock" validate:"gte=0"`
	ImageURL    string           `json:"image_url" validate:"omitempty,url"`
	Active      *bool            `json:"active"`
	Featured    bool             `json:"featured"`
}

func (r productRequest) apply(product *models.Product) error {
	if r.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	product.Name = strings.TrimSpace(r.Name)
	product.Brand = strings.TrimSpace(r.Brand)
	product.Description = r.Description
	product.Category = strings.TrimSpace(r.Category)
	product.Size = strings.TrimSpace(r.Size)
	product.Price = r.Price.Round(2)
	product.Stock = r.Stock
	product.ImageURL = strings.TrimSpace(r.ImageURL)
	product.Featured = r.Featured
	product.Active = true
	if r.Active != nil {
		product.Active = *r.Active
	}
	return nil
}

func (h *ProductHandler) createProduct(ctx context.Context, req productRequest) (*models.Product, error) {
	var product models.Product
	if err := req.apply(&product); err != nil {
		return nil, err
	}
	if err := h.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (h *ProductHandler) updateProduct(ctx context.Context, id uuid.UUID, req productRequest) (*models.Product, error) {
	var product models.Product
	if err := h.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, err
	}
	if err := req.apply(&product); err != nil {
		return nil, err
	}
	if err := h.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (h *ProductHandler) deleteProduct(ctx context.Context, id uuid.UUID) error {
	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.StockAlert{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("product not found")
		}
		return nil
	})
}

// pendingAlerts counts unsent stock alerts per product.
func (h *ProductHandler) pendingAlerts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	type alertCount struct {
		ProductID uuid.UUID
		Count     int64
	}
	var rows []alertCount
	if err := h.db.WithContext(ctx).Model(&models.StockAlert{}).
		Select("product_id, count(*) as count").
		Where("product_id IN ? AND notified = ?", ids, false).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ProductID] = row.Count
	}
	return counts, nil
}
