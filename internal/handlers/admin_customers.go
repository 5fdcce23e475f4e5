package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

type listCustomersRequest struct {
	Search string `json:"search" validate:"max=100"`
	Page   int    `json:"page" validate:"gte=0"`
	Limit  int    `json:"limit" validate:"gte=0"`
}

type customerSummary struct {
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	OrderCount    int64           `json:"order_count"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	LoyaltyPoints int64           `json:"loyalty_points" gorm:"-"`
}

// listCustomers aggregates buyers from their orders and joins their loyalty balance.
func (h *AdminHandler) listCustomers(c *fiber.Ctx, data json.RawMessage) error {
	var req listCustomersRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}
	pg := utils.NewPagination(req.Page, req.Limit)
	db := h.db.WithContext(c.UserContext())

	filtered := func() *gorm.DB {
		q := db.Model(&models.Order{})
		if search := strings.ToLower(strings.TrimSpace(req.Search)); search != "" {
			like := "%" + search + "%"
			q = q.Where("LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := filtered().Distinct("customer_email").Count(&total).Error; err != nil {
		return err
	}

	var customers []customerSummary
	if err := filtered().
		Select(`customer_email as email,
			MAX(customer_name) as name,
			MAX(customer_phone) as phone,
			COUNT(*) as order_count,
			COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0) as total_spent`,
			models.OrderCancelled).
		Group("customer_email").
		Order("MAX(created_at) desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Scan(&customers).Error; err != nil {
		return err
	}

	if len(customers) > 0 {
		emails := make([]string, len(customers))
		for i, customer := range customers {
			emails[i] = customer.Email
		}
		var accounts []models.LoyaltyAccount
		if err := db.Where("email IN ?", emails).Find(&accounts).Error; err != nil {
			return err
		}
		balances := make(map[string]int64, len(accounts))
		for _, account := range accounts {
			balances[account.Email] = account.Points
		}
		for i := range customers {
			customers[i].LoyaltyPoints = balances[customers[i].Email]
		}
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       customers,
		"pagination": pg.Meta(total),
	})
}
