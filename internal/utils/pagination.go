package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const maxLimit = 100

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// NewPagination clamps page and limit to sane defaults.
func NewPagination(page, limit int) Pagination {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}
	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// ParsePagination reads page and limit query params.
func ParsePagination(c *fiber.Ctx) Pagination {
	return NewPagination(parseInt(c.Query("page", "1"), 1), parseInt(c.Query("limit", "20"), 20))
}

// Meta is the pagination block of list responses.
func (p Pagination) Meta(total int64) fiber.Map {
	return fiber.Map{
		"current_page":   p.Page,
		"items_per_page": p.Limit,
		"total_items":    total,
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
