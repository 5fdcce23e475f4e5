package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name        string          `gorm:"not null" json:"name"`
	Brand       string          `gorm:"index" json:"brand"`
	Description string          `json:"description"`
	Category    string          `gorm:"index" json:"category"`
	Size        string          `json:"size"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	ImageURL    string          `json:"image_url"`
	Active      bool            `gorm:"not null" json:"active"`
	Featured    bool            `gorm:"not null" json:"featured"`
}

// StockAlert asks to be emailed when an out-of-stock product returns.
type StockAlert struct {
	BaseModel
	Email     string    `gorm:"index;not null" json:"email"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Notified  bool      `gorm:"not null" json:"notified"`
}
