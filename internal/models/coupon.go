package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage   CouponType = "percentage"
	CouponFixed        CouponType = "fixed"
	CouponFreeShipping CouponType = "free_shipping"
)

func (t CouponType) IsValid() bool {
	switch t {
	case CouponPercentage, CouponFixed, CouponFreeShipping:
		return true
	}
	return false
}

// Coupon is a discount instrument. Code is stored upper-cased.
type Coupon struct {
	BaseModel
	Code        string           `gorm:"uniqueIndex;not null" json:"code"`
	Type        CouponType       `gorm:"not null" json:"type"`
	Value       decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"value"`
	MinPurchase *decimal.Decimal `gorm:"type:numeric(12,2)" json:"min_purchase"`
	MaxUses     *int             `json:"max_uses"`
	UsedCount   int              `gorm:"not null;default:0" json:"used_count"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	Active      bool             `gorm:"not null" json:"active"`
}
