package models

import (
	"github.com/google/uuid"
)

type LoyaltyTransactionType string

const (
	LoyaltyEarned   LoyaltyTransactionType = "earned"
	LoyaltyRedeemed LoyaltyTransactionType = "redeemed"
	// LoyaltyExpired is reserved; nothing expires points yet.
	LoyaltyExpired LoyaltyTransactionType = "expired"
)

// LoyaltyAccount holds a customer's point balance, keyed by lower-cased email.
// Points always equals TotalEarned - TotalRedeemed.
type LoyaltyAccount struct {
	BaseModel
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	Points        int64  `gorm:"not null;default:0" json:"points"`
	TotalEarned   int64  `gorm:"not null;default:0" json:"total_earned"`
	TotalRedeemed int64  `gorm:"not null;default:0" json:"total_redeemed"`
}

func (LoyaltyAccount) TableName() string {
	return "loyalty_points"
}

// LoyaltyTransaction is an append-only ledger row.
type LoyaltyTransaction struct {
	BaseModel
	Email       string                 `gorm:"index;not null" json:"email"`
	Points      int64                  `gorm:"not null" json:"points"`
	Type        LoyaltyTransactionType `gorm:"not null;uniqueIndex:idx_loyalty_tx_order_type" json:"type"`
	Description string                 `json:"description"`
	OrderID     *uuid.UUID             `gorm:"type:uuid;uniqueIndex:idx_loyalty_tx_order_type" json:"order_id"`
}

func (LoyaltyTransaction) TableName() string {
	return "loyalty_transactions"
}
