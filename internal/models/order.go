package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type Order struct {
	BaseModel
	OrderNumber       string          `gorm:"uniqueIndex;not null" json:"order_number"`
	AccessToken       string          `gorm:"uniqueIndex;not null" json:"access_token"`
	CustomerName      string          `json:"customer_name"`
	CustomerEmail     string          `gorm:"index" json:"customer_email"`
	CustomerPhone     string          `json:"customer_phone"`
	ShippingAddress   string          `json:"shipping_address"`
	PostalCode        string          `json:"postal_code"`
	Subtotal          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DiscountAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	CouponCode        string          `json:"coupon_code"`
	LoyaltyPointsUsed int64           `gorm:"not null;default:0" json:"loyalty_points_used"`
	LoyaltyDiscount   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"loyalty_discount"`
	ShippingService   string          `json:"shipping_service"`
	ShippingAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Status            OrderStatus     `gorm:"index;not null" json:"status"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentID         string          `json:"payment_id"`
	PaymentURL        string          `json:"payment_url"`
	TrackingCode      *string         `json:"tracking_code"`
	Notes             *string         `json:"notes"`
	Items             []OrderItem     `json:"items,omitempty"`
}

// OrderItem is a snapshot of the product at purchase time, not a live reference.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid" json:"product_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
}
