package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/pricing"
)

// Service looks up coupons and consumes their usage.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// NormalizeCode trims and upper-cases a shopper-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the coupon with the given code, or pricing.ErrCouponNotFound.
func (s *Service) Lookup(ctx context.Context, code string) (*models.Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, &pricing.CouponError{Kind: pricing.ErrCouponNotFound}
	}

	var coupon models.Coupon
	if err := s.db.WithContext(ctx).Where("code = ?", normalized).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &pricing.CouponError{Kind: pricing.ErrCouponNotFound}
		}
		return nil, err
	}
	return &coupon, nil
}

// Validate looks the code up and checks it against the subtotal. The coupon is
// returned alongside rule errors so callers can still show its details.
func (s *Service) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*models.Coupon, error) {
	coupon, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := pricing.CheckCoupon(coupon, subtotal, s.now()); err != nil {
		return coupon, err
	}
	return coupon, nil
}

// Consume increments used_count inside tx, refusing when the cap has been reached
// since the coupon was read.
func (s *Service) Consume(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error {
	if tx == nil {
		tx = s.db
	}
	result := tx.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND active = ? AND (max_uses IS NULL OR used_count < max_uses)", couponID, true).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &pricing.CouponError{Kind: pricing.ErrCouponUsageLimit}
	}
	return nil
}
