package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/metrics"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

const maxAttempts = 3

// Service mutates balances with conditional updates so concurrent writers
// cannot overwrite each other.
type Service struct {
	db      *gorm.DB
	metrics *metrics.Storefront
}

func NewService(db *gorm.DB, m *metrics.Storefront) *Service {
	return &Service{db: db, metrics: m}
}

type EarnResult struct {
	Points  int64                  `json:"points"`
	Account *models.LoyaltyAccount `json:"account,omitempty"`
}

type Redemption struct {
	Points   int64                  `json:"points"`
	Discount decimal.Decimal        `json:"discount"`
	Account  *models.LoyaltyAccount `json:"account,omitempty"`
}

// Earn credits points for a purchase. A zero-point purchase is a no-op, and an
// order can only ever earn once; a repeat returns ErrAlreadyEarned.
func (s *Service) Earn(ctx context.Context, email string, amount decimal.Decimal, orderID uuid.UUID) (EarnResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return EarnResult{}, ErrInvalidEmail
	}

	points := PointsFromPurchase(amount)
	if points <= 0 {
		return EarnResult{}, nil
	}

	var orderRef *uuid.UUID
	if orderID != uuid.Nil {
		orderRef = &orderID
	}

	var account *models.LoyaltyAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if orderRef != nil {
			var existing int64
			if err := tx.Model(&models.LoyaltyTransaction{}).
				Where("order_id = ? AND type = ?", orderID, models.LoyaltyEarned).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return ErrAlreadyEarned
			}
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).Create(&models.LoyaltyAccount{Email: email}).Error; err != nil {
			return err
		}

		updated, err := adjust(tx, email, points, 0)
		if err != nil {
			return err
		}
		account = updated

		entry := models.LoyaltyTransaction{
			Email:       email,
			Points:      points,
			Type:        models.LoyaltyEarned,
			Description: earnDescription(points, orderRef),
			OrderID:     orderRef,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyEarned
			}
			return err
		}
		return nil
	})
	if err != nil {
		return EarnResult{}, err
	}

	s.metrics.LoyaltyPoints(string(models.LoyaltyEarned), points)
	return EarnResult{Points: points, Account: account}, nil
}

// Quote validates a redemption without touching the balance.
func (s *Service) Quote(ctx context.Context, email string, points int64) (Redemption, error) {
	if points < MinRedeemPoints {
		return Redemption{}, ErrBelowMinimum
	}
	account, err := s.Account(ctx, email)
	if err != nil {
		return Redemption{}, err
	}
	if err := CheckRedemption(account.Points, points); err != nil {
		return Redemption{}, err
	}
	return Redemption{Points: points, Discount: PointsValue(points), Account: account}, nil
}

// Redeem spends points in its own transaction and returns the discount they buy.
func (s *Service) Redeem(ctx context.Context, email string, points int64, orderID *uuid.UUID) (Redemption, error) {
	var redemption Redemption
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.RedeemTx(ctx, tx, email, points, orderID)
		if err != nil {
			return err
		}
		redemption = r
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}
	s.metrics.LoyaltyPoints(string(models.LoyaltyRedeemed), points)
	return redemption, nil
}

// RedeemTx spends points inside the caller's transaction, so checkout can commit
// the order and the redemption together. The caller records the redeemed metric
// once its transaction commits.
func (s *Service) RedeemTx(ctx context.Context, tx *gorm.DB, email string, points int64, orderID *uuid.UUID) (Redemption, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return Redemption{}, ErrInvalidEmail
	}
	if points < MinRedeemPoints {
		return Redemption{}, ErrBelowMinimum
	}

	tx = tx.WithContext(ctx)
	account, err := adjust(tx, email, 0, points)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Redemption{}, ErrInsufficientPoints
		}
		return Redemption{}, err
	}

	discount := PointsValue(points)
	entry := models.LoyaltyTransaction{
		Email:       email,
		Points:      -points,
		Type:        models.LoyaltyRedeemed,
		Description: fmt.Sprintf("Redeemed %d points for R$ %s discount", points, discount.StringFixed(2)),
		OrderID:     orderID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return Redemption{}, err
	}

	return Redemption{Points: points, Discount: discount, Account: account}, nil
}

// Account returns the balance for email; customers who never bought get a zero account.
func (s *Service) Account(ctx context.Context, email string) (*models.LoyaltyAccount, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}

	var account models.LoyaltyAccount
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.LoyaltyAccount{Email: email}, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Transactions lists the most recent ledger rows for email.
func (s *Service) Transactions(ctx context.Context, email string, limit int) ([]models.LoyaltyTransaction, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows []models.LoyaltyTransaction
	if err := s.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// adjust applies earned/redeemed deltas with a compare-and-set on the current
// balance, re-reading and retrying when another writer got there first.
func adjust(tx *gorm.DB, email string, earned, redeemed int64) (*models.LoyaltyAccount, error) {
	delta := earned - redeemed
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var account models.LoyaltyAccount
		if err := tx.Where("email = ?", email).First(&account).Error; err != nil {
			return nil, err
		}
		if redeemed > 0 {
			if err := CheckRedemption(account.Points, redeemed); err != nil {
				return nil, err
			}
		}

		now := time.Now()
		result := tx.Model(&models.LoyaltyAccount{}).
			Where("id = ? AND points = ?", account.ID, account.Points).
			Updates(map[string]any{
				"points":         gorm.Expr("points + ?", delta),
				"total_earned":   gorm.Expr("total_earned + ?", earned),
				"total_redeemed": gorm.Expr("total_redeemed + ?", redeemed),
				"updated_at":     now,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			account.Points += delta
			account.TotalEarned += earned
			account.TotalRedeemed += redeemed
			account.UpdatedAt = now
			return &account, nil
		}
	}
	return nil, ErrConcurrentUpdate
}

func earnDescription(points int64, orderID *uuid.UUID) string {
	if orderID == nil {
		return fmt.Sprintf("Earned %d points", points)
	}
	return fmt.Sprintf("Earned %d points on order %s", points, orderID.String()[:8])
}
