// Package loyalty keeps the customer point ledger: one point per whole currency unit
// spent, redeemable at a fixed value per point once a minimum balance is used.
package loyalty

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// EarnRate is points per whole currency unit spent.
	EarnRate = 1
	// MinRedeemPoints is the smallest redemption accepted.
	MinRedeemPoints int64 = 100
)

// PointValue is the currency value of a single point.
var PointValue = decimal.RequireFromString("0.10")

var (
	ErrBelowMinimum       = errors.New("below minimum redemption")
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	ErrAlreadyEarned      = errors.New("points already earned for this order")
	ErrConcurrentUpdate   = errors.New("loyalty balance changed concurrently")
	ErrInvalidEmail       = errors.New("email is required")
)

// PointsFromPurchase floors amount × EarnRate; non-positive amounts earn nothing.
func PointsFromPurchase(amount decimal.Decimal) int64 {
	if amount.Sign() <= 0 {
		return 0
	}
	return amount.Mul(decimal.NewFromInt(EarnRate)).Floor().IntPart()
}

// PointsValue converts points into their discount value.
func PointsValue(points int64) decimal.Decimal {
	return decimal.NewFromInt(points).Mul(PointValue)
}

// NormalizeEmail is the account key: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckRedemption validates a request against the minimum and the current balance.
func CheckRedemption(balance, requested int64) error {
	if requested < MinRedeemPoints {
		return ErrBelowMinimum
	}
	if requested > balance {
		return ErrInsufficientPoints
	}
	return nil
}
