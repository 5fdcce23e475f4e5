package loyalty

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/database/databasetest"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/metrics"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := databasetest.Open(t)
	return NewService(db, metrics.NewStorefront(prometheus.NewRegistry())), db
}

func requireInvariant(t *testing.T, db *gorm.DB, email string) models.LoyaltyAccount {
	t.Helper()
	var account models.LoyaltyAccount
	require.NoError(t, db.Where("email = ?", email).First(&account).Error)
	assert.Equal(t, account.TotalEarned-account.TotalRedeemed, account.Points, "points must equal earned - redeemed")
	assert.GreaterOrEqual(t, account.Points, int64(0))

	var ledgerSum int64
	require.NoError(t, db.Model(&models.LoyaltyTransaction{}).
		Where("email = ?", email).
		Select("COALESCE(SUM(points), 0)").
		Scan(&ledgerSum).Error)
	assert.Equal(t, account.Points, ledgerSum, "ledger must sum to balance")
	return account
}

func seed(t *testing.T, svc *Service, email string, amount int64) {
	t.Helper()
	_, err := svc.Earn(context.Background(), email, decimal.NewFromInt(amount), uuid.New())
	require.NoError(t, err)
}

func TestEarnCreatesAccountLazily(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	orderID := uuid.New()

	result, err := svc.Earn(ctx, "Cliente@Example.com", decimal.RequireFromString("250.75"), orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), result.Points)
	require.NotNil(t, result.Account)
	assert.Equal(t, int64(250), result.Account.Points)

	account := requireInvariant(t, db, "cliente@example.com")
	assert.Equal(t, int64(250), account.TotalEarned)

	var rows []models.LoyaltyTransaction
	require.NoError(t, db.Where("email = ?", "cliente@example.com").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.LoyaltyEarned, rows[0].Type)
	require.NotNil(t, rows[0].OrderID)
	assert.Equal(t, orderID, *rows[0].OrderID)
}

func TestEarnIsIdempotentPerOrder(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	orderID := uuid.New()

	_, err := svc.Earn(ctx, "ana@example.com", decimal.NewFromInt(300), orderID)
	require.NoError(t, err)

	_, err = svc.Earn(ctx, "ana@example.com", decimal.NewFromInt(300), orderID)
	assert.ErrorIs(t, err, ErrAlreadyEarned)

	account := requireInvariant(t, db, "ana@example.com")
	assert.Equal(t, int64(300), account.Points)

	_, err = svc.Earn(ctx, "ana@example.com", decimal.NewFromInt(40), uuid.New())
	require.NoError(t, err)
	account = requireInvariant(t, db, "ana@example.com")
	assert.Equal(t, int64(340), account.Points)
}

func TestEarnZeroIsNoop(t *testing.T) {
	svc, db := newTestService(t)

	result, err := svc.Earn(context.Background(), "ana@example.com", decimal.RequireFromString("0.50"), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, result.Points)
	assert.Nil(t, result.Account)

	var count int64
	require.NoError(t, db.Model(&models.LoyaltyAccount{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.LoyaltyTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEarnRequiresEmail(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Earn(context.Background(), "  ", decimal.NewFromInt(10), uuid.New())
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRedeem(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "bia@example.com", 200)

	orderID := uuid.New()
	redemption, err := svc.Redeem(ctx, "BIA@example.com", 150, &orderID)
	require.NoError(t, err)
	assert.True(t, redemption.Discount.Equal(decimal.RequireFromString("15.00")))
	assert.Equal(t, int64(50), redemption.Account.Points)

	account := requireInvariant(t, db, "bia@example.com")
	assert.Equal(t, int64(50), account.Points)
	assert.Equal(t, int64(150), account.TotalRedeemed)

	var entry models.LoyaltyTransaction
	require.NoError(t, db.Where("email = ? AND type = ?", "bia@example.com", models.LoyaltyRedeemed).First(&entry).Error)
	assert.Equal(t, int64(-150), entry.Points)
	assert.Equal(t, "Redeemed 150 points for R$ 15.00 discount", entry.Description)
}

func TestRedeemRejectionsLeaveStateUntouched(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "caio@example.com", 120)

	_, err := svc.Redeem(ctx, "caio@example.com", 50, nil)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = svc.Redeem(ctx, "caio@example.com", 121, nil)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	_, err = svc.Redeem(ctx, "nobody@example.com", 100, nil)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	account := requireInvariant(t, db, "caio@example.com")
	assert.Equal(t, int64(120), account.Points)
	assert.Zero(t, account.TotalRedeemed)

	var redeemed int64
	require.NoError(t, db.Model(&models.LoyaltyTransaction{}).Where("type = ?", models.LoyaltyRedeemed).Count(&redeemed).Error)
	assert.Zero(t, redeemed)
}

func TestQuoteDoesNotMutate(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, svc, "duda@example.com", 500)

	quote, err := svc.Quote(ctx, "duda@example.com", 300)
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(decimal.NewFromInt(30)))

	_, err = svc.Quote(ctx, "duda@example.com", 600)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	_, err = svc.Quote(ctx, "duda@example.com", 10)
	assert.ErrorIs(t, err, ErrBelowMinimum)

	account := requireInvariant(t, db, "duda@example.com")
	assert.Equal(t, int64(500), account.Points)
}

func TestConcurrentRedemptionsNeverOverspend(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, svc, "eva@example.com", 300)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Redeem(context.Background(), "eva@example.com", 100, nil); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	account := requireInvariant(t, db, "eva@example.com")
	assert.Zero(t, account.Points)
	assert.Equal(t, int64(300), account.TotalRedeemed)
}

// bumpBeforeUpdate simulates another writer changing the balance between the
// read and the conditional update, times times.
func bumpBeforeUpdate(t *testing.T, db *gorm.DB, times int) {
	t.Helper()
	remaining := times
	err := db.Callback().Update().Before("gorm:update").Register("test:concurrent_bump", func(tx *gorm.DB) {
		if remaining == 0 || tx.Statement.Table != "loyalty_points" {
			return
		}
		remaining--
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE loyalty_points SET points = points + 1, total_earned = total_earned + 1")
	})
	require.NoError(t, err)
}

func TestRedeemRetriesAfterConflict(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, svc, "fabi@example.com", 200)
	bumpBeforeUpdate(t, db, 1)

	redemption, err := svc.Redeem(context.Background(), "fabi@example.com", 100, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(101), redemption.Account.Points)

	account := requireInvariantWithoutLedger(t, db, "fabi@example.com")
	assert.Equal(t, int64(101), account.Points)
}

func TestRedeemGivesUpAfterRepeatedConflicts(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, svc, "gabi@example.com", 200)
	bumpBeforeUpdate(t, db, maxAttempts)

	_, err := svc.Redeem(context.Background(), "gabi@example.com", 100, nil)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	// the failed transaction rolled back, bumps included
	account := requireInvariant(t, db, "gabi@example.com")
	assert.Equal(t, int64(200), account.Points)
}

// requireInvariantWithoutLedger skips the ledger sum, which out-of-band bumps break.
func requireInvariantWithoutLedger(t *testing.T, db *gorm.DB, email string) models.LoyaltyAccount {
	t.Helper()
	var account models.LoyaltyAccount
	require.NoError(t, db.Where("email = ?", email).First(&account).Error)
	assert.Equal(t, account.TotalEarned-account.TotalRedeemed, account.Points)
	return account
}

func TestAccountAndTransactions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	empty, err := svc.Account(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Zero(t, empty.Points)
	assert.Equal(t, "new@example.com", empty.Email)

	seed(t, svc, "hugo@example.com", 150)
	seed(t, svc, "hugo@example.com", 50)
	_, err = svc.Redeem(ctx, "hugo@example.com", 100, nil)
	require.NoError(t, err)

	rows, err := svc.Transactions(ctx, "HUGO@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = svc.Account(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRedeemedMetricCountsOnlyCommittedRedemptions(t *testing.T) {
	db := databasetest.Open(t)
	reg := prometheus.NewRegistry()
	svc := NewService(db, metrics.NewStorefront(reg))
	ctx := context.Background()
	seed(t, svc, "lia@example.com", 400)

	errAbort := errors.New("abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.RedeemTx(ctx, tx, "lia@example.com", 200, nil); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	assert.Equal(t, int64(400), requireInvariant(t, db, "lia@example.com").Points)

	_, err = svc.Redeem(ctx, "lia@example.com", 100, nil)
	require.NoError(t, err)

	expected := `
# HELP storefront_loyalty_points_total Loyalty points moved through the ledger.
# TYPE storefront_loyalty_points_total counter
storefront_loyalty_points_total{kind="earned"} 400
storefront_loyalty_points_total{kind="redeemed"} 100
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "storefront_loyalty_points_total"))
}
