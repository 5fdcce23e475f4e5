// Package checkout turns a submitted cart into a committed order. The database
// transaction that inserts the order, consumes the coupon and redeems loyalty
// points is the commit point; payment, loyalty earn and notifications follow
// it and never roll it back.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/cart"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/coupons"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/loyalty"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/metrics"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/pricing"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/shipping"
)

const sideEffectTimeout = 30 * time.Second

var (
	ErrUnknownShippingService = errors.New("unknown shipping service")
	ErrOutOfStock             = errors.New("product out of stock")
	ErrNotPending             = errors.New("order is not awaiting payment")
	ErrNothingToPay           = errors.New("order total is zero")
	ErrPointsExceedTotal      = errors.New("loyalty discount exceeds the amount due")
)

// ProductError reports a cart line whose product cannot be sold.
type ProductError struct {
	ProductID uuid.UUID
	Name      string
	Err       error
}

func (e *ProductError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("product %s: %v", e.ProductID, e.Err)
}

func (e *ProductError) Unwrap() error { return e.Err }

var ErrProductUnavailable = errors.New("product unavailable")

type ShippingQuoter interface {
	Resolve(ctx context.Context, postalCode string, declaredValue decimal.Decimal) (*shipping.Quote, error)
}

type PaymentGateway interface {
	CreatePreference(ctx context.Context, req services.PreferenceRequest) (*services.Preference, error)
	GetPayment(ctx context.Context, id string) (*services.Payment, error)
}

type Mailer interface {
	Send(ctx context.Context, kind services.EmailType, order *models.Order) error
}

type AdminNotifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order) error
	NotifyPaymentApproved(ctx context.Context, order *models.Order) error
}

type Customer struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	PostalCode string
}

type Request struct {
	Customer        Customer
	Items           []cart.Line
	CouponCode      string
	LoyaltyPoints   int64
	ShippingService string
	PaymentMethod   string
	Notes           string
}

type Result struct {
	Order      *models.Order     `json:"order"`
	Breakdown  pricing.Breakdown `json:"breakdown"`
	PaymentURL string            `json:"payment_url,omitempty"`
}

type Deps struct {
	DB       *gorm.DB
	Coupons  *coupons.Service
	Loyalty  *loyalty.Service
	Orders   *orders.Service
	Shipping ShippingQuoter
	Payments PaymentGateway
	Mailer   Mailer
	Notifier AdminNotifier
	Logger   *logger.Logger
	Metrics  *metrics.Storefront
	SiteURL  string
	Currency string
	// Dispatch runs post-commit side effects; nil means a new goroutine per call.
	Dispatch func(func())
}

type Service struct {
	db       *gorm.DB
	coupons  *coupons.Service
	loyalty  *loyalty.Service
	orders   *orders.Service
	shipping ShippingQuoter
	payments PaymentGateway
	mailer   Mailer
	notifier AdminNotifier
	log      *logger.Logger
	metrics  *metrics.Storefront
	siteURL  string
	currency string

	dispatch func(func())
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Currency == "" {
		d.Currency = "BRL"
	}
	if d.Coupons == nil {
		d.Coupons = coupons.NewService(d.DB)
	}
	if d.Loyalty == nil {
		d.Loyalty = loyalty.NewService(d.DB, d.Metrics)
	}
	if d.Orders == nil {
		d.Orders = orders.NewService(d.DB)
	}
	if d.Dispatch == nil {
		d.Dispatch = func(f func()) { go f() }
	}
	return &Service{
		db:       d.DB,
		coupons:  d.Coupons,
		loyalty:  d.Loyalty,
		orders:   d.Orders,
		shipping: d.Shipping,
		payments: d.Payments,
		mailer:   d.Mailer,
		notifier: d.Notifier,
		log:      d.Logger,
		metrics:  d.Metrics,
		siteURL:  strings.TrimRight(d.SiteURL, "/"),
		currency: d.Currency,
		dispatch: d.Dispatch,
	}
}

type pricedCart struct {
	items    []models.OrderItem
	subtotal decimal.Decimal
}

// Place prices the cart against the catalog, commits the order and kicks off
// the post-commit side effects.
func (s *Service) Place(ctx context.Context, req Request) (*Result, error) {
	email := loyalty.NormalizeEmail(req.Customer.Email)

	c, err := cart.FromLines(req.Items)
	if err != nil {
		return nil, err
	}
	priced, err := s.priceCart(ctx, c)
	if err != nil {
		return nil, err
	}

	var coupon *models.Coupon
	if strings.TrimSpace(req.CouponCode) != "" {
		coupon, err = s.coupons.Validate(ctx, req.CouponCode, priced.subtotal)
		if err != nil {
			return nil, err
		}
	}

	if s.shipping == nil {
		return nil, ErrUnknownShippingService
	}
	quote, err := s.shipping.Resolve(ctx, req.Customer.PostalCode, priced.subtotal)
	if err != nil {
		return nil, err
	}
	option, ok := quote.Option(req.ShippingService)
	if !ok {
		return nil, ErrUnknownShippingService
	}

	input := pricing.Input{
		Subtotal: priced.subtotal,
		Coupon:   coupon,
		Shipping: option.Price,
	}
	if req.LoyaltyPoints > 0 {
		redemption, err := s.loyalty.Quote(ctx, email, req.LoyaltyPoints)
		if err != nil {
			return nil, err
		}
		// Points may cover the amount due but never more.
		if due := pricing.Compose(input).Total; redemption.Discount.GreaterThan(due) {
			return nil, ErrPointsExceedTotal
		}
		input.LoyaltyDiscount = redemption.Discount
	}

	breakdown := pricing.Compose(input)
	status := models.OrderPending
	if !breakdown.Total.IsPositive() {
		status = models.OrderPaid
	}

	order := &models.Order{
		CustomerName:      strings.TrimSpace(req.Customer.Name),
		CustomerEmail:     email,
		CustomerPhone:     strings.TrimSpace(req.Customer.Phone),
		ShippingAddress:   strings.TrimSpace(req.Customer.Address),
		PostalCode:        quote.PostalCode,
		Subtotal:          breakdown.Subtotal,
		DiscountAmount:    breakdown.CouponDiscount,
		LoyaltyPointsUsed: req.LoyaltyPoints,
		LoyaltyDiscount:   breakdown.LoyaltyDiscount,
		ShippingService:   option.Name,
		ShippingAmount:    breakdown.Shipping,
		TotalAmount:       breakdown.Total,
		Status:            status,
		PaymentMethod:     strings.TrimSpace(req.PaymentMethod),
		Items:             priced.items,
	}
	if coupon != nil {
		order.CouponCode = coupon.Code
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		order.Notes = &notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := reserveStock(tx, item); err != nil {
				return err
			}
		}
		if coupon != nil {
			if err := s.coupons.Consume(ctx, tx, coupon.ID); err != nil {
				return err
			}
		}
		if req.LoyaltyPoints > 0 {
			orderID := order.ID
			if _, err := s.loyalty.RedeemTx(ctx, tx, email, req.LoyaltyPoints, &orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated()
	s.metrics.LoyaltyPoints(string(models.LoyaltyRedeemed), req.LoyaltyPoints)
	ctx = s.log.WithOrder(ctx, order.OrderNumber)
	s.log.Info(ctx, "order placed")

	result := &Result{Order: order, Breakdown: breakdown}

	// Orders fully covered by discounts are settled at commit.
	if order.Status == models.OrderPaid {
		s.afterCommit(ctx, order)
		s.paymentApproved(ctx, order)
		return result, nil
	}
	if url, err := s.createPayment(ctx, order); err != nil {
		s.log.Error(ctx, "payment preference failed", err)
	} else {
		result.PaymentURL = url
	}

	s.afterCommit(ctx, order)
	return result, nil
}

// priceCart snapshots catalog prices and names for every cart line.
func (s *Service) priceCart(ctx context.Context, c *cart.Cart) (pricedCart, error) {
	ids := c.ProductIDs()
	var products []models.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return pricedCart{}, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var (
		items []models.OrderItem
		lines []pricing.Line
	)
	for _, line := range c.Lines() {
		product, ok := byID[line.ProductID]
		if !ok || !product.Active {
			return pricedCart{}, &ProductError{ProductID: line.ProductID, Name: product.Name, Err: ErrProductUnavailable}
		}
		if product.Stock < line.Quantity {
			return pricedCart{}, &ProductError{ProductID: product.ID, Name: product.Name, Err: ErrOutOfStock}
		}
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Brand:       product.Brand,
			Size:        product.Size,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		})
		lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: line.Quantity})
	}
	return pricedCart{items: items, subtotal: pricing.Subtotal(lines)}, nil
}

// reserveStock decrements stock only while enough remains.
func reserveStock(tx *gorm.DB, item models.OrderItem) error {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
		Update("stock", gorm.Expr("stock - ?", item.Quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &ProductError{ProductID: item.ProductID, Name: item.ProductName, Err: ErrOutOfStock}
	}
	return nil
}

// afterCommit credits loyalty on the final total and sends notifications.
// Failures are logged only.
func (s *Service) afterCommit(ctx context.Context, order *models.Order) {
	snapshot := *order
	bg := context.WithoutCancel(ctx)
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(bg, sideEffectTimeout)
		defer cancel()

		if _, err := s.loyalty.Earn(ctx, snapshot.CustomerEmail, snapshot.TotalAmount, snapshot.ID); err != nil && !errors.Is(err, loyalty.ErrAlreadyEarned) {
			s.log.Error(ctx, "loyalty earn failed", err)
		}
		s.sendEmail(ctx, services.EmailConfirmation, &snapshot)
		if s.notifier != nil {
			if err := s.notifier.NotifyNewOrder(ctx, &snapshot); err != nil {
				s.log.Error(ctx, "admin notification failed", err)
			}
		}
	})
}

// sendEmail delivers an order email; an unconfigured mailer is a silent skip.
func (s *Service) sendEmail(ctx context.Context, kind services.EmailType, order *models.Order) {
	if s.mailer == nil {
		return
	}
	err := s.mailer.Send(ctx, kind, order)
	if err == nil || errors.Is(err, services.ErrNotConfigured) {
		return
	}
	s.log.Error(s.log.WithField(ctx, "email_type", string(kind)), "order email failed", err)
}
