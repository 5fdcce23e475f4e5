package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/orders"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/services"
)

// PreferenceFor builds the gateway request for order. When discounts apply the
// lines are collapsed into one item so the gateway charges exactly the order total.
func (s *Service) PreferenceFor(order *models.Order) services.PreferenceRequest {
	req := services.PreferenceRequest{
		Payer: services.PreferencePayer{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
			Phone: order.CustomerPhone,
		},
		ShippingCost:      order.ShippingAmount,
		ExternalReference: order.OrderNumber,
	}
	if s.siteURL != "" {
		track := s.siteURL + "/pedido/" + order.AccessToken
		req.SuccessURL = track
		req.FailureURL = track
		req.PendingURL = track
		req.NotificationURL = s.siteURL + "/api/payments/webhook"
	}

	discounted := order.DiscountAmount.IsPositive() || order.LoyaltyDiscount.IsPositive()
	if !discounted {
		for _, item := range order.Items {
			req.Items = append(req.Items, services.PreferenceItem{
				ID:         item.ProductID.String(),
				Title:      item.ProductName,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				CurrencyID: s.currency,
			})
		}
		return req
	}

	itemsAmount := order.TotalAmount.Sub(order.ShippingAmount)
	if !itemsAmount.IsPositive() {
		itemsAmount = order.TotalAmount
		req.ShippingCost = decimal.Zero
	}
	req.Items = []services.PreferenceItem{{
		ID:         order.OrderNumber,
		Title:      fmt.Sprintf("Pedido %s", order.OrderNumber),
		Quantity:   1,
		UnitPrice:  itemsAmount,
		CurrencyID: s.currency,
	}}
	return req
}

func (s *Service) createPayment(ctx context.Context, order *models.Order) (string, error) {
	if s.payments == nil {
		return "", services.ErrNotConfigured
	}
	if !order.TotalAmount.IsPositive() {
		return "", ErrNothingToPay
	}
	pref, err := s.payments.CreatePreference(ctx, s.PreferenceFor(order))
	if err != nil {
		return "", err
	}
	if err := s.orders.SetPayment(ctx, order.ID, pref.ID, pref.InitPoint); err != nil {
		return "", err
	}
	order.PaymentID = pref.ID
	order.PaymentURL = pref.InitPoint
	return pref.InitPoint, nil
}

// RetryPayment creates a fresh payment preference for a pending order.
func (s *Service) RetryPayment(ctx context.Context, accessToken string) (*models.Order, error) {
	order, err := s.orders.FindByToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, ErrNotPending
	}
	if _, err := s.createPayment(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmPayment handles a gateway notification. Approved payments move their
// order from pending to paid and trigger the payment_approved email once.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) (*models.Order, bool, error) {
	if s.payments == nil {
		return nil, false, services.ErrNotConfigured
	}
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}
	if !payment.Approved() || payment.ExternalReference == "" {
		return nil, false, nil
	}

	order, changed, err := s.orders.MarkPaid(ctx, payment.ExternalReference, paymentID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			s.log.Warn(s.log.WithField(ctx, "external_reference", payment.ExternalReference), "payment for unknown order")
			return nil, false, nil
		}
		return nil, false, err
	}
	if !changed {
		return order, false, nil
	}

	ctx = s.log.WithOrder(ctx, order.OrderNumber)
	s.log.Info(ctx, "payment approved")
	s.paymentApproved(ctx, order)
	return order, true, nil
}

// paymentApproved sends the payment_approved email and the admin notice.
func (s *Service) paymentApproved(ctx context.Context, order *models.Order) {
	snapshot := *order
	bg := context.WithoutCancel(ctx)
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(bg, sideEffectTimeout)
		defer cancel()
		s.sendEmail(ctx, services.EmailPaymentApproved, &snapshot)
		if s.notifier != nil {
			if err := s.notifier.NotifyPaymentApproved(ctx, &snapshot); err != nil {
				s.log.Error(ctx, "admin notification failed", err)
			}
		}
	})
}

// Notify sends an order email on the side-effect path; used by the back-office.
func (s *Service) Notify(ctx context.Context, kind services.EmailType, order *models.Order) {
	if s.mailer == nil {
		return
	}
	snapshot := *order
	bg := context.WithoutCancel(ctx)
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(bg, sideEffectTimeout)
		defer cancel()
		s.sendEmail(s.log.WithOrder(ctx, snapshot.OrderNumber), kind, &snapshot)
	})
}
