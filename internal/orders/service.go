package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrStatusChanged = errors.New("order status changed concurrently")
	ErrEmptyTracking = errors.New("tracking code is required")
)

const maxListLimit = 100

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Create inserts order and its items using tx. Number, token and status are
// filled in when empty.
func (s *Service) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order.OrderNumber == "" {
		order.OrderNumber = NewOrderNumber(s.now())
	}
	if order.AccessToken == "" {
		order.AccessToken = NewAccessToken()
	}
	if order.Status == "" {
		order.Status = models.OrderPending
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.first(ctx, "id = ?", id)
}

// FindByToken looks an order up by its customer-facing access token.
func (s *Service) FindByToken(ctx context.Context, token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	return s.first(ctx, "access_token = ?", token)
}

func (s *Service) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return s.first(ctx, "order_number = ?", number)
}

func (s *Service) first(ctx context.Context, query string, args ...any) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where(query, args...).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type ListFilter struct {
	Status models.OrderStatus
	Search string
	Page   int
	Limit  int
}

// List pages through orders newest first. Search matches order number,
// customer name and customer email.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Order, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus moves an order along the lifecycle. The update is conditional on
// the status that was read so two admins cannot both apply a transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Transition(order.Status, to); err != nil {
		return nil, err
	}
	if err := s.swapStatus(ctx, order, to, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// SetTracking stores a tracking code. A paid or processing order moves to
// shipped and the returned bool reports that transition; shipped and delivered
// orders only get the code corrected.
func (s *Service) SetTracking(ctx context.Context, id uuid.UUID, code string) (*models.Order, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false, ErrEmptyTracking
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if CanTransition(order.Status, models.OrderShipped) {
		if err := s.swapStatus(ctx, order, models.OrderShipped, map[string]any{"tracking_code": code}); err != nil {
			return nil, false, err
		}
		order.TrackingCode = &code
		return order, true, nil
	}

	if order.Status != models.OrderShipped && order.Status != models.OrderDelivered {
		return nil, false, &TransitionError{From: order.Status, To: models.OrderShipped}
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{"tracking_code": code, "updated_at": s.now()}).Error; err != nil {
		return nil, false, err
	}
	order.TrackingCode = &code
	return order, false, nil
}

// MarkPaid applies pending -> paid for an approved payment. Orders already
// past pending are left alone and reported as unchanged.
func (s *Service) MarkPaid(ctx context.Context, orderNumber, paymentID string) (*models.Order, bool, error) {
	order, err := s.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, false, err
	}
	if order.Status != models.OrderPending {
		return order, false, nil
	}

	extra := map[string]any{}
	if paymentID != "" {
		extra["payment_id"] = paymentID
	}
	if err := s.swapStatus(ctx, order, models.OrderPaid, extra); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return order, false, nil
		}
		return nil, false, err
	}
	if paymentID != "" {
		order.PaymentID = paymentID
	}
	return order, true, nil
}

// SetPayment records the payment preference created for an order.
func (s *Service) SetPayment(ctx context.Context, id uuid.UUID, paymentID, paymentURL string) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_id":  paymentID,
			"payment_url": paymentURL,
			"updated_at":  s.now(),
		}).Error
}

// Delete removes an order and its item snapshots.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Order{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Service) swapStatus(ctx context.Context, order *models.Order, to models.OrderStatus, extra map[string]any) error {
	now := s.now()
	updates := map[string]any{"status": to, "updated_at": now}
	for k, v := range extra {
		updates[k] = v
	}

	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusChanged
	}
	order.Status = to
	order.UpdatedAt = now
	return nil
}
