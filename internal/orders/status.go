// Package orders owns the order lifecycle: identifiers, the status machine
// and the queries the storefront and back-office run against orders.
package orders

import (
	"errors"
	"fmt"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

var ErrInvalidStatus = errors.New("invalid order status")

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:    {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:       {models.OrderProcessing, models.OrderShipped, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
	models.OrderDelivered:  nil,
	models.OrderCancelled:  nil,
}

// ParseStatus accepts only known statuses.
func ParseStatus(value string) (models.OrderStatus, error) {
	status := models.OrderStatus(value)
	if _, ok := transitions[status]; !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns a *TransitionError when it is not allowed.
func Transition(from, to models.OrderStatus) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Terminal reports statuses with no way out.
func Terminal(status models.OrderStatus) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}
