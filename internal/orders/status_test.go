package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

func TestTransitions(t *testing.T) {
	allowed := []struct{ from, to models.OrderStatus }{
		{models.OrderPending, models.OrderPaid},
		{models.OrderPending, models.OrderCancelled},
		{models.OrderPaid, models.OrderProcessing},
		{models.OrderPaid, models.OrderShipped},
		{models.OrderPaid, models.OrderCancelled},
		{models.OrderProcessing, models.OrderShipped},
		{models.OrderProcessing, models.OrderCancelled},
		{models.OrderShipped, models.OrderDelivered},
	}
	for _, tc := range allowed {
		assert.NoError(t, Transition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	rejected := []struct{ from, to models.OrderStatus }{
		{models.OrderPending, models.OrderShipped},
		{models.OrderPending, models.OrderDelivered},
		{models.OrderShipped, models.OrderCancelled},
		{models.OrderShipped, models.OrderPending},
		{models.OrderDelivered, models.OrderCancelled},
		{models.OrderCancelled, models.OrderPaid},
		{models.OrderPaid, models.OrderPaid},
	}
	for _, tc := range rejected {
		err := Transition(tc.from, tc.to)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, Terminal(models.OrderDelivered))
	assert.True(t, Terminal(models.OrderCancelled))
	assert.False(t, Terminal(models.OrderShipped))
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("processing")
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, status)

	_, err = ParseStatus("confirmed")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTransitionErrorMessage(t *testing.T) {
	err := Transition(models.OrderDelivered, models.OrderPending)
	assert.EqualError(t, err, "cannot change order status from delivered to pending")
}

func TestIdentifiers(t *testing.T) {
	number := NewOrderNumber(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^JF-261016-[A-Z2-9]{5}$`), number)

	a, b := NewAccessToken(), NewAccessToken()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
