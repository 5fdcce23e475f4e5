package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLinesMergesDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	c, err := FromLines([]Line{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 3}})
	require.NoError(t, err)

	assert.Equal(t, []Line{{ProductID: a, Quantity: 4}, {ProductID: b, Quantity: 2}}, c.Lines())
	assert.Len(t, c.ProductIDs(), 2)
}

func TestFromLinesRejectsBadInput(t *testing.T) {
	_, err := FromLines(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = FromLines([]Line{{ProductID: uuid.New(), Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSetQuantityRemovesAtZero(t *testing.T) {
	id := uuid.New()
	c := New()
	require.NoError(t, c.Add(id, 2))

	c.SetQuantity(id, 5)
	assert.Equal(t, 5, c.Quantity(id))

	c.SetQuantity(id, 0)
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Quantity(id))

	c.Remove(id)
	assert.Empty(t, c.Lines())
}
