// Package cart normalizes the shopper's submitted cart lines. The cart itself lives on the
// client; the server only needs a merged, validated view of it at checkout.
package cart

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrEmpty           = errors.New("cart is empty")
)

type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Cart is keyed by product id. Lines are kept in insertion order.
type Cart struct {
	quantities map[uuid.UUID]int
	order      []uuid.UUID
}

func New() *Cart {
	return &Cart{quantities: make(map[uuid.UUID]int)}
}

// Add increases the quantity of a product, creating the line if needed.
func (c *Cart) Add(productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if _, ok := c.quantities[productID]; !ok {
		c.order = append(c.order, productID)
	}
	c.quantities[productID] += quantity
	return nil
}

// SetQuantity overwrites a line's quantity; zero or less removes the line.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	if _, ok := c.quantities[productID]; !ok {
		c.order = append(c.order, productID)
	}
	c.quantities[productID] = quantity
}

func (c *Cart) Remove(productID uuid.UUID) {
	if _, ok := c.quantities[productID]; !ok {
		return
	}
	delete(c.quantities, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Quantity(productID uuid.UUID) int {
	return c.quantities[productID]
}

func (c *Cart) Len() int {
	return len(c.order)
}

func (c *Cart) Lines() []Line {
	lines := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		lines = append(lines, Line{ProductID: id, Quantity: c.quantities[id]})
	}
	return lines
}

// ProductIDs returns the distinct product ids, sorted for stable queries.
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := append([]uuid.UUID(nil), c.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// FromLines merges raw submitted lines; duplicates of a product accumulate.
func FromLines(lines []Line) (*Cart, error) {
	c := New()
	for _, line := range lines {
		if err := c.Add(line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}
	if c.Len() == 0 {
		return nil, ErrEmpty
	}
	return c, nil
}
