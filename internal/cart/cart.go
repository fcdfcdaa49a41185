// Package cart holds a shopper's line items between visits.
//
// A Cart is a plain value; persistence is the job of a Store. Quantities are
// always kept within [1, stock] of the product snapshot taken on the last Add.
package cart

import (
	"errors"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInactive        = errors.New("product is not available")
)

type Line struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	WeightGrams int64  `json:"weight_grams,omitempty"`
	Stock       int    `json:"stock"`
	Quantity    int    `json:"quantity"`
}

func (l Line) Total() int64 { return l.Price * int64(l.Quantity) }

type Cart struct {
	Owner     string    `json:"owner"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(owner string) *Cart {
	return &Cart{Owner: owner, Lines: []Line{}}
}

func (c *Cart) index(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add merges qty into the product's line, clamping the result to stock.
// It returns the resulting quantity of the line.
func (c *Cart) Add(p catalog.Product, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	if !p.IsActive {
		return 0, ErrInactive
	}
	if p.Stock <= 0 {
		return 0, ErrOutOfStock
	}

	i := c.index(p.ID)
	if i < 0 {
		c.Lines = append(c.Lines, Line{ProductID: p.ID})
		i = len(c.Lines) - 1
	}
	l := &c.Lines[i]
	l.Name = p.Name
	l.Price = p.Price
	l.WeightGrams = p.WeightGrams
	l.Stock = p.Stock
	l.Quantity = min(l.Quantity+qty, p.Stock)
	c.touch()
	return l.Quantity, nil
}

// UpdateQuantity sets a line's quantity; qty <= 0 removes the line.
func (c *Cart) UpdateQuantity(productID string, qty int) (int, error) {
	i := c.index(productID)
	if i < 0 {
		return 0, ErrLineNotFound
	}
	if qty <= 0 {
		c.removeAt(i)
		return 0, nil
	}
	l := &c.Lines[i]
	l.Quantity = min(qty, l.Stock)
	c.touch()
	return l.Quantity, nil
}

func (c *Cart) Remove(productID string) error {
	i := c.index(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.removeAt(i)
	return nil
}

func (c *Cart) Clear() {
	c.Lines = []Line{}
	c.touch()
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.touch()
}

func (c *Cart) touch() { c.UpdatedAt = time.Now().UTC() }

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) Subtotal() int64 {
	var sum int64
	for _, l := range c.Lines {
		sum += l.Total()
	}
	return sum
}

func (c *Cart) TotalQuantity() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}
