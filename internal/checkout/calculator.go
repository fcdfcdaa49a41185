// Package checkout turns cart lines plus the chosen shipping and payment
// methods into a priced breakdown. All amounts are integer minor units.
package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidLine       = errors.New("invalid cart line")
	ErrMethodUnavailable = errors.New("method not available")
)

const DefaultItemWeightGrams int64 = 500

var DefaultTaxRate = decimal.RequireFromString("0.10")

// Line is one priced item as far as the calculator cares.
type Line struct {
	ProductID   string
	Price       int64
	Quantity    int
	WeightGrams int64 // 0 = use the calculator default
}

type Breakdown struct {
	Subtotal      int64 `json:"subtotal"`
	WeightGrams   int64 `json:"weight_grams"`
	ShippingCost  int64 `json:"shipping_cost"`
	FreeShipping  bool  `json:"free_shipping"`
	ProcessingFee int64 `json:"processing_fee"`
	Tax           int64 `json:"tax"`
	Discount      int64 `json:"discount"`
	Total         int64 `json:"total"`
}

type Calculator struct {
	TaxRate                decimal.Decimal
	DefaultItemWeightGrams int64
}

func NewCalculator(taxRate decimal.Decimal) *Calculator {
	return &Calculator{TaxRate: taxRate, DefaultItemWeightGrams: DefaultItemWeightGrams}
}

// Quote prices lines. The discount is clamped into [0, subtotal].
func (c *Calculator) Quote(lines []Line, ship ShippingMethod, pay PaymentMethod, discount int64) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, ErrEmptyCart
	}
	if pay.IsCOD && !ship.CODAvailable {
		return Breakdown{}, fmt.Errorf("%w: %s does not support %s", ErrMethodUnavailable, ship.Code, pay.Code)
	}

	var b Breakdown
	for _, l := range lines {
		if l.Quantity <= 0 || l.Price < 0 || l.WeightGrams < 0 {
			return Breakdown{}, fmt.Errorf("%w: %s", ErrInvalidLine, l.ProductID)
		}
		w := l.WeightGrams
		if w == 0 {
			w = c.DefaultItemWeightGrams
		}
		b.Subtotal += l.Price * int64(l.Quantity)
		b.WeightGrams += w * int64(l.Quantity)
	}

	b.ShippingCost, b.FreeShipping = ShippingCost(ship, b.Subtotal, b.WeightGrams)
	b.ProcessingFee = pay.ProcessingFee
	b.Tax = Tax(b.Subtotal, c.TaxRate)
	b.Discount = min(max(discount, 0), b.Subtotal)
	b.Total = b.Subtotal + b.ShippingCost + b.ProcessingFee + b.Tax - b.Discount

	if !pay.Accepts(b.Total) {
		return Breakdown{}, fmt.Errorf("%w: %s does not accept %d", ErrMethodUnavailable, pay.Code, b.Total)
	}
	return b, nil
}

// ShippingCost is base + perKg*kg (rounded half up) unless the subtotal
// reaches a non-zero free threshold.
func ShippingCost(m ShippingMethod, subtotal, grams int64) (cost int64, free bool) {
	if m.FreeShippingThreshold > 0 && subtotal >= m.FreeShippingThreshold {
		return 0, true
	}
	variable := decimal.NewFromInt(m.CostPerKg).
		Mul(decimal.NewFromInt(grams)).
		Div(decimal.NewFromInt(1000)).
		Round(0)
	return m.BaseCost + variable.IntPart(), false
}

// Tax rounds subtotal*rate half away from zero.
func Tax(subtotal int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
}
