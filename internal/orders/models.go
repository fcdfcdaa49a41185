package orders

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("unknown status")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// Customer is the checkout form. Tags mirror the storefront form rules.
type Customer struct {
	FullName   string `json:"full_name" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=10"`
	Address    string `json:"address" validate:"required,min=10"`
	City       string `json:"city" validate:"required,min=2"`
	PostalCode string `json:"postal_code" validate:"required,min=5"`
	Notes      string `json:"notes,omitempty"`
}

// Item is a purchased line. PriceAtPurchase is a snapshot and never follows
// later catalog price changes.
type Item struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase int64  `json:"price_at_purchase"`
}

type Order struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	Customer         Customer      `json:"customer"`
	Items            []Item        `json:"items"`
	Status           Status        `json:"status"`
	PaymentMethod    string        `json:"payment_method"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	ShippingMethod   string        `json:"shipping_method"`
	Subtotal         int64         `json:"subtotal"`
	ShippingCost     int64         `json:"shipping_cost"`
	ProcessingFee    int64         `json:"processing_fee"`
	Tax              int64         `json:"tax_amount"`
	Discount         int64         `json:"discount_amount"`
	Total            int64         `json:"total_amount"`
	IdempotencyKey   string        `json:"-"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (o *Order) clone() *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp
}

type ListFilter struct {
	Status        Status
	PaymentMethod string
	PaymentStatus PaymentStatus
	Limit         int
	Offset        int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

func (f ListFilter) normalized() ListFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f ListFilter) match(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PaymentMethod != "" && o.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
		return false
	}
	return true
}

type ProductSales struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

// Stats feeds the admin dashboard. Revenue figures exclude cancelled orders.
type Stats struct {
	TotalOrders       int            `json:"total_orders"`
	TotalRevenue      int64          `json:"total_revenue"`
	PendingOrders     int            `json:"pending_orders"`
	DeliveredOrders   int            `json:"delivered_orders"`
	CancelledOrders   int            `json:"cancelled_orders"`
	CODOrders         int            `json:"cod_orders"`
	OnlineOrders      int            `json:"online_payment_orders"`
	CODRevenue        int64          `json:"cod_revenue"`
	OnlineRevenue     int64          `json:"online_payment_revenue"`
	AverageOrderValue int64          `json:"average_order_value"`
	CompletionRate    float64        `json:"completion_rate"`
	ByStatus          map[Status]int `json:"by_status"`
	ByPaymentMethod   map[string]int `json:"by_payment_method"`
	TopProducts       []ProductSales `json:"top_products"`
}

const TopProductsLimit = 5

// finish derives the ratio fields from the counters.
func (s *Stats) finish() {
	if billable := s.TotalOrders - s.CancelledOrders; billable > 0 {
		s.AverageOrderValue = s.TotalRevenue / int64(billable)
	}
	if s.TotalOrders > 0 {
		s.CompletionRate = float64(s.DeliveredOrders) * 100 / float64(s.TotalOrders)
	}
	if s.TopProducts == nil {
		s.TopProducts = []ProductSales{}
	}
}
