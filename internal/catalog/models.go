package catalog

import (
	"sort"
	"time"
)

// Prices are integer minor units (rupiah).
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug,omitempty"`
	Description  string    `json:"description,omitempty"`
	Price        int64     `json:"price"`
	ComparePrice int64     `json:"compare_price,omitempty"`
	SKU          string    `json:"sku,omitempty"`
	WeightGrams  int64     `json:"weight_grams,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CategoryID   string    `json:"category_id,omitempty"`
	Category     string    `json:"category"`
	Stock        int       `json:"stock"`
	IsActive     bool      `json:"is_active"`
	IsFeatured   bool      `json:"is_featured"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// StockChange is one product quantity moved by an order.
type StockChange struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Merge sums quantities per product and sorts by product id, the order in
// which stock rows are locked.
func Merge(changes []StockChange) []StockChange {
	idx := make(map[string]int, len(changes))
	out := make([]StockChange, 0, len(changes))
	for _, c := range changes {
		if i, ok := idx[c.ProductID]; ok {
			out[i].Qty += c.Qty
			continue
		}
		idx[c.ProductID] = len(out)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (p Product) Validate() error {
	if p.Name == "" || p.Price < 0 || p.Stock < 0 || p.WeightGrams < 0 {
		return ErrInvalidProduct
	}
	return nil
}
