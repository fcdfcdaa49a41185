package catalog

import (
	"sort"
	"strings"
)

type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceLow  Sort = "price_low"
	SortPriceHigh Sort = "price_high"
	SortName      Sort = "name"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

func ParseSort(s string) (Sort, bool) {
	switch Sort(s) {
	case "", "created_at", SortNewest:
		return SortNewest, true
	case SortPriceLow, SortPriceHigh, SortName:
		return Sort(s), true
	}
	return "", false
}

// Filter is the catalog query. Zero value lists active products, newest first.
type Filter struct {
	Category        string
	Search          string
	MinPrice        *int64
	MaxPrice        *int64
	FeaturedOnly    bool
	IncludeInactive bool
	Sort            Sort
	Limit           int
	Offset          int
}

func (f Filter) normalized() Filter {
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultLimit
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

func (f Filter) Match(p Product) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.FeaturedOnly && !p.IsFeatured {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) && p.CategoryID != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

// Apply filters, sorts and pages a product slice without modifying it.
func (f Filter) Apply(products []Product) []Product {
	f = f.normalized()
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, less(out, f.Sort))

	if f.Offset >= len(out) {
		return []Product{}
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func less(ps []Product, s Sort) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := ps[i], ps[j]
		switch s {
		case SortPriceLow:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case SortPriceHigh:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}
}
